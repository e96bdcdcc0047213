package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-fhir-seed/core"
	"github.com/goliatone/go-fhir-seed/transport"
)

const defaultHTTPTimeout = 30 * time.Second

// TokenClient performs the identity provider calls of the token acquisition
// flow. Each call is a single attempt; nothing is cached between calls.
type TokenClient struct {
	httpClient *http.Client
	transport  core.TransportAdapter
	observer   *core.Observer
}

type Option func(*TokenClient)

func WithHTTPClient(client *http.Client) Option {
	return func(c *TokenClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTransport overrides the adapter used for the plain HTTP calls. The
// client-credentials grant still goes through the configured *http.Client.
func WithTransport(adapter core.TransportAdapter) Option {
	return func(c *TokenClient) {
		if adapter != nil {
			c.transport = adapter
		}
	}
}

func WithObserver(observer *core.Observer) Option {
	return func(c *TokenClient) {
		c.observer = observer
	}
}

func NewTokenClient(opts ...Option) *TokenClient {
	client := &TokenClient{}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if client.transport == nil {
		client.transport = transport.NewRESTAdapter(client.httpClient)
	}
	return client
}

func (c *TokenClient) observe(ctx context.Context, startedAt time.Time, operation string, err error, fields map[string]any) {
	c.observer.ObserveOperation(ctx, startedAt, operation, err, fields)
}

func transportFailure(kind core.ErrorKind, req core.TransportRequest, cause error, message string) *core.OperationError {
	return &core.OperationError{
		Kind:    kind,
		Method:  strings.ToUpper(firstNonEmpty(req.Method, http.MethodGet)),
		URL:     req.URL,
		Message: message,
		Cause:   cause,
	}
}

func statusFailure(kind core.ErrorKind, req core.TransportRequest, res core.TransportResponse, message string) *core.OperationError {
	return &core.OperationError{
		Kind:       kind,
		Method:     strings.ToUpper(firstNonEmpty(req.Method, http.MethodGet)),
		URL:        req.URL,
		StatusCode: res.StatusCode,
		Body:       truncateBody(res.Body),
		Message:    message,
	}
}
