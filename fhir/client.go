package fhir

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-fhir-seed/core"
	"github.com/goliatone/go-fhir-seed/transport"
)

const ContentTypeFHIRJSON = "application/fhir+json"

// Client issues authenticated reads against a FHIR endpoint.
type Client struct {
	transport core.TransportAdapter
	observer  *core.Observer
}

func NewClient(adapter core.TransportAdapter, observer *core.Observer) *Client {
	if adapter == nil {
		adapter = transport.NewRESTAdapter(nil)
	}
	return &Client{transport: adapter, observer: observer}
}

// ResourceURL returns {base}/{resourceType}.
func ResourceURL(base string, resourceType string) string {
	return transport.JoinURL(base, resourceType)
}

// Get performs one bearer-authenticated GET and decodes the JSON body.
func (c *Client) Get(ctx context.Context, resourceURL string, accessToken string) (resource map[string]any, err error) {
	startedAt := time.Now()
	defer func() {
		c.observer.ObserveOperation(ctx, startedAt, "fhir_get", err, map[string]any{"url": resourceURL})
	}()

	req := core.TransportRequest{
		Method:      http.MethodGet,
		URL:         strings.TrimSpace(resourceURL),
		Headers:     map[string]string{"Accept": ContentTypeFHIRJSON + ", application/json"},
		BearerToken: accessToken,
	}
	res, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, &core.OperationError{
			Kind:    core.KindResource,
			Method:  req.Method,
			URL:     req.URL,
			Message: "request failed",
			Cause:   err,
		}
	}
	if !res.Successful() {
		return nil, &core.OperationError{
			Kind:       core.KindResource,
			Method:     req.Method,
			URL:        req.URL,
			StatusCode: res.StatusCode,
			Body:       strings.TrimSpace(string(res.Body)),
			Message:    "unexpected status",
		}
	}

	decoder := json.NewDecoder(bytes.NewReader(res.Body))
	decoder.UseNumber()
	if decodeErr := decoder.Decode(&resource); decodeErr != nil {
		return nil, &core.OperationError{
			Kind:       core.KindResource,
			Method:     req.Method,
			URL:        req.URL,
			StatusCode: res.StatusCode,
			Body:       strings.TrimSpace(string(res.Body)),
			Message:    "response is not a json object",
			Cause:      decodeErr,
		}
	}
	if resource == nil {
		resource = map[string]any{}
	}
	return resource, nil
}
