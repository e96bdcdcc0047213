package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type BasicCredentials struct {
	Username string
	Password string
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	BasicAuth            *BasicCredentials
	BearerToken          string
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

func (r TransportResponse) Successful() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// OutcomeRecorder receives one entry per processed user record.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, outcome ReconcileOutcome) error
}

type NopOutcomeRecorder struct{}

func (NopOutcomeRecorder) RecordOutcome(context.Context, ReconcileOutcome) error { return nil }

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
