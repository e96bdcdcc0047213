package core

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFieldMap(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFieldMap(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFieldMap(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func cloneFieldMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}

func TestObserver_SuccessEmitsDebugAndMetrics(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	observer := NewObserver("seed", logger, metrics)

	observer.ObserveOperation(context.Background(), time.Now(), "Reconcile User", nil, map[string]any{
		"username":  "alice",
		"node_id":   "Master",
		"module_id": "local_security",
		"action":    string(ReconcileActionCreated),
	})

	if len(metrics.counters) != 1 {
		t.Fatalf("expected one counter, got %d", len(metrics.counters))
	}
	counter := metrics.counters[0]
	if counter.name != "seed.reconcile_user.total" {
		t.Fatalf("unexpected counter name %q", counter.name)
	}
	if counter.tags["status"] != "success" || counter.tags["username"] != "alice" || counter.tags["action"] != "created" {
		t.Fatalf("unexpected counter tags: %#v", counter.tags)
	}
	if len(metrics.histograms) != 1 || metrics.histograms[0].name != "seed.reconcile_user.duration_ms" {
		t.Fatalf("expected duration histogram, got %#v", metrics.histograms)
	}

	records := logger.snapshot()
	if len(records) != 1 {
		t.Fatalf("expected one log record, got %d", len(records))
	}
	if records[0].level != "debug" {
		t.Fatalf("expected debug level on success, got %q", records[0].level)
	}
	if records[0].fields["event_type"] != "reconcile_user" {
		t.Fatalf("expected event_type field, got %#v", records[0].fields)
	}
}

func TestObserver_FailureLogsErrorKind(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	observer := NewObserver("", logger, metrics)

	failure := &OperationError{
		Kind:       KindUpdate,
		Method:     http.MethodPut,
		URL:        "http://users.local/Master/local_security/42",
		StatusCode: http.StatusBadRequest,
		Body:       "invalid",
	}
	observer.ObserveOperation(context.Background(), time.Now(), "reconcile_user", failure, map[string]any{
		"username": "bob",
	})

	if metrics.counters[0].name != "fhirseed.reconcile_user.total" {
		t.Fatalf("expected default prefix, got %q", metrics.counters[0].name)
	}
	if metrics.counters[0].tags["status"] != "failure" {
		t.Fatalf("expected failure tag, got %#v", metrics.counters[0].tags)
	}
	records := logger.snapshot()
	if len(records) != 1 || records[0].level != "error" {
		t.Fatalf("expected single error record, got %#v", records)
	}
	if records[0].fields["error_kind"] != string(KindUpdate) {
		t.Fatalf("expected error_kind field, got %#v", records[0].fields)
	}
}

func TestObserver_NilIsNoop(t *testing.T) {
	var observer *Observer
	observer.ObserveOperation(context.Background(), time.Now(), "noop", errors.New("ignored"), nil)
	observer.Info(context.Background(), "ignored", nil)
	if observer.Logger() == nil {
		t.Fatalf("expected nop logger from nil observer")
	}
}
