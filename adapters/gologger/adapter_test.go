package gologger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
)

func TestResolveDeterministicFallback(t *testing.T) {
	loggerOnly := &capturingLogger{id: "logger"}
	providerLogger := &capturingLogger{id: "provider"}
	provider := &capturingProvider{logger: providerLogger}

	var resolvedProvider glog.LoggerProvider
	_, resolved := Resolve("fhirseed", provider, loggerOnly)
	got := resolved.(*capturingLogger)
	if got.id != "provider" {
		t.Fatalf("expected provider logger precedence, got %q", got.id)
	}

	resolvedProvider, resolved = Resolve("fhirseed", nil, loggerOnly)
	got = resolved.(*capturingLogger)
	if got.id != "logger" {
		t.Fatalf("expected direct logger when provider is nil, got %q", got.id)
	}
	if resolvedProvider == nil {
		t.Fatalf("expected provider wrapper from logger")
	}

	_, resolved = Resolve("fhirseed", nil, nil)
	if resolved == nil {
		t.Fatalf("expected nop logger fallback")
	}
}

func decodeLines(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	records := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		record := map[string]any{}
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		records = append(records, record)
	}
	return records
}

func TestLogrusLogger_WritesPairsAsFields(t *testing.T) {
	out := &bytes.Buffer{}
	logger, err := NewLogrus(out, "debug")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.GetLogger("reconcile").Info("Created user alice", "username", "alice", "pid", 42)
	logger.Trace("dropped below level")

	records := decodeLines(t, out)
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d: %s", len(records), out.String())
	}
	record := records[0]
	if record["msg"] != "Created user alice" || record["level"] != "info" {
		t.Fatalf("unexpected record: %#v", record)
	}
	if record["logger"] != "reconcile" || record["username"] != "alice" || record["pid"] != float64(42) {
		t.Fatalf("expected structured fields, got %#v", record)
	}
}

func TestLogrusLogger_WithFieldsAndOddArgs(t *testing.T) {
	out := &bytes.Buffer{}
	logger, err := NewLogrus(out, "")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	scoped := logger.WithFields(map[string]any{"run_id": "r1"}).WithContext(context.Background())
	scoped.Warn("consent malformed", "username", "bob", "dangling")
	logger.Debug("hidden at info level")

	records := decodeLines(t, out)
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0]["run_id"] != "r1" || records[0]["arg"] != "dangling" || records[0]["level"] != "warning" {
		t.Fatalf("unexpected record: %#v", records[0])
	}
}

func TestNewLogrus_RejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogrus(&bytes.Buffer{}, "verbose"); err == nil {
		t.Fatalf("expected unknown level to fail")
	}
}

var (
	_ glog.Logger         = (*capturingLogger)(nil)
	_ glog.LoggerProvider = (*capturingProvider)(nil)
)

type capturingProvider struct {
	logger *capturingLogger
}

func (p *capturingProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type capturingLogger struct {
	id string
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Info(string, ...any)  {}
func (l *capturingLogger) Warn(string, ...any)  {}
func (l *capturingLogger) Error(string, ...any) {}
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) WithContext(context.Context) glog.Logger {
	return l
}
