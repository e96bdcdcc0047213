package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-fhir-seed/core"
)

func writeFile(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestBatchFile_LoadKeepsNumbersAndFields(t *testing.T) {
	path := writeFile(t, `[{"username":"alice","pid":12,"nodeId":"Master","consent":{"all":{"read":true}}},"oops"]`, 0o600)

	batch, err := New(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 records, got %d", len(batch))
	}
	if batch[0]["pid"] != json.Number("12") {
		t.Fatalf("expected json number pid, got %#v", batch[0]["pid"])
	}
	if _, ok := batch[0]["consent"].(map[string]any); !ok {
		t.Fatalf("expected consent mapping, got %#v", batch[0]["consent"])
	}
	if batch[1] != nil {
		t.Fatalf("expected non-object element to load as nil")
	}
	if err := batch.Validate(); err == nil {
		t.Fatalf("expected validation to reject non-object element")
	}
}

func TestBatchFile_LoadRejectsNonArray(t *testing.T) {
	path := writeFile(t, `{"username":"alice"}`, 0o600)
	_, err := New(path).Load()
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.ErrorBadInput {
		t.Fatalf("expected bad input envelope, got %v", err)
	}
}

func TestBatchFile_SaveIndentsAndKeepsMode(t *testing.T) {
	path := writeFile(t, `[]`, 0o600)
	batch := core.ReconciliationBatch{
		{"username": "alice", "pid": json.Number("12"), "notes": `{"all":{"read":true}}`},
	}
	if err := New(path).Save(batch); err != nil {
		t.Fatalf("save: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	text := string(content)
	if !strings.HasPrefix(text, "[\n  {\n    \"notes\"") {
		t.Fatalf("expected two-space indentation, got %q", text)
	}
	if !strings.Contains(text, `"pid": 12`) {
		t.Fatalf("expected numeric pid to round-trip, got %q", text)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600 to be kept, got %v", info.Mode().Perm())
	}

	reloaded, err := New(path).Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded[0].Username() != "alice" {
		t.Fatalf("unexpected reloaded batch %#v", reloaded)
	}
}
