package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-fhir-seed/core"
)

const defaultFileMode fs.FileMode = 0o644

// BatchFile reads and rewrites a JSON array of user records.
type BatchFile struct {
	Path string
}

func New(path string) BatchFile {
	return BatchFile{Path: strings.TrimSpace(path)}
}

// Load decodes the batch. Numbers keep their literal form so pids and other
// numeric fields round-trip unchanged. Array elements that are not objects
// load as nil records and fail batch validation.
func (f BatchFile) Load() (core.ReconciliationBatch, error) {
	if f.Path == "" {
		return nil, core.BadInputError("filestore: seed users file path is required", nil)
	}
	content, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", f.Path, err)
	}

	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.UseNumber()
	var items []any
	if err := decoder.Decode(&items); err != nil {
		return nil, core.BadInputError(
			fmt.Sprintf("filestore: %s is not a json array of user records: %v", f.Path, err),
			map[string]any{"path": f.Path},
		)
	}

	batch := make(core.ReconciliationBatch, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			batch = append(batch, nil)
			continue
		}
		batch = append(batch, core.UserRecord(record))
	}
	return batch, nil
}

// Save replaces the file with the batch rendered with two-space indentation.
// The previous file mode is kept.
func (f BatchFile) Save(batch core.ReconciliationBatch) error {
	if f.Path == "" {
		return core.BadInputError("filestore: seed users file path is required", nil)
	}
	if batch == nil {
		batch = core.ReconciliationBatch{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(batch); err != nil {
		return fmt.Errorf("filestore: encode batch: %w", err)
	}

	mode := defaultFileMode
	if info, err := os.Stat(f.Path); err == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filestore: stat %s: %w", f.Path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("filestore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestore: write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestore: chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return fmt.Errorf("filestore: replace %s: %w", f.Path, err)
	}
	return nil
}
