package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Encode renders a record as indented JSON with a trailing newline, the
// exact bytes Write puts on disk.
func Encode(rec Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return append(data, '\n'), nil
}

// Write persists a record to path atomically (temp file + rename), creating
// parent directories as needed and overwriting any existing file.
func Write(path string, rec Record) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// Load reads a previously written metadata file back into a record.
func Load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return rec, nil
}

// Diff returns a unified diff between the previous and new serialized
// artifacts, or "" when they are equivalent. name labels both sides.
func Diff(oldData, newData []byte, name string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        strings.Split(string(oldData), "\n"),
		B:        strings.Split(string(newData), "\n"),
		FromFile: name + " (previous)",
		ToFile:   name,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", name, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return text, nil
}
