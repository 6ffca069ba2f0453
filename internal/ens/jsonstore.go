package ens

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// JSONStore keeps the cache in a single JSON document.
type JSONStore struct {
	table
	path string
}

// NewJSONStore returns a store backed by the document at path. Nothing is read until Load.
func NewJSONStore(path string, opts StoreOptions) *JSONStore {
	return &JSONStore{table: newTable(opts), path: path}
}

// Path returns the document location.
func (s *JSONStore) Path() string { return s.path }

// Load reads the document and keeps its fresh entries.
// A missing document yields an empty store and no error; a corrupt one yields an
// empty store and the parse error.
func (s *JSONStore) Load() error {
	s.reset()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse cache %s: %w", s.path, err)
	}
	s.load(raw)
	return nil
}

// Save rewrites the whole document. The file is replaced atomically so a crash leaves
// either the previous or the new version on disk.
func (s *JSONStore) Save() error {
	data, err := json.MarshalIndent(s.document(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ens_cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache: %w", err)
	}
	return nil
}

// Close is a no-op; the document is only touched by Load and Save.
func (s *JSONStore) Close() error { return nil }
