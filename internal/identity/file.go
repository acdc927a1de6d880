package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileRegistry keeps issued client ids in a single JSON document on disk.
type FileRegistry struct {
	mu   sync.Mutex
	path string
}

func NewFileRegistry(path string) *FileRegistry {
	return &FileRegistry{path: path}
}

func (f *FileRegistry) Save(_ context.Context, clientID string, seenAt time.Time) error {
	if clientID == "" {
		return fmt.Errorf("client id is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.readLocked()
	if err != nil {
		return err
	}
	records[clientID] = touch(records[clientID], clientID, seenAt)
	return f.writeLocked(records)
}

// Read returns every known record keyed by client id.
func (f *FileRegistry) Read() (map[string]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLocked()
}

func (f *FileRegistry) Close() error { return nil }

func (f *FileRegistry) readLocked() (map[string]Record, error) {
	records := make(map[string]Record)
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return records, nil
		}
		return nil, err
	}
	if len(b) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return records, nil
}

func (f *FileRegistry) writeLocked(records map[string]Record) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
