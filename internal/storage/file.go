package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a KV persisted as a single JSON object on disk.
// Every mutation rewrites the whole file.
type File struct {
	dataDir string
	data    map[string]string
	mu      sync.RWMutex
}

// NewFile creates a file-backed store under dataDir.
func NewFile(dataDir string) *File {
	f := &File{
		dataDir: dataDir,
		data:    make(map[string]string),
	}
	f.loadFromDisk()
	return f
}

func (f *File) Get(ctx context.Context, key string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *File) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.data[key]
	f.data[key] = value
	if err := f.saveToDisk(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

func (f *File) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.data[key]
	if !had {
		return nil
	}
	delete(f.data, key)
	if err := f.saveToDisk(); err != nil {
		f.data[key] = prev
		return err
	}
	return nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return filepath.Join(f.dataDir, "store.json")
}

func (f *File) loadFromDisk() {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		return // not written yet, start empty
	}

	var kv map[string]string
	if err := json.Unmarshal(data, &kv); err != nil {
		return // malformed, start empty
	}
	if kv != nil {
		f.data = kv
	}
}

func (f *File) saveToDisk() error {
	if err := os.MkdirAll(f.dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return err
	}

	// write-then-rename so a crash never leaves a truncated store
	tmp := f.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path())
}
