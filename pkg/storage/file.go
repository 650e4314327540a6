package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const fileVersion = "1.0"

// FileStore implements Store using a JSON file.
// Every SetItem and RemoveItem rewrites the file atomically.
type FileStore struct {
	path    string
	items   map[string]string
	mu      sync.RWMutex
	version string
}

// fileLayout is the on-disk shape of a FileStore.
type fileLayout struct {
	Version string            `json:"version"`
	Items   map[string]string `json:"items"`
}

// DefaultPath returns ~/.devpreview/storage.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".devpreview", "storage.json"), nil
}

// Open creates a file-backed store at path, loading any existing content.
// If path is empty, DefaultPath is used.
//
// A missing file yields an empty store. A file that cannot be decoded yields
// an empty, usable store together with an error wrapping ErrCorrupt; the
// corrupt file is left in place until the next write replaces it. Callers can
// check the error to log the fallback and carry on.
func Open(path string) (*FileStore, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	store := &FileStore{
		path:    path,
		items:   make(map[string]string),
		version: fileVersion,
	}

	if err := store.Load(); err != nil {
		return store, err
	}
	return store, nil
}

// Load (re)reads the file from disk, replacing the in-memory items.
// On failure the in-memory items are reset to empty.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]string)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read storage file: %w", err)
	}

	var layout fileLayout
	if err := json.Unmarshal(data, &layout); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}

	if layout.Version != "" {
		s.version = layout.Version
	}
	if layout.Items != nil {
		s.items = layout.Items
	}
	return nil
}

// GetItem returns the value stored under key.
func (s *FileStore) GetItem(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[key]
	return v, ok, nil
}

// SetItem stores value under key and saves the file.
func (s *FileStore) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.items[key]
	s.items[key] = value
	if err := s.save(); err != nil {
		if had {
			s.items[key] = prev
		} else {
			delete(s.items, key)
		}
		return err
	}
	return nil
}

// RemoveItem deletes key and saves the file.
func (s *FileStore) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.items[key]
	if !had {
		return nil
	}
	delete(s.items, key)
	if err := s.save(); err != nil {
		s.items[key] = prev
		return err
	}
	return nil
}

// Keys returns the stored keys in no particular order.
func (s *FileStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	return keys
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

// save writes the items to disk. Caller must hold s.mu.
func (s *FileStore) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	// Create temp file for atomic write
	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp storage file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fileLayout{Version: s.version, Items: s.items}); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode storage: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
