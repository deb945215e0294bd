package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore persists all keys as a single JSON object on disk. Every write replaces
// the file through a temp file + rename so readers never observe a partial document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store at path, creating parent directories.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage: file path must be provided")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	return &FileStore{path: path}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Read returns the stored value for key.
func (s *FileStore) Read(key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

// Write stores value under key.
func (s *FileStore) Write(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, _, err := s.loadForUpdate()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Delete removes key. The file is removed once it holds no keys.
func (s *FileStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, reset, err := s.loadForUpdate()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok && !reset {
		return nil
	}
	delete(values, key)

	if len(values) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove storage file: %w", err)
		}
		return nil
	}
	return s.save(values)
}

// loadForUpdate is load for mutations: an undecodable file is replaced rather than
// blocking every later write. reset reports that the file content was discarded.
func (s *FileStore) loadForUpdate() (map[string]string, bool, error) {
	values, err := s.load()
	if errors.Is(err, ErrCorruptFile) {
		log.Printf("[storage] discarding unreadable %s: %v", s.path, err)
		return map[string]string{}, true, nil
	}
	return values, false, err
}

func (s *FileStore) load() (map[string]string, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("open storage file: %w", err)
	}
	defer file.Close()

	values := map[string]string{}
	if err := json.NewDecoder(file).Decode(&values); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp storage file: %w", err)
	}

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(values); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode storage file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close storage temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persist storage file: %w", err)
	}

	return nil
}

var _ Store = (*FileStore)(nil)
