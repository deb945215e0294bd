// Package storage provides the string key/value stores the chatbot persists its
// session id and transcript into.
package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Keys used by the chatbot. They match what the storefront widget kept in
// localStorage so exported data stays interchangeable.
const (
	SessionKey  = "chatbot_session_id"
	MessagesKey = "chatbot_messages"
)

var (
	ErrEmptyKey      = errors.New("storage: key is required")
	ErrUnknownDriver = errors.New("storage: unknown driver")
	ErrCorruptFile   = errors.New("storage: cannot decode storage file")
)

// Store is a string key/value store that survives restarts.
type Store interface {
	// Read returns the value for key and whether it was present.
	Read(key string) (string, bool, error)
	Write(key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open builds a Store for the configured driver. path is ignored by the memory
// driver.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile, "":
		return NewFileStore(path)
	case DriverSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// Close releases resources held by s when it has any.
func Close(s Store) error {
	if closer, ok := s.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
