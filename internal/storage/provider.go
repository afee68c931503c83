// Package storage provides the durable local key/value storage that backs
// the persisted session, the terminal equivalent of browser local storage.
package storage

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Storage drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Provider is the interface for local storage operations.
type Provider interface {
	// Get returns the value stored under key, or apperr.ErrNotFound.
	Get(key string) ([]byte, error)
	// Set durably stores value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
	// Path is the on-disk location watched for external changes.
	Path() string
	// Close releases any held resources.
	Close() error
}

// Open returns the Provider for driver rooted at path.
func Open(driver, path string) (Provider, error) {
	if err := validation.Validate(driver, validation.Required, validation.In(DriverFile, DriverSQLite)); err != nil {
		return nil, fmt.Errorf("storage: driver %q: %w", driver, err)
	}
	switch driver {
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return NewFS(path)
	}
}

func validateKey(key string) error {
	return validation.Validate(key,
		validation.Required,
		validation.Length(1, 128),
		validation.Match(keyRe),
	)
}
