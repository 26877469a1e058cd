// Package sysconfig stores named system configuration values.
//
// Values are opaque strings; callers such as the retention policy encode
// their own structure (JSON) into them. Each key holds exactly one value and
// writes are upserts.
package sysconfig

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when no value is stored for a key.
var ErrNotFound = errors.New("config entry not found")

// Entry is a single stored configuration value.
type Entry struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store reads and writes configuration entries.
type Store interface {
	// Get returns the entry for key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set creates or replaces the value for key.
	Set(ctx context.Context, key, value, description string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all entries ordered by key.
	List(ctx context.Context) ([]*Entry, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// StoreError reports a backend failure.
type StoreError struct {
	Backend   string
	Operation string
	Key       string
	Cause     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config store error [backend=%s, operation=%s, key=%s]: %v", e.Backend, e.Operation, e.Key, e.Cause)
	}
	return fmt.Sprintf("config store error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

func newStoreError(backend, operation, key string, cause error) *StoreError {
	return &StoreError{Backend: backend, Operation: operation, Key: key, Cause: cause}
}
