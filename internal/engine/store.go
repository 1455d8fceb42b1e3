// Package engine holds the board store and the durable mirror behind it.
package engine

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record or board does not exist.
	ErrNotFound = errors.New("not found")
	// ErrQuotaExceeded is returned by a backend that refuses a write over its size limit.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrInvalidKey is returned for record keys that cannot be stored.
	ErrInvalidKey = errors.New("invalid record key")
)

// Record keys, one durable record per key.
const (
	KeyUser       = "user"
	KeyBoards     = "boards"
	KeyLanguage   = "language"
	KeyCredential = "credential"
)

// Backend is the durable key/value mirror. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Read returns the stored bytes or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)
	// Write replaces the value stored under key.
	Write(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
