// Package storage provides the durable key/value slots the storefront persists visitor state into.
// A slot is the server-side counterpart of a browser's origin-scoped local storage: one value per
// key, rewritten wholesale on every write.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Well-known slot keys.
const (
	KeyCart         = "cart"
	KeyProfileName  = "profileName"
	KeyProfileEmail = "profileEmail"
)

// Drivers accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// Slot is a durable key/value store scoped to one visitor.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Backend is a Slot shared by all visitors; Scope partitions it.
type Backend interface {
	Slot
	io.Closer
}

// Open constructs the backend selected by driver. path is a directory for the file driver and a
// database file for sqlite; it is ignored by the memory driver.
func Open(ctx context.Context, driver, path string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverFile, "":
		return NewFileBackend(path)
	case DriverSQLite:
		return OpenSQLite(ctx, path)
	case DriverMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}

// Scope returns a Slot whose keys are namespaced under scope within backend.
func Scope(backend Slot, scope string) Slot {
	return scopedSlot{backend: backend, prefix: strings.TrimSpace(scope) + "/"}
}

type scopedSlot struct {
	backend Slot
	prefix  string
}

func (s scopedSlot) Get(ctx context.Context, key string) ([]byte, error) {
	return s.backend.Get(ctx, s.prefix+key)
}

func (s scopedSlot) Put(ctx context.Context, key string, value []byte) error {
	return s.backend.Put(ctx, s.prefix+key, value)
}

func (s scopedSlot) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, s.prefix+key)
}
