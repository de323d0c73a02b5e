// Package store implements the content-addressed blob store and the
// key-value text store used to hold signed network map artifacts, each
// available in a legacy filesystem-backed flavor and a BadgerDB-backed
// flavor sharing the same interface, so the migration orchestrator can
// copy wholesale from one to the other.
package store

import (
	cerrors "github.com/oasisprotocol/netmapd/common/errors"
)

const moduleName = "netmap/store"

// Error codes registered for this module.
var (
	// ErrNotFound is returned when a key does not exist in a store.
	ErrNotFound = cerrors.New(moduleName, 1, "store: key not found")
	// ErrStorageIO is returned when the underlying storage backend fails.
	ErrStorageIO = cerrors.New(moduleName, 2, "store: storage I/O error")
)

// BlobStore is a content-addressed store of signed, immutable byte blobs.
type BlobStore interface {
	// Put writes value under key, overwriting any previous value.
	Put(key string, value []byte) error
	// Get reads the value stored under key. Returns ErrNotFound if absent.
	Get(key string) ([]byte, error)
	// GetOrNil reads the value stored under key, returning (nil, nil) if
	// absent instead of an error.
	GetOrNil(key string) ([]byte, error)
	// Delete removes the value stored under key, if any.
	Delete(key string) error
	// GetAll returns every key/value pair currently stored.
	GetAll() (map[string][]byte, error)
	// GetKeys returns every key currently stored.
	GetKeys() ([]string, error)
}

// TextStore is a key/value store of short string values with upsert
// semantics, used for named pointers such as "current-parameters".
type TextStore interface {
	// Put sets key to value, creating or overwriting it.
	Put(key, value string) error
	// Get reads the value stored under key. Returns ErrNotFound if absent.
	Get(key string) (string, error)
	// GetOrDefault reads the value stored under key, or def if absent.
	GetOrDefault(key, def string) string
	// Delete removes the value stored under key, if any.
	Delete(key string) error
	// Clear removes every key.
	Clear() error
}
