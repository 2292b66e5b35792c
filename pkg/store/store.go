package store

// Package store provides the persistent key-value layer backing conversation
// storage. Values are JSON-encoded; the store tracks bytes in use against a
// fixed quota so that callers can implement capacity-pressure policies.

import (
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a key is absent from the store.
var ErrNotFound = errors.New("key not found")

// ErrCorrupt is returned when a stored value cannot be decoded. Callers treat
// corrupt records like missing ones: drop and recreate rather than crash.
var ErrCorrupt = errors.New("corrupt record")

// DefaultQuota mirrors the 10 MB local-storage quota of the environment the
// conversation data originally lived in.
const DefaultQuota int64 = 10 * 1024 * 1024

// Store is a typed key-value store with JSON-encoded values and a byte quota.
//
// Get decodes the stored value into out and returns ErrNotFound when the key
// is absent. Set encodes and stores the value. Individual operations are
// serialized by the implementation, but no cross-operation transaction is
// provided: read-modify-write sequences from two concurrent owners can lose
// updates.
type Store interface {
	Get(key string, out interface{}) error
	Set(key string, value interface{}) error
	Delete(key string) error
	Keys() ([]string, error)
	BytesInUse() (int64, error)
	Quota() int64
}
