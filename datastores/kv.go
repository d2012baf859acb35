package datastores

import (
	"context"
	"errors"
)

// Item is a flat document stored under a single key.
type Item = map[string]string

// KV is the contract consumed from the remote document store.
type KV interface {
	// Put stores item under key, replacing any previous document.
	Put(ctx context.Context, key string, item Item) error
	// Get returns the document under key or [ErrObjectNotFound].
	Get(ctx context.Context, key string) (Item, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Scan returns every document except the one stored under skip.
	Scan(ctx context.Context, skip string) ([]Item, error)
	// Add atomically adds delta to the numeric attribute attr of key,
	// creating both when missing, and returns the resulting value.
	Add(ctx context.Context, key, attr string, delta int64) (int64, error)
}

// Pinger is implemented by backends able to check their connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	ErrObjectNotFound     = errors.New("store: object not found")
	ErrStorageUnavailable = errors.New("store: storage unavailable")
)

// UnavailableError reports a failed call to the remote store.
// It matches [ErrStorageUnavailable] with [errors.Is].
type UnavailableError struct {
	Op  string
	Err error
}

func unavailable(op string, err error) error { return &UnavailableError{Op: op, Err: err} }

func (e *UnavailableError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrStorageUnavailable }
