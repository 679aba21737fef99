package kv

import (
	"context"
	"errors"
)

// ErrUnavailable marks a failure to reach or talk to the backing store.
// Drivers wrap their transport errors with it so callers can tell an
// outage apart from a missing key.
var ErrUnavailable = errors.New("store unavailable")

// Store defines the interface for a key-value backing store.
// Implementations can be swapped out, allowing for different backends
// (e.g., Redis, a remote pyaz node, an embedded Raft-replicated store).
type Store interface {
	// Keys returns every key currently in the store's single namespace.
	// The result reflects the store at call time only.
	Keys(ctx context.Context) ([]string, error)

	// Get retrieves the value associated with the given key.
	// A missing key is reported with found == false and a nil error.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores a key-value pair, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}

// MultiGetter is implemented by stores that can read many keys in one
// round trip. Keys absent at read time are left out of the result.
type MultiGetter interface {
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
}

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Unavailable wraps err with ErrUnavailable unless it already carries it.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return &unavailableError{op: op, err: err}
}

type unavailableError struct {
	op  string
	err error
}

func (e *unavailableError) Error() string {
	return e.op + ": " + ErrUnavailable.Error() + ": " + e.err.Error()
}

func (e *unavailableError) Unwrap() []error { return []error{ErrUnavailable, e.err} }
