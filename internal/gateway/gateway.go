// Package gateway adapts a kv.Store to the operations of the HTTP façade
// and classifies every store outcome as OK, Absent or Unavailable.
package gateway

import (
	"context"
	"time"

	"github.com/heysubinoy/pyazgate/pkg/kv"
	log "github.com/sirupsen/logrus"
)

// Outcome classifies the result of a store operation.
type Outcome int

const (
	// OK means the operation succeeded.
	OK Outcome = iota
	// Absent means the key did not exist at read time.
	Absent
	// Unavailable means the backing store could not be reached or failed.
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Absent:
		return "absent"
	case Unavailable:
		return "unavailable"
	}
	return "unknown"
}

// Result is the outcome of a single-key operation. Value is set only when
// Outcome is OK and the operation was a read. Err is set only when Outcome
// is Unavailable.
type Result struct {
	Outcome Outcome
	Value   string
	Err     error
}

// Snapshot is the outcome of listing the whole store. Entries is never
// nil when Outcome is OK.
type Snapshot struct {
	Outcome Outcome
	Entries map[string]string
	Err     error
}

// Adapter executes façade operations against a store. Each call is a
// single attempt: failures are returned, never retried.
type Adapter struct {
	store   kv.Store
	timeout time.Duration
}

// New returns an adapter over store. A positive timeout bounds every
// operation in addition to the caller's context.
func New(store kv.Store, timeout time.Duration) *Adapter {
	return &Adapter{store: store, timeout: timeout}
}

func (a *Adapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// Read returns the value stored under key, or Absent.
func (a *Adapter) Read(ctx context.Context, key string) Result {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	value, found, err := a.store.Get(ctx, key)
	switch {
	case err != nil:
		return unavailable("get", key, err)
	case !found:
		log.WithField("key", key).Debug("key not found")
		return Result{Outcome: Absent}
	}
	return Result{Outcome: OK, Value: value}
}

// Write unconditionally stores value under key.
func (a *Adapter) Write(ctx context.Context, key, value string) Result {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.store.Set(ctx, key, value); err != nil {
		return unavailable("set", key, err)
	}
	return Result{Outcome: OK}
}

// List enumerates the keys and then reads their values. The two steps are
// separate store operations, so the snapshot is not atomic: a key removed
// between them is left out, and a key added after enumeration is missed.
func (a *Adapter) List(ctx context.Context) Snapshot {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	keys, err := a.store.Keys(ctx)
	if err != nil {
		return Snapshot{Outcome: Unavailable, Err: unavailable("keys", "", err).Err}
	}

	entries, err := a.readAll(ctx, keys)
	if err != nil {
		return Snapshot{Outcome: Unavailable, Err: unavailable("get-all", "", err).Err}
	}
	if missing := len(keys) - len(entries); missing > 0 {
		log.WithField("missing", missing).Debug("keys vanished during listing")
	}
	return Snapshot{Outcome: OK, Entries: entries}
}

func (a *Adapter) readAll(ctx context.Context, keys []string) (map[string]string, error) {
	if mg, ok := a.store.(kv.MultiGetter); ok {
		entries, err := mg.GetMany(ctx, keys)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = map[string]string{}
		}
		return entries, nil
	}

	entries := make(map[string]string, len(keys))
	for _, k := range keys {
		value, found, err := a.store.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if found {
			entries[k] = value
		}
	}
	return entries, nil
}

// Ping checks that the store is reachable. Stores that cannot report
// their health are assumed healthy.
func (a *Adapter) Ping(ctx context.Context) error {
	p, ok := a.store.(kv.Pinger)
	if !ok {
		return nil
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	return kv.Unavailable("ping", p.Ping(ctx))
}

func unavailable(op, key string, err error) Result {
	err = kv.Unavailable(op, err)
	entry := log.WithError(err).WithField("op", op)
	if key != "" {
		entry = entry.WithField("key", key)
	}
	entry.Warn("store operation failed")
	return Result{Outcome: Unavailable, Err: err}
}
