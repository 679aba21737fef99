package store

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/heysubinoy/pyazgate/pkg/kv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pyazgate",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Backing store operations by backend, operation and outcome.",
	}, []string{"backend", "op", "outcome"})

	storeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pyazgate",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Latency of backing store operations.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"backend", "op"})
)

// Metrics holds timing statistics for store operations.
// Uses atomic operations for thread-safe updates without locks.
type Metrics struct {
	KeysCount atomic.Uint64
	GetCount  atomic.Uint64
	SetCount  atomic.Uint64
	Errors    atomic.Uint64

	// Cumulative latencies in nanoseconds
	KeysLatencyNs atomic.Uint64
	GetLatencyNs  atomic.Uint64
	SetLatencyNs  atomic.Uint64
}

// InstrumentedStore wraps any kv.Store implementation with timing metrics.
// Optional capabilities of the wrapped store (MultiGetter, Pinger,
// io.Closer) are passed through.
type InstrumentedStore struct {
	store   kv.Store
	backend string
	metrics *Metrics
}

var (
	_ kv.Store       = (*InstrumentedStore)(nil)
	_ kv.MultiGetter = (*InstrumentedStore)(nil)
	_ kv.Pinger      = (*InstrumentedStore)(nil)
)

// NewInstrumentedStore wraps a store with instrumentation. backend labels
// the exported Prometheus series.
func NewInstrumentedStore(store kv.Store, backend string) *InstrumentedStore {
	return &InstrumentedStore{
		store:   store,
		backend: backend,
		metrics: &Metrics{},
	}
}

func (s *InstrumentedStore) record(op string, start time.Time, count, latency *atomic.Uint64, err error) {
	elapsed := time.Since(start)

	count.Add(1)
	latency.Add(uint64(elapsed.Nanoseconds()))

	outcome := "ok"
	if err != nil {
		outcome = "error"
		s.metrics.Errors.Add(1)
	}
	storeOps.WithLabelValues(s.backend, op, outcome).Inc()
	storeLatency.WithLabelValues(s.backend, op).Observe(elapsed.Seconds())
}

// Keys delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := s.store.Keys(ctx)
	s.record("keys", start, &s.metrics.KeysCount, &s.metrics.KeysLatencyNs, err)
	return keys, err
}

// Get delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, found, err := s.store.Get(ctx, key)
	s.record("get", start, &s.metrics.GetCount, &s.metrics.GetLatencyNs, err)
	return value, found, err
}

// Set delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.store.Set(ctx, key, value)
	s.record("set", start, &s.metrics.SetCount, &s.metrics.SetLatencyNs, err)
	return err
}

// GetMany uses the wrapped store's bulk read when it has one, and falls
// back to one Get per key otherwise. Bulk reads count as a single get.
func (s *InstrumentedStore) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	mg, ok := s.store.(kv.MultiGetter)
	if !ok {
		result := make(map[string]string, len(keys))
		for _, k := range keys {
			value, found, err := s.Get(ctx, k)
			if err != nil {
				return nil, err
			}
			if found {
				result[k] = value
			}
		}
		return result, nil
	}

	start := time.Now()
	result, err := mg.GetMany(ctx, keys)
	s.record("get_many", start, &s.metrics.GetCount, &s.metrics.GetLatencyNs, err)
	return result, err
}

// Ping delegates when the wrapped store supports it.
func (s *InstrumentedStore) Ping(ctx context.Context) error {
	if p, ok := s.store.(kv.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the wrapped store when it holds resources.
func (s *InstrumentedStore) Close() error {
	if c, ok := s.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// GetMetrics returns a snapshot of current metrics.
func (s *InstrumentedStore) GetMetrics() MetricsSnapshot {
	keysCount := s.metrics.KeysCount.Load()
	getCount := s.metrics.GetCount.Load()
	setCount := s.metrics.SetCount.Load()

	return MetricsSnapshot{
		Backend:        s.backend,
		KeysCount:      keysCount,
		GetCount:       getCount,
		SetCount:       setCount,
		ErrorCount:     s.metrics.Errors.Load(),
		KeysAvgLatency: s.avgLatency(s.metrics.KeysLatencyNs.Load(), keysCount),
		GetAvgLatency:  s.avgLatency(s.metrics.GetLatencyNs.Load(), getCount),
		SetAvgLatency:  s.avgLatency(s.metrics.SetLatencyNs.Load(), setCount),
	}
}

// ResetMetrics clears all metrics counters.
func (s *InstrumentedStore) ResetMetrics() {
	s.metrics.KeysCount.Store(0)
	s.metrics.GetCount.Store(0)
	s.metrics.SetCount.Store(0)
	s.metrics.Errors.Store(0)
	s.metrics.KeysLatencyNs.Store(0)
	s.metrics.GetLatencyNs.Store(0)
	s.metrics.SetLatencyNs.Store(0)
}

func (s *InstrumentedStore) avgLatency(totalNs, count uint64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(totalNs / count)
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Backend        string
	KeysCount      uint64
	GetCount       uint64
	SetCount       uint64
	ErrorCount     uint64
	KeysAvgLatency time.Duration
	GetAvgLatency  time.Duration
	SetAvgLatency  time.Duration
}
