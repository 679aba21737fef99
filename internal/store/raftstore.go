package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/raft"
	"github.com/heysubinoy/pyazgate/pkg/kv"
)

// RaftCommand represents a set operation to be applied via Raft.
type RaftCommand struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

const opSet = "set"

var errNoLeader = errors.New("no known leader")

// RaftStore applies writes through Raft consensus and serves reads from
// the local replica.
type RaftStore struct {
	store        *MemStore
	raft         *raft.Raft
	applyTimeout time.Duration
	closers      []io.Closer
}

var _ kv.Store = (*RaftStore)(nil)

func NewRaftStore(store *MemStore, r *raft.Raft) *RaftStore {
	return &RaftStore{store: store, raft: r, applyTimeout: 5 * time.Second}
}

// FSM returns the state machine that applies committed log entries to
// the local MemStore.
func FSM(store *MemStore) raft.FSM {
	return &fsm{store: store}
}

type fsm struct {
	store *MemStore
}

// Apply applies a Raft log entry to the local store.
func (f *fsm) Apply(log *raft.Log) interface{} {
	var cmd RaftCommand
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return err
	}
	switch cmd.Op {
	case opSet:
		return f.store.Set(context.Background(), cmd.Key, cmd.Value)
	default:
		return fmt.Errorf("unknown raft command %q", cmd.Op)
	}
}

func (f *fsm) Snapshot() (raft.FSMSnapshot, error) {
	return &snapshot{data: f.store.Snapshot()}, nil
}

func (f *fsm) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	data := make(map[string]string)
	if err := json.NewDecoder(rc).Decode(&data); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	f.store.Restore(data)
	return nil
}

type snapshot struct {
	data map[string]string
}

func (s *snapshot) Persist(sink raft.SnapshotSink) error {
	if err := json.NewEncoder(sink).Encode(s.data); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *snapshot) Release() {}

// Set submits a set command to Raft and waits for it to be applied.
// On a follower this fails with raft.ErrNotLeader.
func (rs *RaftStore) Set(ctx context.Context, key, value string) error {
	data, err := json.Marshal(RaftCommand{Op: opSet, Key: key, Value: value})
	if err != nil {
		return err
	}

	timeout := rs.applyTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return kv.Unavailable("raft apply", context.DeadlineExceeded)
		}
	}

	f := rs.raft.Apply(data, timeout)
	if err := f.Error(); err != nil {
		if errors.Is(err, raft.ErrEnqueueTimeout) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return kv.Unavailable("raft apply", err)
	}
	if err, ok := f.Response().(error); ok {
		return kv.Unavailable("raft apply", err)
	}
	return nil
}

// Get reads directly from the local store.
func (rs *RaftStore) Get(ctx context.Context, key string) (string, bool, error) {
	return rs.store.Get(ctx, key)
}

func (rs *RaftStore) Keys(ctx context.Context) ([]string, error) {
	return rs.store.Keys(ctx)
}

// Ping reports an error while the node knows of no leader.
func (rs *RaftStore) Ping(ctx context.Context) error {
	if addr, _ := rs.raft.LeaderWithID(); addr == "" {
		return kv.Unavailable("raft ping", errNoLeader)
	}
	return nil
}

// Close shuts the Raft node down and releases its log storage.
func (rs *RaftStore) Close() error {
	errs := []error{rs.raft.Shutdown().Error()}
	for _, c := range rs.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
