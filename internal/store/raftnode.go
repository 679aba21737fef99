package store

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	log "github.com/sirupsen/logrus"
)

// RaftOptions configures an embedded Raft node.
type RaftOptions struct {
	NodeID   string
	BindAddr string
	DataDir  string
	// Bootstrap makes this node the single voter of a new cluster when it
	// has no existing state.
	Bootstrap bool
}

// OpenRaft starts a Raft node persisting its log in a BoltDB file under
// opts.DataDir and returns a store replicating writes through it.
func OpenRaft(opts RaftOptions) (*RaftStore, error) {
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating raft data dir: %w", err)
	}
	logOutput := log.StandardLogger().WriterLevel(log.DebugLevel)

	addr, err := net.ResolveTCPAddr("tcp", opts.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("resolving raft address: %w", err)
	}
	trans, err := raft.NewTCPTransport(opts.BindAddr, addr, 3, 10*time.Second, logOutput)
	if err != nil {
		return nil, fmt.Errorf("creating raft transport: %w", err)
	}
	snaps, err := raft.NewFileSnapshotStore(opts.DataDir, 2, logOutput)
	if err != nil {
		trans.Close()
		return nil, fmt.Errorf("creating snapshot store: %w", err)
	}
	bolt, err := raftboltdb.NewBoltStore(filepath.Join(opts.DataDir, "raft.db"))
	if err != nil {
		trans.Close()
		return nil, fmt.Errorf("opening raft log: %w", err)
	}

	conf := raft.DefaultConfig()
	conf.LocalID = raft.ServerID(opts.NodeID)
	conf.LogOutput = logOutput

	mem := NewMemStore()
	r, err := startRaft(conf, mem, bolt, bolt, snaps, trans, opts.Bootstrap)
	if err != nil {
		bolt.Close()
		trans.Close()
		return nil, err
	}

	rs := NewRaftStore(mem, r)
	rs.closers = []io.Closer{bolt, trans, logOutput}
	return rs, nil
}

func startRaft(conf *raft.Config, mem *MemStore, logs raft.LogStore, stable raft.StableStore, snaps raft.SnapshotStore, trans raft.Transport, bootstrap bool) (*raft.Raft, error) {
	r, err := raft.NewRaft(conf, FSM(mem), logs, stable, snaps, trans)
	if err != nil {
		return nil, fmt.Errorf("starting raft: %w", err)
	}
	if !bootstrap {
		return r, nil
	}

	hasState, err := raft.HasExistingState(logs, stable, snaps)
	if err != nil {
		r.Shutdown()
		return nil, fmt.Errorf("checking raft state: %w", err)
	}
	if hasState {
		log.WithField("node", conf.LocalID).Info("existing raft state found, skipping bootstrap")
		return r, nil
	}

	cluster := raft.Configuration{
		Servers: []raft.Server{{ID: conf.LocalID, Address: trans.LocalAddr()}},
	}
	if err := r.BootstrapCluster(cluster).Error(); err != nil {
		r.Shutdown()
		return nil, fmt.Errorf("bootstrapping raft cluster: %w", err)
	}
	log.WithField("node", conf.LocalID).Info("bootstrapped single-node raft cluster")
	return r, nil
}
