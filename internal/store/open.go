package store

import (
	"fmt"

	"github.com/heysubinoy/pyazgate/pkg/config"
	log "github.com/sirupsen/logrus"
)

// Open builds the backing store selected by cfg.Backend, wrapped with
// instrumentation. The caller owns the returned store and must Close it.
func Open(cfg *config.Config) (*InstrumentedStore, error) {
	logger := log.WithField("backend", cfg.Backend)

	switch cfg.Backend {
	case config.BackendRedis:
		logger.WithFields(log.Fields{"addr": cfg.RedisAddr, "db": cfg.RedisDB}).Info("using redis store")
		return NewInstrumentedStore(NewRedisStore(RedisOptions{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			PoolSize:    cfg.RedisPoolSize,
			ScanCount:   cfg.ScanCount,
			DialTimeout: cfg.DialTimeout,
			IOTimeout:   cfg.RequestTimeout,
		}), cfg.Backend), nil

	case config.BackendPyaz:
		logger.WithField("addr", cfg.PyazAddr).Info("using pyaz node store")
		s, err := DialPyaz(cfg.PyazAddr)
		if err != nil {
			return nil, err
		}
		return NewInstrumentedStore(s, cfg.Backend), nil

	case config.BackendRaft:
		logger.WithFields(log.Fields{"node": cfg.NodeID, "addr": cfg.RaftAddr, "data": cfg.RaftData}).Info("using embedded raft store")
		s, err := OpenRaft(RaftOptions{
			NodeID:    cfg.NodeID,
			BindAddr:  cfg.RaftAddr,
			DataDir:   cfg.RaftData,
			Bootstrap: cfg.RaftBootstrap,
		})
		if err != nil {
			return nil, err
		}
		return NewInstrumentedStore(s, cfg.Backend), nil

	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		return NewInstrumentedStore(NewMemStore(), cfg.Backend), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
