package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heysubinoy/pyazgate/internal/api"
	"github.com/heysubinoy/pyazgate/internal/cmdutil"
	"github.com/heysubinoy/pyazgate/internal/store"
	"github.com/heysubinoy/pyazgate/pkg/config"
	"github.com/heysubinoy/pyazgate/pkg/kvrpc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

var (
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "kv-node",
		Short:         "pyaz backing-store node serving the KV gRPC service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdutil.SetupLogging(verbose)
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.WithError(err).Fatal("kv-node failed")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	switch cfg.Backend {
	case config.BackendMemory, config.BackendRaft:
	default:
		return fmt.Errorf("kv-node serves a %s or %s store, not %q", config.BackendMemory, config.BackendRaft, cfg.Backend)
	}

	kvStore, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer kvStore.Close()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.GRPCAddr, err)
	}
	grpcServer := grpc.NewServer()
	kvrpc.RegisterKVServiceServer(grpcServer, api.NewGRPCServer(kvStore))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/stats", api.MetricsHandler(kvStore))
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.GRPCAddr).Info("gRPC server listening")
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		log.WithField("addr", cfg.MetricsAddr).Info("metrics server listening")
		return cmdutil.Serve(ctx, metricsServer, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		<-ctx.Done()
		grpcServer.GracefulStop()
		return nil
	})
	return g.Wait()
}
