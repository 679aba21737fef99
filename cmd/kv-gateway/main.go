package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heysubinoy/pyazgate/internal/api"
	"github.com/heysubinoy/pyazgate/internal/cmdutil"
	"github.com/heysubinoy/pyazgate/internal/gateway"
	"github.com/heysubinoy/pyazgate/internal/store"
	"github.com/heysubinoy/pyazgate/pkg/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "kv-gateway",
		Short:         "HTTP key-value gateway in front of a Redis or pyaz backing store",
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
		log.WithError(err).Fatal("kv-gateway failed")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	kvStore, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer kvStore.Close()

	srv := api.NewServer(gateway.New(kvStore, cfg.RequestTimeout), kvStore)
	srv.RequestLogging = cfg.RequestLogging

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
	return cmdutil.Serve(ctx, httpServer, cfg.ShutdownTimeout)
}
