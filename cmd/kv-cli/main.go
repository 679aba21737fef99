package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/heysubinoy/pyazgate/pkg/client"
	"github.com/spf13/cobra"
)

func main() {
	var (
		addr    string
		timeout time.Duration
		c       *client.Client
	)

	defaultAddr := os.Getenv("GATEWAY_ADDR")
	if defaultAddr == "" {
		defaultAddr = "http://127.0.0.1:8000"
	}

	rootCmd := &cobra.Command{
		Use:           "kv-cli",
		Short:         "Command-line client for the pyazgate HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c = client.New(addr)
		},
	}
	rootCmd.PersistentFlags().StringVar(&addr, "addr", defaultAddr, "gateway base URL (env GATEWAY_ADDR)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")

	withTimeout := func(cmd *cobra.Command) (context.Context, context.CancelFunc) {
		return context.WithTimeout(cmd.Context(), timeout)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			value, err := c.Get(ctx, args[0])
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("key %q not found", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store value under key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			msg, err := c.Set(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "get-all",
		Short: "Print every key and value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			all, err := c.GetAll(ctx)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", k, all[k])
			}
			return nil
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
