// Package main is the entry point for the k8s-live-gateway binary: a
// read-only WebSocket gateway that mirrors a fixed set of Kubernetes
// resource kinds to connected dashboard clients.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs/automaxprocs"

	gatewaycmd "github.com/clearpane/k8s-live-gateway/internal/cmd/gateway"
	"github.com/clearpane/k8s-live-gateway/internal/config"
)

// version is injected at build time via -ldflags
// (e.g. -ldflags "-X main.version=v1.2.3").
var version = "devel"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	rootCmd := &cobra.Command{
		Use:           "k8s-live-gateway",
		Short:         "Read-only WebSocket gateway mirroring live Kubernetes resource state.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := cfg.BindFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	rootCmd.AddCommand(newServeCommand(cfg))
	rootCmd.AddCommand(newConfigCommand(cfg))
	rootCmd.AddCommand(newStoreCommand())

	return rootCmd.ExecuteContext(ctx)
}

func newServeCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Start the gateway's HTTP and WebSocket listeners",
		Example: "k8s-live-gateway serve --listen-address=:8080",
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, err := gatewaycmd.New(cfg)
			if err != nil {
				return fmt.Errorf("initialize gateway: %w", err)
			}
			return srv.Run(cmd.Context())
		},
	}
}
