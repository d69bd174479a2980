package main

import (
	"fmt"
	"os"

	"github.com/aquasecurity/table"
	"github.com/spf13/cobra"

	"github.com/clearpane/k8s-live-gateway/internal/config"
)

// newConfigCommand renders the fully resolved configuration (flags,
// environment, config file, and compiled defaults merged) as a table,
// so an operator can confirm what the process actually sees before
// filing a "the gateway ignored my flag" bug report.
func newConfigCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration and exit",
		RunE: func(*cobra.Command, []string) error {
			return printResolvedConfig(cfg)
		},
	}
}

func printResolvedConfig(cfg *config.Config) error {
	t := table.New(os.Stdout)
	t.SetHeaders("Key", "Value")

	t.AddRow("listen_address", cfg.ListenAddress())
	t.AddRow("allowed_origins", fmt.Sprintf("%v", cfg.AllowedOrigins()))
	t.AddRow("kube.mode", string(cfg.KubeMode()))
	t.AddRow("kube.kubeconfig_path", cfg.KubeconfigPath())
	t.AddRow("kube.mock_fixture_dir", cfg.KubeMockFixtureDir())
	t.AddRow("default.namespace_patterns", fmt.Sprintf("%v", cfg.NamespacePatterns()))
	t.AddRow("cache.default_ttl", cfg.CacheDefaultTTL().String())
	t.AddRow("ws.ping_interval_seconds", cfg.WSPingInterval().String())
	t.AddRow("ws.max_concurrent_sessions", fmt.Sprintf("%d", cfg.WSMaxConcurrentSessions()))
	t.AddRow("ws.outgoing_queue_size", fmt.Sprintf("%d", cfg.WSOutgoingQueueSize()))
	t.AddRow("watch.list_timeout_seconds", cfg.WatchListTimeout().String())
	t.AddRow("watch.retry.initial_seconds", cfg.WatchRetryInitial().String())
	t.AddRow("watch.retry.max_seconds", cfg.WatchRetryMax().String())

	t.Render()
	return nil
}
