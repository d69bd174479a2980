// Package config provides unified configuration loading from files,
// environment variables, and CLI flags using viper and pflag.
//
// Resolution order (highest wins):
//  1. CLI flags
//  2. Environment variables (prefix GATEWAY_)
//  3. Config file (config.yaml in . or /etc/k8s-live-gateway/)
//  4. Compiled defaults
package config

// Viper keys for every recognized configuration setting.
const (
	keyListenAddress           = "listen_address"
	keyKubeMode                = "kube.mode"
	keyKubeKubeconfigPath      = "kube.kubeconfig_path"
	keyKubeMockFixtureDir      = "kube.mock_fixture_dir"
	keyNamespacePatterns       = "default.namespace_patterns"
	keyCacheDefaultTTL         = "cache.default_ttl"
	keyWSPingIntervalSeconds   = "ws.ping_interval_seconds"
	keyWSMaxConcurrentSessions = "ws.max_concurrent_sessions"
	keyWSOutgoingQueueSize     = "ws.outgoing_queue_size"
	keyWatchListTimeoutSeconds = "watch.list_timeout_seconds"
	keyWatchRetryInitialSecond = "watch.retry.initial_seconds"
	keyWatchRetryMaxSeconds    = "watch.retry.max_seconds"
	keyAllowedOrigins          = "allowed_origins"

	// cacheTTLPrefix is the prefix for the dynamic cache.ttl.<key>
	// per-key override table, read as a raw sub-map rather than a
	// fixed Option since its key set is not known at compile time.
	cacheTTLPrefix = "cache.ttl"
)
