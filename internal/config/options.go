package config

import "strings"

// Option describes a single configuration entry: its viper key, the
// corresponding CLI flag name, the compiled default, and a
// human-readable description shown in --help output.
type Option struct {
	Key         string
	Flag        string
	Default     any
	Description string
}

// Options defines every fixed-key configuration entry the gateway
// recognizes. Each entry is registered as a viper default and a CLI
// flag. The dynamic cache.ttl.<key> table has no fixed Option, since
// its key set is operator-defined (see CacheTTLOverrides).
var Options = []Option{
	{Key: keyListenAddress, Flag: toFlag(keyListenAddress), Default: ":8080", Description: "HTTP/WebSocket listen address"},
	{Key: keyAllowedOrigins, Flag: toFlag(keyAllowedOrigins), Default: []string{}, Description: "Allowed CORS/WebSocket origins"},
	{Key: keyKubeMode, Flag: toFlag(keyKubeMode), Default: "in_cluster", Description: "Kubernetes facade mode: in_cluster, kubeconfig, or mock"},
	{Key: keyKubeKubeconfigPath, Flag: toFlag(keyKubeKubeconfigPath), Default: "", Description: "Kubeconfig path, used only in kubeconfig mode"},
	{Key: keyKubeMockFixtureDir, Flag: toFlag(keyKubeMockFixtureDir), Default: "", Description: "Fixture directory, used only in mock mode"},
	{Key: keyNamespacePatterns, Flag: toFlag(keyNamespacePatterns), Default: []string{}, Description: "Regular expressions; empty means all namespaces allowed"},
	{Key: keyCacheDefaultTTL, Flag: toFlag(keyCacheDefaultTTL), Default: 30, Description: "Default TTL in seconds for on-demand cached reads"},
	{Key: keyWSPingIntervalSeconds, Flag: toFlag(keyWSPingIntervalSeconds), Default: 20, Description: "WebSocket keepalive ping interval in seconds"},
	{Key: keyWSMaxConcurrentSessions, Flag: toFlag(keyWSMaxConcurrentSessions), Default: 100, Description: "Maximum concurrent WebSocket sessions"},
	{Key: keyWSOutgoingQueueSize, Flag: toFlag(keyWSOutgoingQueueSize), Default: 256, Description: "Per-session outgoing queue capacity"},
	{Key: keyWatchListTimeoutSeconds, Flag: toFlag(keyWatchListTimeoutSeconds), Default: 300, Description: "Server-side timeout in seconds for the watch call"},
	{Key: keyWatchRetryInitialSecond, Flag: toFlag(keyWatchRetryInitialSecond), Default: 1, Description: "Initial watcher reconnect backoff in seconds"},
	{Key: keyWatchRetryMaxSeconds, Flag: toFlag(keyWatchRetryMaxSeconds), Default: 60, Description: "Maximum watcher reconnect backoff in seconds"},
}

// toFlag converts a viper key like "watch.retry.initial_seconds" into
// a CLI flag like "watch-retry-initial-seconds" by lower-casing and
// replacing dots and underscores with hyphens.
func toFlag(key string) string {
	flag := strings.ToLower(key)
	flag = strings.ReplaceAll(flag, ".", "-")
	flag = strings.ReplaceAll(flag, "_", "-")
	return flag
}
