package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/clearpane/k8s-live-gateway/internal/kubefacade"
)

// Config wraps a viper instance and provides typed accessors for every
// recognized configuration key.
type Config struct {
	v *viper.Viper
}

// New initializes a Config by loading values from environment
// variables, the config file, and compiled defaults (in that priority
// order; CLI flags, bound later via BindFlags, take highest priority).
// CONFIG_PATH, if set, names the config file to read in place of the
// default search locations.
func New() (*Config, error) {
	v := viper.New()

	for _, o := range Options {
		v.SetDefault(o.Key, o.Default)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/k8s-live-gateway/")
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !(errors.As(err, &notFoundErr) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// Environment variables are prefixed with GATEWAY_ and use
	// underscores in place of dots (e.g. GATEWAY_LISTEN_ADDRESS).
	v.SetEnvPrefix("GATEWAY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Config{v: v}, nil
}

// BindFlags registers CLI flags for every recognized option and binds
// them to the underlying viper keys so flag values take priority over
// file and environment sources.
func (c *Config) BindFlags(fs *pflag.FlagSet) error {
	for _, o := range Options {
		switch d := o.Default.(type) {
		case string:
			fs.String(o.Flag, d, o.Description)
		case int:
			fs.Int(o.Flag, d, o.Description)
		case bool:
			fs.Bool(o.Flag, d, o.Description)
		case []string:
			fs.StringSlice(o.Flag, d, o.Description)
		case time.Duration:
			fs.Duration(o.Flag, d, o.Description)
		default:
			return fmt.Errorf("unsupported flag type for key: %s", o.Key)
		}

		if err := c.v.BindPFlag(o.Key, fs.Lookup(o.Flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", o.Flag, err)
		}
	}
	return nil
}

// getString returns a string key's value after applying the
// ENV:NAME[:default] substitution pass.
func (c *Config) getString(key string) string {
	return resolveEnvRef(c.v.GetString(key))
}

func (c *Config) getStringSlice(key string) []string {
	raw := c.v.GetStringSlice(key)
	out := make([]string, len(raw))
	for i, s := range raw {
		out[i] = resolveEnvRef(s)
	}
	return out
}

// ListenAddress is where the HTTP/WebSocket server binds.
func (c *Config) ListenAddress() string { return c.getString(keyListenAddress) }

// AllowedOrigins is the CORS/WebSocket-upgrade origin allow-list.
func (c *Config) AllowedOrigins() []string { return c.getStringSlice(keyAllowedOrigins) }

// KubeMode selects how the Kubernetes facade is built.
func (c *Config) KubeMode() kubefacade.Mode { return kubefacade.Mode(c.getString(keyKubeMode)) }

// KubeconfigPath is used only in kubeconfig mode.
func (c *Config) KubeconfigPath() string { return c.getString(keyKubeKubeconfigPath) }

// KubeMockFixtureDir is used only in mock mode.
func (c *Config) KubeMockFixtureDir() string { return c.getString(keyKubeMockFixtureDir) }

// NamespacePatterns is the default.namespace_patterns list; an empty
// list allows every namespace.
func (c *Config) NamespacePatterns() []string { return c.getStringSlice(keyNamespacePatterns) }

// CacheDefaultTTL is the default TTL applied to on-demand cached reads.
func (c *Config) CacheDefaultTTL() time.Duration {
	return time.Duration(c.v.GetInt(keyCacheDefaultTTL)) * time.Second
}

// CacheTTLOverrides reads the cache.ttl.<key> per-key override table.
func (c *Config) CacheTTLOverrides() map[string]time.Duration {
	raw := c.v.GetStringMap(cacheTTLPrefix)
	out := make(map[string]time.Duration, len(raw))
	for k := range raw {
		out[k] = time.Duration(c.v.GetInt(cacheTTLPrefix+"."+k)) * time.Second
	}
	return out
}

// WSPingInterval is the WebSocket keepalive ping interval.
func (c *Config) WSPingInterval() time.Duration {
	return time.Duration(c.v.GetInt(keyWSPingIntervalSeconds)) * time.Second
}

// WSMaxConcurrentSessions is the global session admission cap.
func (c *Config) WSMaxConcurrentSessions() int { return c.v.GetInt(keyWSMaxConcurrentSessions) }

// WSOutgoingQueueSize is the per-session outgoing queue capacity.
func (c *Config) WSOutgoingQueueSize() int { return c.v.GetInt(keyWSOutgoingQueueSize) }

// WatchListTimeout is the server-side timeout for the watch call.
func (c *Config) WatchListTimeout() time.Duration {
	return time.Duration(c.v.GetInt(keyWatchListTimeoutSeconds)) * time.Second
}

// WatchRetryInitial is the watcher's initial backoff delay.
func (c *Config) WatchRetryInitial() time.Duration {
	return time.Duration(c.v.GetInt(keyWatchRetryInitialSecond)) * time.Second
}

// WatchRetryMax is the watcher's maximum backoff delay.
func (c *Config) WatchRetryMax() time.Duration {
	return time.Duration(c.v.GetInt(keyWatchRetryMaxSeconds)) * time.Second
}
