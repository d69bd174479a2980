// Package gateway assembles the Kubernetes live-view gateway's
// runtime: the per-kind Watchers, the shared Store, the WebSocket
// session manager, and the HTTP fallback surface, then drives them
// all through the shared transport.Serve lifecycle.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clearpane/k8s-live-gateway/internal/cache"
	"github.com/clearpane/k8s-live-gateway/internal/config"
	"github.com/clearpane/k8s-live-gateway/internal/core"
	"github.com/clearpane/k8s-live-gateway/internal/httpapi"
	"github.com/clearpane/k8s-live-gateway/internal/kubefacade"
	"github.com/clearpane/k8s-live-gateway/internal/transport"
	"github.com/clearpane/k8s-live-gateway/internal/watcher"
	"github.com/clearpane/k8s-live-gateway/internal/wsgateway"
)

// Server owns every long-lived component of the gateway process and
// runs them together via transport.Serve.
type Server struct {
	httpSrv  *transport.Server
	wsMgr    *wsgateway.Manager
	watchers map[core.Kind]*watcher.Watcher
	cache    *cache.TTLCache
}

// New builds a Server from resolved configuration: a Kubernetes facade
// appropriate to cfg.KubeMode, one Watcher per core.Kind feeding a
// shared Store, a TTL cache for the on-demand metrics read, the
// WebSocket session manager, and the HTTP fallback handler — all
// mounted onto one transport.Server.
func New(cfg *config.Config) (*Server, error) {
	facade, err := buildFacade(cfg)
	if err != nil {
		return nil, fmt.Errorf("build kubernetes facade: %w", err)
	}

	filter, err := core.NewNamespaceFilter(cfg.NamespacePatterns())
	if err != nil {
		return nil, fmt.Errorf("compile namespace filter: %w", err)
	}

	store := core.NewStore()

	watchers := make(map[core.Kind]*watcher.Watcher, len(core.Kinds))
	for _, kind := range core.Kinds {
		watchers[kind] = watcher.New(kind, facade, store, filter, cfg.WatchRetryInitial(), cfg.WatchRetryMax(), cfg.WatchListTimeout())
	}

	ttlCache := cache.New()

	wsMgr := wsgateway.NewManager(store, cfg.AllowedOrigins(), cfg.WSMaxConcurrentSessions(), cfg.WSOutgoingQueueSize(), cfg.WSPingInterval())

	api := httpapi.New(store, facade, ttlCache, watchers, cfg.CacheDefaultTTL(), wsMgr.ActiveSessions)

	httpSrv, err := transport.NewServer(
		transport.WithAddress(cfg.ListenAddress()),
		transport.WithAllowedOrigins(cfg.AllowedOrigins()),
		transport.WithMount(mountAll(wsMgr, api)),
	)
	if err != nil {
		return nil, fmt.Errorf("build http server: %w", err)
	}

	return &Server{
		httpSrv:  httpSrv,
		wsMgr:    wsMgr,
		watchers: watchers,
		cache:    ttlCache,
	}, nil
}

// mountAll combines the WebSocket manager's and the HTTP fallback
// handler's routes onto one mux, the shape transport.WithMount expects.
func mountAll(wsMgr *wsgateway.Manager, api *httpapi.Handler) transport.MountFunc {
	return func(mux *http.ServeMux) error {
		if err := wsMgr.Mount(mux); err != nil {
			return fmt.Errorf("mount websocket gateway: %w", err)
		}
		if err := api.Mount(mux); err != nil {
			return fmt.Errorf("mount http fallback api: %w", err)
		}
		return nil
	}
}

func buildFacade(cfg *config.Config) (core.KubeFacade, error) {
	if cfg.KubeMode() == kubefacade.ModeMock {
		return kubefacade.NewMock(cfg.KubeMockFixtureDir())
	}

	restCfg, err := kubefacade.ProvideRestConfig(cfg.KubeMode(), cfg.KubeconfigPath())
	if err != nil {
		return nil, err
	}
	if err := kubefacade.VerifyGVRs(restCfg); err != nil {
		return nil, fmt.Errorf("cluster does not serve a required resource: %w", err)
	}
	return kubefacade.NewRealFacade(restCfg)
}

// Run starts every Watcher, the cache evictor, the WebSocket manager,
// and the HTTP server together, blocking until ctx is cancelled or one
// of them fails.
func (s *Server) Run(ctx context.Context) error {
	listeners := make([]transport.Listener, 0, len(s.watchers)+3)
	listeners = append(listeners, s.httpSrv, s.wsMgr)
	listeners = append(listeners, watcherListeners(s.watchers)...)
	listeners = append(listeners, &cacheEvictorListener{cache: s.cache})

	slog.Info("gateway starting", "kinds", core.Kinds)
	return transport.Serve(ctx, listeners...)
}

func watcherListeners(watchers map[core.Kind]*watcher.Watcher) []transport.Listener {
	out := make([]transport.Listener, 0, len(watchers))
	for kind, w := range watchers {
		out = append(out, &watcherListener{kind: kind, watcher: w})
	}
	return out
}

// cacheEvictionInterval is how often the metrics TTL cache sweeps
// expired entries, supplementing the mandatory lazy eviction on read.
const cacheEvictionInterval = 5 * time.Minute
