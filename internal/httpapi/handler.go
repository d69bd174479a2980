// Package httpapi implements the non-core HTTP fallback surface:
// deprecated Store-backed snapshot reads, the one on-demand pod
// metrics read, and process health/observability endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clearpane/k8s-live-gateway/internal/cache"
	"github.com/clearpane/k8s-live-gateway/internal/core"
	"github.com/clearpane/k8s-live-gateway/internal/watcher"
)

// Handler mounts every HTTP fallback route onto the shared listener.
type Handler struct {
	store    *core.Store
	facade   core.KubeFacade
	cache    *cache.TTLCache
	watchers map[core.Kind]*watcher.Watcher
	sessions func() int
	cacheTTL time.Duration
}

// New returns a Handler. watchers and sessionCounter are used only by
// the health/readiness/metrics endpoints; the Store-backed reads never
// touch them.
func New(store *core.Store, facade core.KubeFacade, ttlCache *cache.TTLCache, watchers map[core.Kind]*watcher.Watcher, cacheTTL time.Duration, sessionCounter func() int) *Handler {
	return &Handler{
		store:    store,
		facade:   facade,
		cache:    ttlCache,
		watchers: watchers,
		sessions: sessionCounter,
		cacheTTL: cacheTTL,
	}
}

// Mount registers every route, matching the MountFunc shape
// internal/transport expects.
func (h *Handler) Mount(mux *http.ServeMux) error {
	mux.HandleFunc("GET /api/v1/{kind}", h.handleList)
	mux.HandleFunc("GET /api/v1/{kind}/{namespace}/{name}", h.handleGet)
	mux.HandleFunc("GET /api/v1/pods/{namespace}/{name}/metrics", h.handlePodMetrics)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /readyz", h.handleReadyz)
	mux.Handle("GET /metrics", newMetricsHandler(h.store, h.sessions, h.watcherStates))
	return nil
}

// handleList serves GET /api/v1/{kind}?namespace=. Deprecated: reads
// lag the live watch stream by definition, since they read the Store
// rather than the Kubernetes API.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	slog.Warn("deprecated HTTP fallback read used", "path", r.URL.Path)

	kind, err := core.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, err)
		return
	}

	namespace := r.URL.Query().Get("namespace")
	items := h.store.Snapshot(kind, namespace)

	writeJSON(w, http.StatusOK, map[string]any{
		"kind":      kind,
		"namespace": namespace,
		"items":     items,
	})
}

// handleGet serves GET /api/v1/{kind}/{namespace}/{name}. Cluster-scoped
// kinds (namespace) are addressed with namespace="_" in the path, since
// the identity itself carries no namespace segment.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	slog.Warn("deprecated HTTP fallback read used", "path", r.URL.Path)

	kind, err := core.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, err)
		return
	}

	namespace := r.PathValue("namespace")
	if namespace == "_" {
		namespace = ""
	}
	name := r.PathValue("name")

	for _, rec := range h.store.Snapshot(kind, namespace) {
		if rec.Name == name {
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}

	writeError(w, &core.DomainError{
		Code:    core.ErrorCodeNotFound,
		Message: fmt.Sprintf("%s/%s/%s not found", kind, namespace, name),
	})
}

// handlePodMetrics serves GET /api/v1/pods/{namespace}/{name}/metrics,
// the HTTP surface's only live Kubernetes API read, memoized through
// the TTL cache.
func (h *Handler) handlePodMetrics(w http.ResponseWriter, r *http.Request) {
	namespace := r.PathValue("namespace")
	name := r.PathValue("name")
	key := "metrics/" + namespace + "/" + name

	v, err := h.cache.GetOrCompute(r.Context(), key, h.cacheTTL, func(ctx context.Context) (any, error) {
		return h.facade.ReadPodMetrics(ctx, namespace, name)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v.(core.PodMetrics))
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports not-ready while any watcher is currently in its
// "init" list phase (including a re-list after a 410 or a backoff).
func (h *Handler) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	notReady := make([]core.Kind, 0)
	for kind, wch := range h.watchers {
		if wch.State() == "init" {
			notReady = append(notReady, kind)
		}
	}
	if len(notReady) > 0 {
		writeError(w, &core.ErrNotReady{Subsystem: fmt.Sprintf("watchers: %v", notReady)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) watcherStates() map[core.Kind]string {
	out := make(map[core.Kind]string, len(h.watchers))
	for kind, wch := range h.watchers {
		out[kind] = wch.State()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to encode http fallback response", "error", err)
	}
}
