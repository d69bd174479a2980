package gateway

import (
	"context"
	"errors"

	"github.com/clearpane/k8s-live-gateway/internal/cache"
	"github.com/clearpane/k8s-live-gateway/internal/core"
	"github.com/clearpane/k8s-live-gateway/internal/watcher"
)

// watcherListener adapts watcher.Watcher.Run to the transport.Listener
// interface so each kind's watcher participates in the same managed
// lifecycle as the HTTP server and the WebSocket manager.
type watcherListener struct {
	kind    core.Kind
	watcher *watcher.Watcher
}

func (l *watcherListener) Start(ctx context.Context) error {
	err := l.watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (l *watcherListener) Stop(_ context.Context) error {
	return nil // the watcher stops when its Start context is cancelled
}

// cacheEvictorListener adapts cache.TTLCache.StartEvictionLoop to the
// transport.Listener interface.
type cacheEvictorListener struct {
	cache *cache.TTLCache
}

func (l *cacheEvictorListener) Start(ctx context.Context) error {
	l.cache.StartEvictionLoop(ctx, cacheEvictionInterval)
	return nil
}

func (l *cacheEvictorListener) Stop(_ context.Context) error {
	return nil // the evictor stops when its Start context is cancelled
}
