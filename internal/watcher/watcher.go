// Package watcher implements the per-kind Watcher state machine: list
// then watch, normalize and filter events, feed the Store through a
// bounded dispatcher channel, and recover from every transport and
// versioning fault without external intervention.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/clearpane/k8s-live-gateway/internal/core"
	"github.com/clearpane/k8s-live-gateway/internal/kubefacade"
)

// defaultDispatchQueueCapacity bounds the channel between the watch
// stream reader and the dispatcher goroutine, isolating the blocking
// stream read from the Store.
const defaultDispatchQueueCapacity = 256

// errGone signals a 410 Gone response: the resume cursor has expired
// out of the API server's compaction window and a full re-list is
// required.
var errGone = errors.New("resource version too old (410 gone)")

// Watcher runs the list-then-watch lifecycle for a single core.Kind.
// One Watcher per kind runs for the lifetime of the process, supervised
// as a transport.Listener (see internal/cmd/gateway).
type Watcher struct {
	kind   core.Kind
	facade core.KubeFacade
	store  *core.Store
	filter *core.NamespaceFilter

	retryInitial time.Duration
	retryMax     time.Duration
	listTimeout  time.Duration
	queueCap     int

	log *slog.Logger

	mu     sync.Mutex
	cursor string

	state atomic.Value // string: "init", "watch", or "backoff"
}

// State reports the Watcher's current FSM state ("init", "watch", or
// "backoff"), exposed for the /readyz and /metrics surfaces.
func (w *Watcher) State() string {
	if v, ok := w.state.Load().(string); ok {
		return v
	}
	return "init"
}

func (w *Watcher) setState(s string) { w.state.Store(s) }

// Option configures a Watcher at construction time.
type Option func(*Watcher)

// WithQueueCapacity overrides the dispatcher channel's capacity.
func WithQueueCapacity(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.queueCap = n
		}
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(w *Watcher) { w.log = log }
}

// New builds a Watcher for kind. retryInitial/retryMax are the
// backoff bounds from watch.retry.initial_seconds/watch.retry.max_seconds.
// listTimeout is the watch.list_timeout_seconds server-side watch
// timeout (see Watch on core.KubeFacade).
func New(kind core.Kind, facade core.KubeFacade, store *core.Store, filter *core.NamespaceFilter, retryInitial, retryMax, listTimeout time.Duration, opts ...Option) *Watcher {
	w := &Watcher{
		kind:         kind,
		facade:       facade,
		store:        store,
		filter:       filter,
		retryInitial: retryInitial,
		retryMax:     retryMax,
		listTimeout:  listTimeout,
		queueCap:     defaultDispatchQueueCapacity,
		log:          slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// dispatchItem is one normalized event travelling from the stream
// reader to the dispatcher goroutine.
type dispatchItem struct {
	eventType       core.WatchEventType
	record          *core.Record
	resourceVersion string
}

// Run drives the INIT/WATCH/BACKOFF state machine until ctx is
// cancelled, implementing a transport.Listener-compatible lifecycle: it
// blocks until cancellation and returns ctx.Err() on graceful
// shutdown. It never returns nil while ctx is live — every fault is
// recoverable internally.
func (w *Watcher) Run(ctx context.Context) error {
	queue := make(chan dispatchItem, w.queueCap)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		w.dispatch(queue)
	}()
	defer func() {
		close(queue)
		<-dispatcherDone
	}()

	bo := newBackoff(w.retryInitial, w.retryMax)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.setState("init")
		if err := w.syncList(ctx, queue); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error("list failed, backing off", "kind", w.kind, "error", err)
			w.setState("backoff")
			if !w.sleep(ctx, bo.Next()) {
				return ctx.Err()
			}
			continue
		}
		bo.Reset()

		w.setState("watch")
		err := w.watchLoop(ctx, queue)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch {
		case errors.Is(err, errGone):
			w.log.Info("resume cursor expired, re-listing", "kind", w.kind)
			w.setCursor("")
			continue
		case err != nil:
			w.log.Warn("watch stream faulted, backing off", "kind", w.kind, "error", err)
		default:
			w.log.Warn("watch stream closed, backing off", "kind", w.kind)
		}
		w.setState("backoff")
		if !w.sleep(ctx, bo.Next()) {
			return ctx.Err()
		}
	}
}

// sleep blocks for d or until ctx is cancelled, returning false in the
// latter case.
func (w *Watcher) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// syncList implements the INIT state: full list, emit every item as
// INITIAL, synthesize DELETEs for keys the Store holds that the new
// list no longer reports (the mandatory re-list reconciliation, S3 /
// invariant 5), then capture the resume cursor.
func (w *Watcher) syncList(ctx context.Context, queue chan<- dispatchItem) error {
	result, err := w.facade.List(ctx, w.kind)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(result.Items))
	for _, item := range result.Items {
		record := kubefacade.Normalize(w.kind, item)
		if !w.filter.Allows(w.kind, record.Namespace, record.Name) {
			continue
		}
		seen[record.Identity.Key()] = struct{}{}
		if !w.enqueue(ctx, queue, dispatchItem{eventType: core.WatchEventInitial, record: record}) {
			return ctx.Err()
		}
	}

	for _, existing := range w.store.Snapshot(w.kind, "") {
		if _, ok := seen[existing.Identity.Key()]; ok {
			continue
		}
		if !w.enqueue(ctx, queue, dispatchItem{eventType: core.WatchEventDeleted, record: existing}) {
			return ctx.Err()
		}
	}

	w.setCursor(result.ResourceVersion)
	return nil
}

// watchLoop implements the WATCH state: read the facade's watch
// stream and forward normalized, filtered events to the dispatcher.
// Returns errGone on a 410 response, nil on a clean stream close, or
// a wrapping error for any other transient fault.
func (w *Watcher) watchLoop(ctx context.Context, queue chan<- dispatchItem) error {
	rw, err := w.facade.Watch(ctx, w.kind, w.getCursor(), false, w.listTimeout)
	if err != nil {
		return err
	}
	defer rw.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-rw.ResultChan():
			if !ok {
				return nil
			}

			switch raw.Type {
			case core.RawBookmark:
				if rv := extractResourceVersion(raw.Object); rv != "" {
					w.setCursor(rv)
				}
			case core.RawError:
				if isGoneStatus(raw.Object) {
					return errGone
				}
				return fmt.Errorf("watch error event: %v", raw.Object)
			default:
				record := kubefacade.Normalize(w.kind, raw.Object)
				if !w.filter.Allows(w.kind, record.Namespace, record.Name) {
					continue
				}
				item := dispatchItem{
					eventType:       fromRawEventType(raw.Type),
					record:          record,
					resourceVersion: record.ResourceVersion,
				}
				if !w.enqueue(ctx, queue, item) {
					return nil
				}
			}
		}
	}
}

// enqueue performs a cancellation-aware blocking send. Unlike the
// Store's per-subscription queue, this internal channel is allowed to
// apply backpressure onto the stream reader: there is exactly one
// dispatcher drain loop per watcher and no slow-consumer policy to
// honor here.
func (w *Watcher) enqueue(ctx context.Context, queue chan<- dispatchItem, item dispatchItem) bool {
	select {
	case queue <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

// dispatch drains the queue and applies every item to the Store,
// advancing the resume cursor only after the corresponding record has
// actually reached the Store.
func (w *Watcher) dispatch(queue <-chan dispatchItem) {
	for item := range queue {
		w.store.Apply(item.eventType, w.kind, item.record)
		if item.resourceVersion != "" {
			w.setCursor(item.resourceVersion)
		}
	}
}

func (w *Watcher) getCursor() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cursor
}

func (w *Watcher) setCursor(v string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cursor = v
}

func fromRawEventType(t core.RawEventType) core.WatchEventType {
	switch t {
	case core.RawAdded:
		return core.WatchEventAdded
	case core.RawModified:
		return core.WatchEventModified
	case core.RawDeleted:
		return core.WatchEventDeleted
	default:
		return core.WatchEventModified
	}
}

func extractResourceVersion(obj map[string]any) string {
	rv, _, _ := unstructured.NestedString(obj, "metadata", "resourceVersion")
	return rv
}

// isGoneStatus inspects a watch ERROR event's object (a serialized
// metav1.Status) for the 410/Expired signal.
func isGoneStatus(obj map[string]any) bool {
	if reason, _, _ := unstructured.NestedString(obj, "reason"); reason == "Expired" {
		return true
	}
	code, found, _ := unstructured.NestedInt64(obj, "code")
	return found && code == 410
}
