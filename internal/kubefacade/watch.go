package kubefacade

import (
	"log/slog"
	"runtime/debug"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

// watchAdapter bridges a client-go watch.Interface to core.RawWatch,
// converting watch.Event values into core.RawEvent with plain
// map[string]any payloads so nothing above this package ever imports
// k8s.io/apimachinery's watch types.
type watchAdapter struct {
	inner watch.Interface
	ch    chan core.RawEvent
}

func newWatchAdapter(inner watch.Interface) *watchAdapter {
	w := &watchAdapter{
		inner: inner,
		ch:    make(chan core.RawEvent),
	}
	go w.relay()
	return w
}

func (w *watchAdapter) ResultChan() <-chan core.RawEvent {
	return w.ch
}

func (w *watchAdapter) Stop() {
	w.inner.Stop()
}

// relay reads from the Kubernetes watch channel and converts events
// to RawEvents, closing the output channel when the upstream channel
// closes. A panic in the conversion path is recovered and logged so a
// malformed event cannot silently wedge the watcher goroutine.
func (w *watchAdapter) relay() {
	defer close(w.ch)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("watch relay panic recovered",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	for event := range w.inner.ResultChan() {
		raw := core.RawEvent{Type: toRawEventType(event.Type)}

		switch obj := event.Object.(type) {
		case *unstructured.Unstructured:
			raw.Object = obj.Object
		}

		w.ch <- raw
	}
}

func toRawEventType(t watch.EventType) core.RawEventType {
	switch t {
	case watch.Added:
		return core.RawAdded
	case watch.Modified:
		return core.RawModified
	case watch.Deleted:
		return core.RawDeleted
	case watch.Bookmark:
		return core.RawBookmark
	default:
		return core.RawError
	}
}
