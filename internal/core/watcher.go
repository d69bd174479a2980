package core

import (
	"context"
	"time"
)

// ADR: a closed Kind set instead of a generic GVR-keyed facade
//
// This gateway watches exactly four kinds chosen at design time, so
// the facade below is typed per Kind rather than parameterized over an
// open, discovery-driven schema.GroupVersionResource set — there is no
// discovery/schema resolution step on the hot path (VerifyGVRs still
// uses discovery once, at startup, to fail fast). This decision should
// be revisited if the resource set this gateway watches ever needs to
// be operator-configurable rather than fixed.

// WatchEventType represents the type of a resource watch event,
// decoupling the core layer from k8s.io/apimachinery's
// watch.EventType. INITIAL is synthesized by the Watcher's list
// phase and by the WebSocket session's snapshot replay; it never appears on the
// wire from the Kubernetes API itself.
type WatchEventType string

const (
	WatchEventInitial  WatchEventType = "INITIAL"
	WatchEventAdded    WatchEventType = "ADDED"
	WatchEventModified WatchEventType = "MODIFIED"
	WatchEventDeleted  WatchEventType = "DELETED"
	WatchEventBookmark WatchEventType = "BOOKMARK"
	WatchEventError    WatchEventType = "ERROR"
)

// WatchEvent is a single normalized event flowing from a Watcher to
// the Store. Record is nil for BOOKMARK and ERROR events.
type WatchEvent struct {
	Type   WatchEventType
	Kind   Kind
	Record *Record
}

// RawEventType is the event type reported by the Kubernetes facade,
// before normalization. It is a narrower enum than WatchEventType
// because the facade never produces INITIAL — that tag is added by
// the Watcher's own list phase.
type RawEventType string

const (
	RawAdded    RawEventType = "ADDED"
	RawModified RawEventType = "MODIFIED"
	RawDeleted  RawEventType = "DELETED"
	RawBookmark RawEventType = "BOOKMARK"
	RawError    RawEventType = "ERROR"
)

// RawEvent is a single event from the Kubernetes facade's watch
// stream, before normalization into a Record.
type RawEvent struct {
	Type   RawEventType
	Object map[string]any
}

// RawWatch provides a channel of RawEvents and a way to stop the
// underlying watch. Implementations adapt a concrete Kubernetes
// client (or a mock fixture feed) to this shape; the Watcher FSM in
// internal/watcher only ever depends on this interface.
type RawWatch interface {
	// ResultChan returns a channel that receives watch events. The
	// channel is closed when the watch ends or Stop is called.
	ResultChan() <-chan RawEvent
	// Stop terminates the watch and closes the result channel.
	Stop()
}

// KubeFacade is the Kubernetes-facing boundary the Watcher FSM is
// built against: list/watch/read_metrics, with two concrete
// implementations — a real client-go backend and a fixture-backed
// mock. ListResult.ResourceVersion is the resume cursor the Watcher
// carries into the following Watch call.
type KubeFacade interface {
	List(ctx context.Context, kind Kind) (ListResult, error)
	// Watch opens a watch stream resuming from resourceVersion.
	// listTimeout, when non-zero, is passed to the API server as the
	// watch call's server-side timeout_seconds: the stream
	// self-terminates if the connection is silently dropped. The
	// Watcher then backs off, re-lists, and opens a new watch from the
	// fresh list's resource version; it does not resume from the
	// previous stream's cursor.
	Watch(ctx context.Context, kind Kind, resourceVersion string, sendInitialEvents bool, listTimeout time.Duration) (RawWatch, error)
	ReadPodMetrics(ctx context.Context, namespace, name string) (PodMetrics, error)
}

// ListResult is the outcome of a facade List call: the current items
// plus the resource_version to resume watching from.
type ListResult struct {
	Items           []map[string]any
	ResourceVersion string
}

// PodMetrics is the normalized shape of an on-demand metrics.k8s.io
// read, the one live API call outside the watch pipeline (spec §4.1
// Supplement, restoring the original's metrics path).
type PodMetrics struct {
	CPUMillis   int64
	MemoryBytes int64
	Containers  []ContainerMetrics
}

// ContainerMetrics is the per-container breakdown within PodMetrics.
type ContainerMetrics struct {
	Name        string
	CPUMillis   int64
	MemoryBytes int64
}
