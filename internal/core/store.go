package core

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// defaultSubscriptionQueueCapacity is the recommended bound from spec
// §4.2 on a subscription's internal event queue.
const defaultSubscriptionQueueCapacity = 256

// Store holds the authoritative normalized mirror for every watched
// kind and fans events out to subscribers. It performs no I/O: the
// Watcher is its sole writer, and it knows nothing about WebSockets,
// Kubernetes, or the wire protocol above it.
//
// Concurrency discipline: the map mutation and the snapshot of the
// current subscriber set happen inside one short critical section;
// every callback invocation happens on the subscription's own
// goroutine, entirely outside that section, so a slow subscriber can
// never stall the writer or another subscriber.
type Store struct {
	mu      sync.Mutex
	records map[Kind]map[string]*Record
	subs    map[Kind]map[int64]*Subscription
	nextID  atomic.Int64
}

// NewStore returns an empty Store ready to accept Apply calls.
func NewStore() *Store {
	s := &Store{
		records: make(map[Kind]map[string]*Record),
		subs:    make(map[Kind]map[int64]*Subscription),
	}
	for _, k := range Kinds {
		s.records[k] = make(map[string]*Record)
		s.subs[k] = make(map[int64]*Subscription)
	}
	return s
}

func recordKey(namespace, name string) string {
	return Identity{Namespace: namespace, Name: name}.Key()
}

// Apply is the writer-side ingest call. eventKind is one of ADDED,
// MODIFIED, DELETED, INITIAL. A record is logically replaced on every
// MODIFIED even when structurally identical to what is stored,
// because downstream clients distinguish event types — the Store
// performs no deduplication.
func (s *Store) Apply(eventKind WatchEventType, kind Kind, record *Record) {
	s.mu.Lock()

	key := recordKey(record.Namespace, record.Name)
	switch eventKind {
	case WatchEventDeleted:
		delete(s.records[kind], key)
	default:
		s.records[kind][key] = record
	}

	// Snapshot the current subscriber set while still holding the
	// lock; dispatch happens after Unlock so a slow subscriber's
	// queue cannot hold this section open.
	targets := make([]*Subscription, 0, len(s.subs[kind]))
	for _, sub := range s.subs[kind] {
		targets = append(targets, sub)
	}

	s.mu.Unlock()

	ev := WatchEvent{Type: eventKind, Kind: kind, Record: record}
	for _, sub := range targets {
		sub.enqueue(ev)
	}
}

// Snapshot returns a deep-copied list of current records for kind,
// optionally filtered by namespace (empty string means unfiltered).
func (s *Store) Snapshot(kind Kind, namespace string) []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Record, 0, len(s.records[kind]))
	for _, r := range s.records[kind] {
		if namespace != "" && r.Namespace != namespace {
			continue
		}
		out = append(out, r.DeepCopy())
	}
	return out
}

// Count returns the number of records currently held for kind. Used
// by tests asserting the ADDED/DELETED round-trip law.
func (s *Store) Count(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[kind])
}

// Subscribe registers callback to receive every subsequent event for
// kind until the returned Subscription is closed. The callback runs
// on a dedicated goroutine per subscription, fed by a bounded queue
// so the Store's writer path is never blocked by it.
func (s *Store) Subscribe(kind Kind, callback func(WatchEvent)) *Subscription {
	sub := &Subscription{
		id:    s.nextID.Add(1),
		kind:  kind,
		store: s,
		queue: make(chan WatchEvent, defaultSubscriptionQueueCapacity),
	}

	s.mu.Lock()
	s.subs[kind][sub.id] = sub
	s.mu.Unlock()

	go sub.dispatch(callback)

	return sub
}

func (s *Store) unsubscribe(kind Kind, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs[kind], id)
}

// Subscription is a single subscriber's handle on the Store. Its
// queue is owned by the subscription, not shared, per spec §4.2's
// slow-consumer policy: on overflow the oldest event is dropped and
// Lagged is incremented, but the subscription itself is never closed
// by the Store.
type Subscription struct {
	id     int64
	kind   Kind
	store  *Store
	queue  chan WatchEvent
	lagged atomic.Int64
	closed atomic.Bool
}

// Lagged returns the number of events dropped so far because this
// subscription's queue was full.
func (sub *Subscription) Lagged() int64 {
	return sub.lagged.Load()
}

// Close releases the subscription. Events still queued when Close is
// called are discarded rather than delivered; a callback invocation
// already in progress may finish after Close returns. Safe to call
// more than once.
func (sub *Subscription) Close() {
	if sub.closed.CompareAndSwap(false, true) {
		sub.store.unsubscribe(sub.kind, sub.id)
		close(sub.queue)
	}
}

// enqueue performs a non-blocking send, dropping the oldest queued
// event and incrementing Lagged on overflow. Because every
// subscription is fed by exactly one kind's single watcher
// dispatcher, there is only ever one producer per queue and this
// drop-oldest sequence needs no additional locking.
func (sub *Subscription) enqueue(ev WatchEvent) {
	if sub.closed.Load() {
		return
	}
	select {
	case sub.queue <- ev:
		return
	default:
	}

	select {
	case <-sub.queue:
		sub.lagged.Add(1)
	default:
	}

	select {
	case sub.queue <- ev:
	default:
		sub.lagged.Add(1)
	}
}

// dispatch drains the queue and invokes callback for each event,
// entirely off the Store's critical section. A panicking callback is
// recovered, logged, and the event is dropped — the subscription is
// retained, matching the Store's failure semantics.
func (sub *Subscription) dispatch(callback func(WatchEvent)) {
	for ev := range sub.queue {
		if sub.closed.Load() {
			continue
		}
		sub.invoke(callback, ev)
	}
}

func (sub *Subscription) invoke(callback func(WatchEvent), ev WatchEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("store subscriber callback panicked",
				"kind", sub.kind,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	callback(ev)
}
