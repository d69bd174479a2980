package core

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

func testRecord(namespace, name string) *Record {
	return &Record{
		Identity: Identity{Kind: KindPod, Namespace: namespace, Name: name},
		Labels:   map[string]string{"app": name},
		Pod: &PodRecord{
			Phase:  "Running",
			Status: PodRunning,
		},
	}
}

func TestStoreApplyAndSnapshot(t *testing.T) {
	s := NewStore()

	s.Apply(WatchEventInitial, KindPod, testRecord("a", "p1"))
	s.Apply(WatchEventInitial, KindPod, testRecord("a", "p2"))
	s.Apply(WatchEventInitial, KindPod, testRecord("b", "p3"))

	all := s.Snapshot(KindPod, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	filtered := s.Snapshot(KindPod, "a")
	if len(filtered) != 2 {
		t.Fatalf("expected 2 records in namespace a, got %d", len(filtered))
	}
}

func TestStoreSnapshotIsDeepCopy(t *testing.T) {
	s := NewStore()
	want := testRecord("a", "p1")
	s.Apply(WatchEventInitial, KindPod, want)

	got := s.Snapshot(KindPod, "")[0]
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("snapshot not deeply equal: want %+v got %+v", want, got)
	}

	got.Labels["app"] = "mutated"
	if s.Snapshot(KindPod, "")[0].Labels["app"] == "mutated" {
		t.Fatalf("mutating a snapshot must not affect the store")
	}
}

func TestStoreAddedThenDeletedRoundTrip(t *testing.T) {
	s := NewStore()
	before := s.Count(KindPod)

	s.Apply(WatchEventAdded, KindPod, testRecord("a", "p1"))
	s.Apply(WatchEventDeleted, KindPod, testRecord("a", "p1"))

	if after := s.Count(KindPod); after != before {
		t.Fatalf("count changed across ADDED+DELETED round trip: before=%d after=%d", before, after)
	}
}

func TestStoreModifiedReplacesRecord(t *testing.T) {
	s := NewStore()
	s.Apply(WatchEventAdded, KindPod, testRecord("a", "p1"))
	if s.Count(KindPod) != 1 {
		t.Fatalf("expected 1 record after ADDED")
	}

	s.Apply(WatchEventModified, KindPod, testRecord("a", "p1"))
	if s.Count(KindPod) != 1 {
		t.Fatalf("MODIFIED for the same key must replace, not duplicate")
	}
}

func TestSubscribeReceivesEventsInOrder(t *testing.T) {
	s := NewStore()

	var mu sync.Mutex
	var seen []string

	sub := s.Subscribe(KindPod, func(ev WatchEvent) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.Record.Name)
	})
	defer sub.Close()

	for i, name := range []string{"p1", "p2", "p3"} {
		_ = i
		s.Apply(WatchEventAdded, KindPod, testRecord("a", name))
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == 3 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"p1", "p2", "p3"}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("events delivered out of order: want %v got %v", want, seen)
	}
}

func TestSubscriptionOverflowDropsOldestAndCountsLag(t *testing.T) {
	s := NewStore()

	block := make(chan struct{})
	sub := s.Subscribe(KindPod, func(ev WatchEvent) {
		<-block // never returns until the test releases it
	})
	defer sub.Close()

	// One event is immediately claimed by the blocked callback
	// invocation; the remaining defaultSubscriptionQueueCapacity+N
	// events exhaust the queue and force drops.
	for i := 0; i < defaultSubscriptionQueueCapacity+10; i++ {
		s.Apply(WatchEventModified, KindPod, testRecord("a", "p1"))
	}

	if sub.Lagged() == 0 {
		t.Fatalf("expected overflow to increment Lagged, got 0")
	}

	close(block)
}

func TestCloseStopsFurtherDelivery(t *testing.T) {
	s := NewStore()

	var count atomicInt
	sub := s.Subscribe(KindPod, func(ev WatchEvent) {
		count.add(1)
	})

	s.Apply(WatchEventAdded, KindPod, testRecord("a", "p1"))
	time.Sleep(10 * time.Millisecond)
	sub.Close()

	before := count.get()
	s.Apply(WatchEventAdded, KindPod, testRecord("a", "p2"))
	time.Sleep(10 * time.Millisecond)

	if after := count.get(); after != before {
		t.Fatalf("events delivered after Close: before=%d after=%d", before, after)
	}
}

// atomicInt is a tiny test helper; the package under test already
// depends on sync/atomic but reaches for the typed atomic.Int64 in
// production code, so this keeps the test self-contained.
type atomicInt struct {
	mu sync.Mutex
	n  int
}

func (a *atomicInt) add(d int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.n += d
}

func (a *atomicInt) get() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}
