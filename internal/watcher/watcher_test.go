package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

// fakeWatch is a core.RawWatch whose events are fed by the test.
type fakeWatch struct {
	ch      chan core.RawEvent
	stopped chan struct{}
	once    sync.Once
}

func newFakeWatch() *fakeWatch {
	return &fakeWatch{ch: make(chan core.RawEvent), stopped: make(chan struct{})}
}

func (w *fakeWatch) ResultChan() <-chan core.RawEvent { return w.ch }
func (w *fakeWatch) Stop()                            { w.once.Do(func() { close(w.stopped) }) }

// fakeFacade is a scriptable core.KubeFacade for exercising the
// Watcher FSM without a live cluster.
type fakeFacade struct {
	mu         sync.Mutex
	listCalls  int
	listPages  [][]map[string]any
	watchCalls int
	watches    []*fakeWatch
}

func deploymentObj(name, rv string) map[string]any {
	return map[string]any{
		"metadata": map[string]any{
			"name":            name,
			"namespace":       "default",
			"resourceVersion": rv,
		},
		"spec": map[string]any{
			"replicas": int64(1),
			"template": map[string]any{"spec": map[string]any{"containers": []any{}}},
		},
		"status": map[string]any{"readyReplicas": int64(1)},
	}
}

func (f *fakeFacade) List(ctx context.Context, kind core.Kind) (core.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.listCalls
	if idx >= len(f.listPages) {
		idx = len(f.listPages) - 1
	}
	f.listCalls++
	return core.ListResult{Items: f.listPages[idx], ResourceVersion: "10"}, nil
}

func (f *fakeFacade) Watch(ctx context.Context, kind core.Kind, resourceVersion string, sendInitialEvents bool, listTimeout time.Duration) (core.RawWatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := newFakeWatch()
	f.watches = append(f.watches, w)
	f.watchCalls++
	return w, nil
}

func (f *fakeFacade) ReadPodMetrics(ctx context.Context, namespace, name string) (core.PodMetrics, error) {
	return core.PodMetrics{}, nil
}

func noFilter(t *testing.T) *core.NamespaceFilter {
	t.Helper()
	f, err := core.NewNamespaceFilter(nil)
	if err != nil {
		t.Fatalf("NewNamespaceFilter: %v", err)
	}
	return f
}

// TestWatcherReListReconciliationS3 covers the scenario where the Store
// starts with d1 and d2; the watch stream reports a 410; the next
// list only returns d1. The reconciled Store must no longer contain
// d2.
func TestWatcherReListReconciliationS3(t *testing.T) {
	store := core.NewStore()
	store.Apply(core.WatchEventAdded, core.KindDeployment, &core.Record{
		Identity: core.Identity{Kind: core.KindDeployment, Namespace: "default", Name: "d1"},
	})
	store.Apply(core.WatchEventAdded, core.KindDeployment, &core.Record{
		Identity: core.Identity{Kind: core.KindDeployment, Namespace: "default", Name: "d2"},
	})

	facade := &fakeFacade{
		listPages: [][]map[string]any{
			{deploymentObj("d1", "10"), deploymentObj("d2", "10")},
			{deploymentObj("d1", "20")},
		},
	}

	var deleted []string
	var mu sync.Mutex
	sub := store.Subscribe(core.KindDeployment, func(ev core.WatchEvent) {
		if ev.Type == core.WatchEventDeleted {
			mu.Lock()
			deleted = append(deleted, ev.Record.Name)
			mu.Unlock()
		}
	})
	defer sub.Close()

	w := New(core.KindDeployment, facade, store, noFilter(t), time.Millisecond, 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// Wait for the first watch call, then trigger a 410 on it.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		facade.mu.Lock()
		n := len(facade.watches)
		facade.mu.Unlock()
		if n >= 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	facade.mu.Lock()
	firstWatch := facade.watches[0]
	facade.mu.Unlock()

	firstWatch.ch <- core.RawEvent{
		Type: core.RawError,
		Object: map[string]any{
			"reason": "Expired",
			"code":   int64(410),
		},
	}

	// Wait for the reconciliation delete to land.
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(deleted)
		mu.Unlock()
		if n >= 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(deleted) != 1 || deleted[0] != "d2" {
		t.Fatalf("expected exactly one DELETED for d2, got %v", deleted)
	}
	if store.Count(core.KindDeployment) != 1 {
		t.Fatalf("expected store to hold 1 deployment after reconciliation, got %d", store.Count(core.KindDeployment))
	}
}

// TestWatcherNamespaceFilterS6 covers the scenario where a filter that
// only allows "prod-*" namespaces must keep a dev-a pod out of the
// Store entirely.
func TestWatcherNamespaceFilterS6(t *testing.T) {
	store := core.NewStore()
	facade := &fakeFacade{
		listPages: [][]map[string]any{
			{
				{
					"metadata": map[string]any{"name": "p1", "namespace": "dev-a", "resourceVersion": "1"},
					"spec":     map[string]any{"containers": []any{}},
					"status":   map[string]any{"phase": "Running"},
				},
				{
					"metadata": map[string]any{"name": "p2", "namespace": "prod-a", "resourceVersion": "1"},
					"spec":     map[string]any{"containers": []any{}},
					"status":   map[string]any{"phase": "Running"},
				},
			},
		},
	}

	filter, err := core.NewNamespaceFilter([]string{"^prod-.*$"})
	if err != nil {
		t.Fatalf("NewNamespaceFilter: %v", err)
	}

	w := New(core.KindPod, facade, store, filter, time.Millisecond, 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if store.Count(core.KindPod) > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	all := store.Snapshot(core.KindPod, "")
	if len(all) != 1 || all[0].Name != "p2" {
		t.Fatalf("expected only prod-a/p2 in store, got %+v", all)
	}
}
