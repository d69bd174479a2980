package kubefacade

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

// MockFacade implements core.KubeFacade from a directory of YAML
// fixtures instead of a live cluster, for local development and demos
// without a kubeconfig (kube.mode = "mock"). Two files per kind are
// read from dir:
//
//	<kind>.yaml         a YAML list of Kubernetes object manifests,
//	                    returned verbatim from List.
//	<kind>.events.yaml  an optional YAML list of {type, object} scripted
//	                    events replayed once, with a short delay between
//	                    each, to every Watch call for that kind.
type MockFacade struct {
	mu     sync.Mutex
	dir    string
	lists  map[core.Kind][]map[string]any
	events map[core.Kind][]mockEvent
}

type mockEvent struct {
	Type   string         `yaml:"type"`
	Object map[string]any `yaml:"object"`
}

// mockEventReplayDelay paces scripted event replay so a demo session
// watching the live feed can see records arrive rather than all at
// once.
const mockEventReplayDelay = 2 * time.Second

// NewMock loads fixtures for every kind in core.Kinds from dir. A
// missing <kind>.yaml is treated as an empty list, not an error, so a
// fixture set can cover a subset of kinds.
func NewMock(dir string) (*MockFacade, error) {
	m := &MockFacade{
		dir:    dir,
		lists:  make(map[core.Kind][]map[string]any),
		events: make(map[core.Kind][]mockEvent),
	}

	for _, kind := range core.Kinds {
		items, err := loadYAMLList[map[string]any](filepath.Join(dir, string(kind)+".yaml"))
		if err != nil {
			return nil, err
		}
		m.lists[kind] = items

		evs, err := loadYAMLList[mockEvent](filepath.Join(dir, string(kind)+".events.yaml"))
		if err != nil {
			return nil, err
		}
		m.events[kind] = evs
	}

	return m, nil
}

func loadYAMLList[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}

	var items []T
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return items, nil
}

var _ core.KubeFacade = (*MockFacade)(nil)

// List returns the fixture snapshot for kind. ResourceVersion is a
// constant since fixtures never change underneath a running process.
func (m *MockFacade) List(_ context.Context, kind core.Kind) (core.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := append([]map[string]any(nil), m.lists[kind]...)
	return core.ListResult{Items: items, ResourceVersion: "mock"}, nil
}

// Watch replays the kind's scripted event file once, then idles until
// the context is cancelled or Stop is called. resourceVersion and
// sendInitialEvents are accepted for interface conformance but unused:
// fixture replay always starts from the beginning of the script.
func (m *MockFacade) Watch(ctx context.Context, kind core.Kind, _ string, _ bool, _ time.Duration) (core.RawWatch, error) {
	m.mu.Lock()
	events := m.events[kind]
	m.mu.Unlock()

	w := &mockWatch{
		ch:   make(chan core.RawEvent),
		done: make(chan struct{}),
	}
	go w.replay(ctx, events)
	return w, nil
}

// ReadPodMetrics returns a deterministic, non-zero reading so a mock
// session exercises the full metrics-on-demand path without a real
// metrics-server.
func (m *MockFacade) ReadPodMetrics(_ context.Context, namespace, name string) (core.PodMetrics, error) {
	return core.PodMetrics{
		CPUMillis:   50,
		MemoryBytes: 64 * 1024 * 1024,
		Containers: []core.ContainerMetrics{
			{Name: "main", CPUMillis: 50, MemoryBytes: 64 * 1024 * 1024},
		},
	}, nil
}

type mockWatch struct {
	ch       chan core.RawEvent
	done     chan struct{}
	closeErr sync.Once
}

func (w *mockWatch) ResultChan() <-chan core.RawEvent {
	return w.ch
}

func (w *mockWatch) Stop() {
	w.closeErr.Do(func() { close(w.done) })
}

func (w *mockWatch) replay(ctx context.Context, events []mockEvent) {
	defer close(w.ch)

	for _, ev := range events {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-time.After(mockEventReplayDelay):
		}

		raw := core.RawEvent{Type: core.RawEventType(ev.Type), Object: ev.Object}
		select {
		case w.ch <- raw:
		case <-ctx.Done():
			return
		case <-w.done:
			return
		}
	}

	select {
	case <-ctx.Done():
	case <-w.done:
	}
}
