package wsgateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

func newTestServer(t *testing.T, m *Manager) (*httptest.Server, string) {
	t.Helper()
	mux := http.NewServeMux()
	if err := m.Mount(mux); err != nil {
		t.Fatalf("mount: %v", err)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/k8s/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) outboundFrame {
	t.Helper()
	var f outboundFrame
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func podRecord(namespace, name string) *core.Record {
	return &core.Record{
		Identity: core.Identity{Kind: core.KindPod, Namespace: namespace, Name: name},
		Pod:      &core.PodRecord{Phase: "Running", Status: core.PodRunning},
	}
}

// TestSnapshotThenLiveS1 covers the scenario where a subscribe replays a
// namespace-filtered snapshot as INITIAL events, then initial_state_complete,
// then live deltas matching the filter only.
func TestSnapshotThenLiveS1(t *testing.T) {
	store := core.NewStore()
	store.Apply(core.WatchEventInitial, core.KindPod, podRecord("a", "p1"))
	store.Apply(core.WatchEventInitial, core.KindPod, podRecord("a", "p2"))
	store.Apply(core.WatchEventInitial, core.KindPod, podRecord("b", "p3"))

	m := NewManager(store, nil, 10, 256, 20*time.Second)
	_, url := newTestServer(t, m)
	conn := dial(t, url)

	if f := readFrame(t, conn); f.Type != outTypeConnection {
		t.Fatalf("expected connection frame, got %+v", f)
	}

	if err := conn.WriteJSON(inboundFrame{Type: inTypeSubscribe, ResourceType: "pod", Namespace: "a"}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		f := readFrame(t, conn)
		if f.Type != outTypeResource || f.EventType != core.WatchEventInitial || f.Resource == nil {
			t.Fatalf("expected INITIAL resource frame, got %+v", f)
		}
		seen[f.Resource.Name] = true
	}
	if !seen["p1"] || !seen["p2"] {
		t.Fatalf("expected snapshot of p1 and p2, got %v", seen)
	}

	if f := readFrame(t, conn); f.Type != outTypeInitialStateComplete || f.Count != 2 || f.Namespace != "a" {
		t.Fatalf("expected initial_state_complete(count=2,namespace=a), got %+v", f)
	}

	// Drain the "subscribed" confirmation frame.
	if f := readFrame(t, conn); f.Type != outTypeSubscribed {
		t.Fatalf("expected subscribed confirmation, got %+v", f)
	}

	store.Apply(core.WatchEventModified, core.KindPod, podRecord("a", "p1"))
	store.Apply(core.WatchEventAdded, core.KindPod, podRecord("a", "p4"))
	store.Apply(core.WatchEventAdded, core.KindPod, podRecord("b", "p5")) // must never reach this session

	if f := readFrame(t, conn); f.Type != outTypeResource || f.EventType != core.WatchEventModified || f.Resource.Name != "p1" {
		t.Fatalf("expected MODIFIED p1, got %+v", f)
	}
	if f := readFrame(t, conn); f.Type != outTypeResource || f.EventType != core.WatchEventAdded || f.Resource.Name != "p4" {
		t.Fatalf("expected ADDED p4, got %+v", f)
	}

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var stray outboundFrame
	if err := conn.ReadJSON(&stray); err == nil {
		t.Fatalf("expected no further frames (namespace b filtered out), got %+v", stray)
	}
}

// TestAdmissionLimitRejectsWithCode1013 exercises the boundary
// behavior: a connection beyond the global cap is rejected with 1013
// before any subscription is accepted.
func TestAdmissionLimitRejectsWithCode1013(t *testing.T) {
	store := core.NewStore()
	m := NewManager(store, nil, 1, 256, 20*time.Second)
	_, url := newTestServer(t, m)

	first := dial(t, url)
	readFrame(t, first) // connection frame

	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f outboundFrame
	err = second.ReadJSON(&f)
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("expected close error, got %v (frame %+v)", err, f)
	}
	if closeErr.Code != websocket.CloseTryAgainLater {
		t.Fatalf("expected close code 1013, got %d", closeErr.Code)
	}
}

// TestSlowConsumerOverflowClosesWithCode1013 covers the scenario where a
// session whose outgoing queue cannot keep up is closed with 1013, and
// the Store itself is unaffected (it still holds the applied record).
func TestSlowConsumerOverflowClosesWithCode1013(t *testing.T) {
	store := core.NewStore()
	m := NewManager(store, nil, 10, 4, 20*time.Second)
	_, url := newTestServer(t, m)
	conn := dial(t, url)
	readFrame(t, conn) // connection frame

	if err := conn.WriteJSON(inboundFrame{Type: inTypeSubscribe, ResourceType: "pod"}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	// Drain the handshake frames (initial_state_complete + subscribed)
	// for an empty store before the client stops reading entirely.
	readFrame(t, conn)
	readFrame(t, conn)

	for i := 0; i < 50; i++ {
		store.Apply(core.WatchEventAdded, core.KindPod, podRecord("a", "burst"))
	}

	var lastErr error
	for i := 0; i < 200; i++ {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var f outboundFrame
		if err := conn.ReadJSON(&f); err != nil {
			lastErr = err
			break
		}
	}

	closeErr, ok := lastErr.(*websocket.CloseError)
	if !ok {
		t.Fatalf("expected the session to close on overflow, got %v", lastErr)
	}
	if closeErr.Code != websocket.CloseTryAgainLater {
		t.Fatalf("expected close code 1013, got %d", closeErr.Code)
	}

	if got := store.Count(core.KindPod); got != 1 {
		t.Fatalf("store backpressure must not propagate upstream: expected count 1, got %d", got)
	}
}

func TestUnknownFrameTypeYieldsErrorFrame(t *testing.T) {
	store := core.NewStore()
	m := NewManager(store, nil, 10, 256, 20*time.Second)
	_, url := newTestServer(t, m)
	conn := dial(t, url)
	readFrame(t, conn)

	raw, _ := json.Marshal(map[string]string{"type": "bogus"})
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := readFrame(t, conn); f.Type != outTypeError {
		t.Fatalf("expected error frame, got %+v", f)
	}
}
