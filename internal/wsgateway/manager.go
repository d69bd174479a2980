// Package wsgateway implements the WebSocket session manager: one
// goroutine pair (read loop, write loop) per accepted connection,
// backed by the shared core.Store.
package wsgateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

// drainWindow is how long a graceful shutdown waits for sessions to
// close themselves after being sent a DRAIN close frame before they
// are forcibly closed.
const drainWindow = 5 * time.Second

// Manager accepts WebSocket upgrades, enforces the global admission
// limit, and tracks live sessions so a graceful shutdown can drain
// them. It implements transport.Listener so it participates in the
// same managed lifecycle as the HTTP server.
type Manager struct {
	store *core.Store

	upgrader websocket.Upgrader

	maxSessions int
	admission   chan struct{}

	queueSize    int
	pingInterval time.Duration

	log *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a Manager bound to store. allowedOrigins governs
// the WebSocket upgrade's origin check; an empty list allows every
// origin, mirroring internal/transport's CORS default.
func NewManager(store *core.Store, allowedOrigins []string, maxSessions, queueSize int, pingInterval time.Duration) *Manager {
	m := &Manager{
		store:        store,
		maxSessions:  maxSessions,
		admission:    make(chan struct{}, maxSessions),
		queueSize:    queueSize,
		pingInterval: pingInterval,
		sessions:     make(map[string]*Session),
		log:          slog.Default().With("component", "wsgateway"),
	}
	m.upgrader = websocket.Upgrader{
		CheckOrigin: newOriginChecker(allowedOrigins),
	}
	return m
}

// Mount registers the WebSocket endpoint on mux, matching the
// MountFunc shape internal/transport expects.
func (m *Manager) Mount(mux *http.ServeMux) error {
	mux.HandleFunc("/api/k8s/ws", m.HandleUpgrade)
	return nil
}

// HandleUpgrade upgrades the HTTP connection and runs the resulting
// session to completion. It blocks for the session's lifetime, which
// is the expected shape for a handler invoked on its own per-request
// goroutine by net/http.
func (m *Manager) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	select {
	case m.admission <- struct{}{}:
	default:
		m.log.Warn("rejecting session: admission limit reached", "limit", m.maxSessions)
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many concurrent sessions")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = conn.Close()
		return
	}

	sess := newSession(m, conn)
	m.register(sess)
	defer m.release(sess)

	sess.run(r.Context())
}

func (m *Manager) register(s *Session) {
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()
	<-m.admission
}

// Start blocks until ctx is cancelled; session acceptance happens on
// the HTTP server's own request goroutines via HandleUpgrade.
func (m *Manager) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Stop drains every live session: each is sent a DRAIN close frame,
// and any still open after drainWindow is forcibly closed.
func (m *Manager) Stop(_ context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.drain()
	}

	deadline := time.Now().Add(drainWindow)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		remaining := len(m.sessions)
		m.mu.Unlock()
		if remaining == 0 {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.forceClose()
	}
	return nil
}

// ActiveSessions returns the current live session count, exposed for
// the /metrics endpoint.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func newOriginChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
