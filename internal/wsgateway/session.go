package wsgateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

// writeWait bounds every individual write (data frame or close
// control frame) to the underlying connection.
const writeWait = 10 * time.Second

type sessionState int32

const (
	stateHandshake sessionState = iota
	stateOpen
	stateDrain
	stateClosed
)

// subscription is one (kind, namespace) entry in a session's
// subscription set, along with the live Store subscription feeding it.
type subscription struct {
	kind      core.Kind
	namespace string
	storeSub  *core.Subscription
}

// Session owns one accepted WebSocket connection end to end: its own
// bounded outgoing queue, its own subscription set, and its own
// keepalive bookkeeping. Nothing above a Session holds a long-lived
// reference into it.
type Session struct {
	id      string
	conn    *websocket.Conn
	manager *Manager
	log     *slog.Logger

	pingInterval time.Duration

	send      chan outboundFrame
	done      chan struct{}
	closeOnce sync.Once

	state        atomic.Int32
	lastActivity atomic.Int64 // UnixNano of the last inbound frame

	mu   sync.Mutex
	subs map[string]*subscription
}

func newSession(m *Manager, conn *websocket.Conn) *Session {
	s := &Session{
		id:           uuid.NewString(),
		conn:         conn,
		manager:      m,
		pingInterval: m.pingInterval,
		send:         make(chan outboundFrame, m.queueSize),
		done:         make(chan struct{}),
		subs:         make(map[string]*subscription),
	}
	s.log = m.log.With("session", s.id)
	s.state.Store(int32(stateHandshake))
	s.touch()
	return s
}

func (s *Session) touch() { s.lastActivity.Store(time.Now().UnixNano()) }

// run drives the session until its connection closes, it is drained
// by the manager, or its keepalive deadline expires. It blocks for
// the lifetime of the session; callers run it on its own goroutine
// (or, for the accepting HTTP handler, treat it as the terminal call).
func (s *Session) run(_ context.Context) {
	s.state.Store(int32(stateOpen))
	s.enqueue(connectedFrame())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()

	s.readLoop()

	s.closeOnce.Do(func() { close(s.done) })
	<-writerDone

	s.cleanupSubscriptions()
	s.state.Store(int32(stateClosed))
	_ = s.conn.Close()
}

func (s *Session) readLoop() {
	for {
		var f inboundFrame
		if err := s.conn.ReadJSON(&f); err != nil {
			s.log.Debug("session read loop ended", "error", err)
			return
		}
		s.touch()
		s.handleInbound(f)
	}
}

func (s *Session) handleInbound(f inboundFrame) {
	switch f.Type {
	case inTypeSubscribe:
		s.handleSubscribe(f)
	case inTypeUnsubscribe:
		s.handleUnsubscribe(f)
	case inTypePing:
		s.enqueue(pongFrame(f.Timestamp))
	case inTypePong:
		// lastActivity already refreshed by readLoop; nothing further to do.
	default:
		s.enqueue(errorFrame(fmt.Sprintf("unknown frame type %q", f.Type)))
	}
}

func (s *Session) handleSubscribe(f inboundFrame) {
	kind, err := core.ParseKind(f.ResourceType)
	if err != nil {
		s.enqueue(errorFrame(err.Error()))
		return
	}
	key := subKey(kind, f.Namespace)

	s.mu.Lock()
	if _, exists := s.subs[key]; exists {
		s.mu.Unlock()
		return
	}
	sub := &subscription{kind: kind, namespace: f.Namespace}
	s.subs[key] = sub
	s.mu.Unlock()

	namespace := f.Namespace

	// Register the live subscription before producing the snapshot so
	// no delta is missed, but hold every callback-produced frame in
	// held rather than writing it straight to s.send: a delta that
	// arrives while the snapshot is still being read must not overtake
	// the INITIAL burst. Once the snapshot has been fully enqueued,
	// flush whatever accumulated in held and only then let the
	// callback write straight through.
	var (
		mu      sync.Mutex
		held    []outboundFrame
		flushed bool
	)
	sub.storeSub = s.manager.store.Subscribe(kind, func(ev core.WatchEvent) {
		if namespace != "" && (ev.Record == nil || ev.Record.Namespace != namespace) {
			return
		}
		frame := resourceFrame(ev.Type, kind, ev.Record)

		mu.Lock()
		if !flushed {
			held = append(held, frame)
			mu.Unlock()
			return
		}
		mu.Unlock()
		s.enqueue(frame)
	})

	snapshot := s.manager.store.Snapshot(kind, namespace)
	for _, rec := range snapshot {
		s.enqueue(resourceFrame(core.WatchEventInitial, kind, rec))
	}
	s.enqueue(initialStateCompleteFrame(kind, len(snapshot), namespace))
	s.enqueue(subscribedFrame(kind, namespace))

	mu.Lock()
	for _, frame := range held {
		s.enqueue(frame)
	}
	held = nil
	flushed = true
	mu.Unlock()
}

func (s *Session) handleUnsubscribe(f inboundFrame) {
	kind, err := core.ParseKind(f.ResourceType)
	if err != nil {
		s.enqueue(errorFrame(err.Error()))
		return
	}
	key := subKey(kind, f.Namespace)

	s.mu.Lock()
	sub, exists := s.subs[key]
	if exists {
		delete(s.subs, key)
	}
	s.mu.Unlock()

	if !exists {
		s.enqueue(errorFrame((&core.ErrSubscriptionNotFound{Kind: kind, Namespace: f.Namespace}).Error()))
		return
	}
	sub.storeSub.Close()
	s.enqueue(unsubscribedFrame(kind, f.Namespace))
}

func (s *Session) cleanupSubscriptions() {
	s.mu.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = make(map[string]*subscription)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.storeSub.Close()
	}
}

// enqueue performs a non-blocking send to the outgoing queue. On
// overflow the session is closed with 1013 "slow consumer" rather
// than blocking the producer (the Store's dispatch goroutine, or the
// read loop itself).
func (s *Session) enqueue(f outboundFrame) {
	select {
	case s.send <- f:
	default:
		s.log.Warn("outgoing queue overflow, closing session", "capacity", cap(s.send))
		s.closeWithCode(websocket.CloseTryAgainLater, "slow consumer")
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case f := <-s.send:
			if err := s.writeFrame(f); err != nil {
				s.log.Debug("session write failed", "error", err)
				s.closeWithCode(websocket.CloseInternalServerErr, "write failed")
				return
			}
		case <-ticker.C:
			if time.Since(time.Unix(0, s.lastActivity.Load())) > 3*s.pingInterval {
				s.log.Info("keepalive timeout, closing session")
				s.closeWithCode(websocket.CloseGoingAway, "keepalive timeout")
				return
			}
			if err := s.writeFrame(pingFrame()); err != nil {
				s.log.Debug("session ping failed", "error", err)
				s.closeWithCode(websocket.CloseInternalServerErr, "write failed")
				return
			}
		}
	}
}

func (s *Session) writeFrame(f outboundFrame) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(f)
}

// closeWithCode sends a best-effort close control frame and closes the
// underlying connection, unblocking both the read and write loops.
// Safe to call more than once or concurrently.
func (s *Session) closeWithCode(code int, reason string) {
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = s.conn.Close()
		close(s.done)
	})
}

// drain transitions an open session into the DRAIN state for a
// graceful server shutdown.
func (s *Session) drain() {
	if sessionState(s.state.Load()) != stateOpen {
		return
	}
	s.state.Store(int32(stateDrain))
	s.closeWithCode(websocket.CloseGoingAway, "server shutting down")
}

// forceClose unconditionally closes the connection once the drain
// window has elapsed.
func (s *Session) forceClose() {
	_ = s.conn.Close()
}
