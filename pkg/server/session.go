package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/tal/pkg/dom"
	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/protocol"
	"github.com/vango-dev/tal/pkg/render"
)

// defaultEvents are forwarded by the client whether or not a listener exists
// yet.
var defaultEvents = []string{"change", "click", "input", "submit", "toggle"}

// Session is one rendered page and the WebSocket keeping it live.
//
// The document and the model behind it are only touched by the event loop.
// Other goroutines reach them through Dispatch.
type Session struct {
	ID        string
	CreatedAt time.Time

	root    *dom.Node
	ctx     observe.Wrapper
	pending *patchSet
	stop    func()
	// applying suppresses property patches for state the client reported.
	applying bool

	conn       *websocket.Conn
	writeMu    sync.Mutex
	attached   atomic.Bool
	lastActive atomic.Int64

	events     chan *protocol.Event
	dispatchCh chan func()
	done       chan struct{}
	startOnce  sync.Once
	closeOnce  sync.Once
	onClose    func(*Session)

	config   *SessionConfig
	renderer *render.Renderer
	metrics  *Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// generateSessionID generates a cryptographically random session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// newSession creates a session for a rendered template.
func newSession(root *dom.Node, ctx observe.Wrapper, config *SessionConfig, metrics *Metrics, tracer trace.Tracer, logger *slog.Logger) *Session {
	now := time.Now()
	id := generateSessionID()
	s := &Session{
		ID:         id,
		CreatedAt:  now,
		root:       root.Root(),
		ctx:        ctx,
		events:     make(chan *protocol.Event, config.MaxEventQueue),
		dispatchCh: make(chan func(), config.MaxEventQueue),
		done:       make(chan struct{}),
		config:     config,
		renderer:   render.NewRenderer(render.RendererConfig{IDs: true}),
		metrics:    metrics,
		tracer:     tracer,
		logger:     logger.With("session_id", id),
	}
	s.pending = newPatchSet(s.root)
	s.lastActive.Store(now.UnixNano())
	return s
}

// Root returns the live document or template.
func (s *Session) Root() *dom.Node { return s.root }

// Context returns the model the page is bound to.
func (s *Session) Context() observe.Wrapper { return s.ctx }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// LastActive returns the time of the last client message.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Attached reports whether a WebSocket is connected.
func (s *Session) Attached() bool { return s.attached.Load() }

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// start begins observing the document and runs the event loop.
func (s *Session) start() {
	s.startOnce.Do(func() {
		s.stop = s.root.Observe(s.record)
		s.metrics.activeSessions.Inc()
		go s.EventLoop()
	})
}

func (s *Session) record(m dom.Mutation) {
	if s.applying && m.Kind == dom.MutationProp {
		return
	}
	s.pending.add(m)
}

// attach connects conn and starts the connection loops. Changes made since
// the page was rendered are sent right after the hello frame.
func (s *Session) attach(conn *websocket.Conn) error {
	if !s.attached.CompareAndSwap(false, true) {
		return ErrAlreadyAttached
	}
	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()
	s.touch()
	s.start()

	return s.Dispatch(func() {
		hello := protocol.Hello{Session: s.ID, Version: protocol.ProtocolVersion, Events: s.eventTypes()}
		if err := s.send(protocol.FrameHandshake, hello); err != nil {
			s.logger.Error("hello failed", "error", err)
			s.Close()
			return
		}
		go s.ReadLoop()
		go s.WriteLoop()
	})
}

// eventTypes returns the event types the client should forward.
func (s *Session) eventTypes() []string {
	set := make(map[string]bool)
	for _, t := range defaultEvents {
		set[t] = true
	}
	s.root.Walk(func(n *dom.Node) bool {
		for _, t := range n.EventTypes() {
			set[t] = true
		}
		return true
	})
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs fn on the event loop and sends the patches it causes.
func (s *Session) Dispatch(fn func()) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.dispatchCh <- fn:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		return ErrQueueFull
	}
}

// EventLoop processes client events and dispatched functions until the
// session closes. The document is torn down when it returns.
func (s *Session) EventLoop() {
	defer s.teardown()
	for {
		select {
		case ev := <-s.events:
			s.handleEvent(ev)
		case fn := <-s.dispatchCh:
			s.executeDispatch(fn)
		case <-s.done:
			return
		}
	}
}

func (s *Session) executeDispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dispatch panic", "panic", r)
		}
	}()
	fn()
	s.flush(nil)
}

// handleEvent applies the element state the client reported and dispatches
// the event on the element.
func (s *Session) handleEvent(ev *protocol.Event) {
	start := time.Now()
	_, span := s.tracer.Start(context.Background(), "tal.event", trace.WithAttributes(
		attribute.String("tal.session_id", s.ID),
		attribute.String("tal.event.type", ev.Type),
		attribute.Int64("tal.node_id", int64(ev.ID)),
	))
	defer span.End()

	status := "ok"
	defer func() {
		s.metrics.eventsTotal.WithLabelValues(ev.Type, status).Inc()
		s.metrics.eventDuration.WithLabelValues(ev.Type).Observe(time.Since(start).Seconds())
	}()

	n := s.root.FindByID(ev.ID)
	if n == nil || !n.IsElement() || n.Root() != s.root {
		status = "not_found"
		span.SetStatus(codes.Error, "node not found")
		s.sendError(protocol.CodeNodeNotFound, fmt.Sprintf("no element #%d", ev.ID), false)
		return
	}

	s.applyState(n, ev)
	var detail any
	if ev.NewState != "" {
		detail = ev.NewState
	}
	if err := s.safeDispatch(n, &dom.Event{Type: ev.Type, Detail: detail}); err != nil {
		status = "panic"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.sendError(protocol.CodeServerError, "event handler failed", false)
	}
	span.SetAttributes(attribute.Int("tal.patches", s.flush(span)))
}

func (s *Session) applyState(n *dom.Node, ev *protocol.Event) {
	s.applying = true
	defer func() { s.applying = false }()

	if ev.Value != nil {
		n.SetProp("value", *ev.Value)
	}
	if ev.Checked != nil {
		n.SetProp("checked", *ev.Checked)
	}
	if ev.NewState != "" {
		n.SetProp("open", ev.NewState == "open")
	}
}

func (s *Session) safeDispatch(n *dom.Node, e *dom.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event handler panic", "type", e.Type, "node", n.ID(), "panic", r)
			err = fmt.Errorf("event %s: %v", e.Type, r)
		}
	}()
	n.Dispatch(e)
	return nil
}

// flush sends the pending patches and returns how many were sent. Patches
// wait while no client is attached.
func (s *Session) flush(span trace.Span) int {
	if !s.attached.Load() || s.pending.empty() {
		return 0
	}
	patches, err := s.pending.flush(s.renderer)
	if err != nil {
		s.logger.Error("patch render failed", "error", err)
		return 0
	}
	if len(patches) == 0 {
		return 0
	}
	frames, err := protocol.EncodePatches(patches)
	if err != nil {
		s.logger.Error("patch encode failed", "error", err)
		if span != nil {
			span.RecordError(err)
		}
		s.sendError(protocol.CodeServerError, "update too large, reload the page", true)
		s.Close()
		return 0
	}
	for _, f := range frames {
		if err := s.writeFrame(f); err != nil {
			s.logger.Error("write error", "error", err)
			s.Close()
			return 0
		}
	}

	counts := make(map[string]int)
	for _, p := range patches {
		counts[string(p.Op)]++
	}
	s.metrics.patches(counts)
	return len(patches)
}

func (s *Session) send(ft protocol.FrameType, v any) error {
	f, err := protocol.NewFrame(ft, v)
	if err != nil {
		return err
	}
	return s.writeFrame(f)
}

func (s *Session) writeFrame(f *protocol.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.conn == nil {
		return ErrSessionClosed
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, f.Encode())
}

func (s *Session) sendError(code protocol.ErrorCode, message string, fatal bool) {
	msg := protocol.ErrorMessage{Code: code, Message: message, Fatal: fatal}
	if err := s.send(protocol.FrameError, msg); err != nil {
		s.logger.Debug("error frame not sent", "code", code, "error", err)
	}
}

// Close stops the session. The document is torn down by the event loop.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.writeMu.Unlock()
		if s.onClose != nil {
			s.onClose(s)
		}
		s.logger.Debug("session closed")
	})
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} { return s.done }

// teardown releases every binding of the document.
func (s *Session) teardown() {
	if s.stop != nil {
		s.stop()
	}
	dom.Teardown(s.root)
	s.metrics.activeSessions.Dec()
}
