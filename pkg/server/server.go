package server

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/tal/pkg/dom"
	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/protocol"
	"github.com/vango-dev/tal/pkg/render"
	"github.com/vango-dev/tal/pkg/tal"
	"github.com/vango-dev/tal/pkg/tales"
)

// Routes served by Handler.
const (
	LivePath    = "/_tal/live"
	ClientPath  = render.DefaultClientScript
	MetricsPath = "/metrics"
	HealthPath  = "/healthz"
)

// tracerName is the OpenTelemetry instrumentation name.
const tracerName = "github.com/vango-dev/tal/pkg/server"

//go:embed client.js
var clientScript []byte

var clientETag = func() string {
	sum := sha256.Sum256(clientScript)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}()

// Page is what a PageFunc returns: a template and the model it is bound to.
type Page struct {
	// Template is an element or a document. It is rendered in place, so every
	// call must return a fresh tree.
	Template *dom.Node

	// Data is the context. Nil binds an empty record.
	Data observe.Wrapper

	Title       string
	Lang        string
	StyleSheets []string
	Meta        []render.MetaTag
}

// PageFunc builds the page for a request. Wrappers must be created with reg
// so model faults reach the server metrics.
type PageFunc func(r *http.Request, reg *observe.Registry) (*Page, error)

// Server renders live pages and keeps them in sync over WebSockets.
type Server struct {
	config   *Config
	page     PageFunc
	sessions *SessionManager
	upgrader websocket.Upgrader

	metrics  *Metrics
	tracer   trace.Tracer
	resolver []tales.Option
	logger   *slog.Logger

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics replaces the server collectors, for example to register them
// with a shared registry.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracerProvider sets the provider spans are created with. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithResolverOptions adds options to the expression resolver of every page.
func WithResolverOptions(opts ...tales.Option) Option {
	return func(s *Server) {
		s.resolver = append(s.resolver, opts...)
	}
}

// New creates a server rendering the pages page builds.
func New(config *Config, page PageFunc, opts ...Option) *Server {
	config = config.withDefaults()
	s := &Server{
		config: config,
		page:   page,
		logger: slog.Default().With("component", "server"),
	}
	if config.Tracing {
		s.tracer = otel.Tracer(tracerName)
	} else {
		s.tracer = noop.NewTracerProvider().Tracer(tracerName)
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(MetricsConfig{})
	}
	s.sessions = NewSessionManager(config.SessionConfig, config.MaxSessions, config.CleanupInterval, s.logger)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     config.CheckOrigin,
	}
	return s
}

// Handler returns the router serving pages, the live endpoint, the client
// script, metrics and health.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	r.Get(ClientPath, s.handleClient)
	r.Get(LivePath, s.handleLive)
	if s.config.Metrics {
		r.Handle(MetricsPath, promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}
	r.Get("/*", s.handlePage)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// handlePage renders the page and registers its session.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "tal.render",
		trace.WithAttributes(attribute.String("http.path", r.URL.Path)))
	defer span.End()

	reg := observe.NewRegistry(
		observe.WithLogger(s.logger.With("component", "observe")),
		observe.WithFaultHandler(s.metrics.FaultHandler()))
	page, err := s.page(r.WithContext(ctx), reg)
	if err == nil && (page == nil || page.Template == nil) {
		err = errors.New("page has no template")
	}
	if err != nil {
		s.fail(w, span, http.StatusInternalServerError, "page failed", err)
		return
	}
	if page.Data == nil {
		page.Data = reg.NewRecord(nil, nil)
	}

	sess := newSession(page.Template, page.Data, s.config.SessionConfig, s.metrics, s.tracer, s.logger)
	span.SetAttributes(attribute.String("tal.session_id", sess.ID))

	engine := tal.NewEngine(
		tal.WithLogger(sess.logger),
		tal.WithHooks(s.metrics.Hooks()),
		tal.WithPrefix(s.config.Prefix),
		tal.WithResolver(s.newResolver(sess.logger)))
	if _, err := engine.Render(page.Template, page.Data); err != nil {
		s.fail(w, span, http.StatusInternalServerError, "render failed", err)
		return
	}
	if err := s.sessions.Add(sess); err != nil {
		s.fail(w, span, http.StatusServiceUnavailable, "session rejected", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	sr := render.NewStreamingRenderer(w, render.RendererConfig{IDs: true, Comments: true})
	err = sr.RenderPage(render.PageData{
		Body:        page.Template,
		Title:       page.Title,
		Lang:        page.Lang,
		Meta:        page.Meta,
		StyleSheets: page.StyleSheets,
		SessionID:   sess.ID,
	})
	if err != nil {
		sess.logger.Warn("page write failed", "error", err)
		sess.Close()
		return
	}
	sess.start()
}

func (s *Server) newResolver(logger *slog.Logger) *tales.Resolver {
	opts := []tales.Option{tales.WithLogger(logger)}
	if s.config.Scripts {
		opts = append(opts, tales.WithEvaluator(tales.NewExprEvaluator()))
	}
	return tales.NewResolver(append(opts, s.resolver...)...)
}

func (s *Server) fail(w http.ResponseWriter, span trace.Span, status int, msg string, err error) {
	s.logger.Error(msg, "error", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	http.Error(w, http.StatusText(status), status)
}

// handleLive upgrades the connection and attaches it to the session named
// by the session query parameter.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}

	sess := s.sessions.Get(r.URL.Query().Get("session"))
	if sess == nil {
		s.reject(conn, protocol.CodeSessionExpired, "session not found")
		return
	}
	conn.SetReadLimit(s.config.SessionConfig.MaxMessageSize)
	if err := sess.attach(conn); err != nil {
		s.reject(conn, protocol.CodeSessionExpired, err.Error())
		return
	}
	sess.logger.Info("session attached", "remote", r.RemoteAddr)
}

func (s *Server) reject(conn *websocket.Conn, code protocol.ErrorCode, msg string) {
	if f, err := protocol.NewFrame(protocol.FrameError, protocol.ErrorMessage{Code: code, Message: msg, Fatal: true}); err == nil {
		conn.SetWriteDeadline(time.Now().Add(s.config.SessionConfig.WriteTimeout))
		conn.WriteMessage(websocket.BinaryMessage, f.Encode())
	}
	conn.Close()
}

func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", clientETag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == clientETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Write(clientScript)
}

// Run serves on the configured address until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.sessions.Shutdown(ctx); err != nil {
		s.logger.Warn("session shutdown incomplete", "error", err)
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager { return s.sessions }

// Metrics returns the server collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Config returns the effective configuration.
func (s *Server) Config() *Config { return s.config }
