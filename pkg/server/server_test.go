package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/tal/pkg/dom"
	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/protocol"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const greeterTemplate = `<div><input tal:listen="value name"><p tal:content="name"></p></div>`

func greeter(r *http.Request, reg *observe.Registry) (*Page, error) {
	tpl, err := dom.ParseElement(greeterTemplate)
	if err != nil {
		return nil, err
	}
	data := reg.NewRecord(map[string]any{"name": "Ada"}, nil)
	return &Page{Template: tpl, Data: data, Title: "Greeter"}, nil
}

func newTestServer(t *testing.T, page PageFunc, config *Config) (*Server, *httptest.Server) {
	t.Helper()
	if config == nil {
		config = &Config{}
	}
	config.CleanupInterval = time.Hour
	srv := New(config, page,
		WithLogger(discard()),
		WithTracerProvider(noop.NewTracerProvider()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
	})
	return srv, ts
}

var sessionPattern = regexp.MustCompile(`window\.__TAL_SESSION__="([0-9a-f]+)"`)

// openPage renders the page and returns its body and session.
func openPage(t *testing.T, srv *Server, ts *httptest.Server) (string, *Session) {
	t.Helper()
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d, body %s", resp.StatusCode, body)
	}
	m := sessionPattern.FindStringSubmatch(string(body))
	if m == nil {
		t.Fatalf("no session in page:\n%s", body)
	}
	sess := srv.Sessions().Get(m[1])
	if sess == nil {
		t.Fatalf("session %s not registered", m[1])
	}
	return string(body), sess
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, ts *httptest.Server, session string) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + LivePath + "?session=" + session
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) read() *protocol.Frame {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("ReadMessage: %v", err)
	}
	f, err := protocol.DecodeFrame(msg)
	if err != nil {
		c.t.Fatalf("DecodeFrame: %v", err)
	}
	return f
}

// next skips control frames.
func (c *client) next() *protocol.Frame {
	c.t.Helper()
	for {
		if f := c.read(); f.Type != protocol.FrameControl {
			return f
		}
	}
}

func (c *client) send(ft protocol.FrameType, v any) {
	c.t.Helper()
	f, err := protocol.NewFrame(ft, v)
	if err != nil {
		c.t.Fatalf("NewFrame: %v", err)
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, f.Encode()); err != nil {
		c.t.Fatalf("WriteMessage: %v", err)
	}
}

func (c *client) hello() protocol.Hello {
	c.t.Helper()
	f := c.next()
	if f.Type != protocol.FrameHandshake {
		c.t.Fatalf("first frame is %s, want Handshake", f.Type)
	}
	var h protocol.Hello
	if err := f.Decode(&h); err != nil {
		c.t.Fatalf("Decode hello: %v", err)
	}
	return h
}

func (c *client) patches() []protocol.Patch {
	c.t.Helper()
	f := c.next()
	patches, err := f.Patches()
	if err != nil {
		c.t.Fatalf("expected patches: %v", err)
	}
	return patches
}

func TestPageRender(t *testing.T) {
	srv, ts := newTestServer(t, greeter, nil)
	body, sess := openPage(t, srv, ts)

	for _, want := range []string{
		"<title>Greeter</title>",
		`<input data-tal-id="`,
		">Ada</p>",
		`<script src="/_tal/client.js" defer></script>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page should contain %q, got:\n%s", want, body)
		}
	}
	if strings.Contains(body, "tal:listen") {
		t.Errorf("statement attributes should be stripped:\n%s", body)
	}
	if sess.Attached() {
		t.Error("session should wait for its socket")
	}
}

func TestLiveEventRoundTrip(t *testing.T) {
	srv, ts := newTestServer(t, greeter, nil)
	_, sess := openPage(t, srv, ts)
	input := sess.Root().FindTag("input")
	p := sess.Root().FindTag("p")

	c := dial(t, ts, sess.ID)
	h := c.hello()
	if h.Session != sess.ID || h.Version != protocol.ProtocolVersion {
		t.Errorf("unexpected hello %+v", h)
	}
	if !strings.Contains(strings.Join(h.Events, ","), "change") {
		t.Errorf("hello should list change events: %v", h.Events)
	}

	value := "Grace"
	c.send(protocol.FrameEvent, protocol.Event{ID: input.ID(), Type: "change", Value: &value})

	want := []protocol.Patch{{Op: protocol.PatchHTML, ID: p.ID(), Value: "Grace"}}
	if diff := cmp.Diff(want, c.patches()); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
	got := make(chan any, 1)
	if err := sess.Dispatch(func() { got <- sess.Context().Get(nil, "name") }); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if name := <-got; name != "Grace" {
		t.Errorf("name = %v, want Grace", name)
	}
}

func TestDispatchSendsPatches(t *testing.T) {
	srv, ts := newTestServer(t, greeter, nil)
	_, sess := openPage(t, srv, ts)
	input := sess.Root().FindTag("input")

	c := dial(t, ts, sess.ID)
	c.hello()

	err := sess.Dispatch(func() {
		input.SetAttr("placeholder", "name")
		input.SetProp("value", "typed")
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	want := []protocol.Patch{
		{Op: protocol.PatchSetAttr, ID: input.ID(), Key: "placeholder", Value: "name"},
		{Op: protocol.PatchSetProp, ID: input.ID(), Key: "value", Value: "typed"},
	}
	if diff := cmp.Diff(want, c.patches()); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

func TestPendingChangesSentOnAttach(t *testing.T) {
	srv, ts := newTestServer(t, greeter, nil)
	_, sess := openPage(t, srv, ts)
	p := sess.Root().FindTag("p")

	done := make(chan struct{})
	if err := sess.Dispatch(func() {
		sess.Context().Set("name", "Lin")
		close(done)
	}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	<-done

	c := dial(t, ts, sess.ID)
	c.hello()
	want := []protocol.Patch{{Op: protocol.PatchHTML, ID: p.ID(), Value: "Lin"}}
	if diff := cmp.Diff(want, c.patches()); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

func TestEventUnknownNode(t *testing.T) {
	srv, ts := newTestServer(t, greeter, nil)
	_, sess := openPage(t, srv, ts)

	c := dial(t, ts, sess.ID)
	c.hello()
	c.send(protocol.FrameEvent, protocol.Event{ID: 1 << 40, Type: "click"})

	f := c.next()
	var msg protocol.ErrorMessage
	if f.Type != protocol.FrameError || f.Decode(&msg) != nil {
		t.Fatalf("expected an error frame, got %s", f.Type)
	}
	if msg.Code != protocol.CodeNodeNotFound || msg.Fatal {
		t.Errorf("unexpected error %+v", msg)
	}
}

func TestInvalidEvent(t *testing.T) {
	srv, ts := newTestServer(t, greeter, nil)
	_, sess := openPage(t, srv, ts)

	c := dial(t, ts, sess.ID)
	c.hello()
	c.send(protocol.FrameEvent, protocol.Event{Type: "click"})

	var msg protocol.ErrorMessage
	if f := c.next(); f.Type != protocol.FrameError || f.Decode(&msg) != nil {
		t.Fatalf("expected an error frame, got %s", f.Type)
	}
	if msg.Code != protocol.CodeInvalidEvent {
		t.Errorf("code = %s, want %s", msg.Code, protocol.CodeInvalidEvent)
	}
}

func TestPingPong(t *testing.T) {
	srv, ts := newTestServer(t, greeter, nil)
	_, sess := openPage(t, srv, ts)

	c := dial(t, ts, sess.ID)
	c.hello()
	c.send(protocol.FrameControl, protocol.Control{Type: protocol.ControlPing})

	var ctl protocol.Control
	if f := c.read(); f.Type != protocol.FrameControl || f.Decode(&ctl) != nil || ctl.Type != protocol.ControlPong {
		t.Fatalf("expected a pong, got %s %+v", f.Type, ctl)
	}
}

func TestLiveUnknownSession(t *testing.T) {
	_, ts := newTestServer(t, greeter, nil)

	c := dial(t, ts, "missing")
	var msg protocol.ErrorMessage
	if f := c.read(); f.Type != protocol.FrameError || f.Decode(&msg) != nil {
		t.Fatalf("expected an error frame, got %s", f.Type)
	}
	if msg.Code != protocol.CodeSessionExpired || !msg.Fatal {
		t.Errorf("unexpected error %+v", msg)
	}
}

func TestSecondSocketRejected(t *testing.T) {
	srv, ts := newTestServer(t, greeter, nil)
	_, sess := openPage(t, srv, ts)

	dial(t, ts, sess.ID).hello()
	second := dial(t, ts, sess.ID)
	var msg protocol.ErrorMessage
	if f := second.read(); f.Type != protocol.FrameError || f.Decode(&msg) != nil {
		t.Fatalf("expected an error frame, got %s", f.Type)
	}
	if !msg.Fatal {
		t.Errorf("rejection should be fatal: %+v", msg)
	}
}

func TestCloseForgetsSession(t *testing.T) {
	srv, ts := newTestServer(t, greeter, nil)
	_, sess := openPage(t, srv, ts)

	c := dial(t, ts, sess.ID)
	c.hello()
	c.send(protocol.FrameControl, protocol.Control{Type: protocol.ControlClose, Reason: "bye"})

	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not close")
	}
	waitFor(t, func() bool { return srv.Sessions().Get(sess.ID) == nil })
	if err := sess.Dispatch(func() {}); err != ErrSessionClosed {
		t.Errorf("Dispatch after close = %v, want ErrSessionClosed", err)
	}
}

func TestRenderFailure(t *testing.T) {
	broken := func(r *http.Request, reg *observe.Registry) (*Page, error) {
		tpl, err := dom.ParseElement(`<div tal:content="script: 1"></div>`)
		return &Page{Template: tpl}, err
	}
	_, ts := newTestServer(t, broken, nil)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestMaxSessions(t *testing.T) {
	srv, ts := newTestServer(t, greeter, &Config{MaxSessions: 1})
	openPage(t, srv, ts)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestClientScript(t *testing.T) {
	_, ts := newTestServer(t, greeter, nil)

	resp, err := http.Get(ts.URL + ClientPath)
	if err != nil {
		t.Fatalf("GET client: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	etag := resp.Header.Get("ETag")
	if resp.StatusCode != http.StatusOK || etag == "" || !strings.Contains(string(body), "__TAL_SESSION__") {
		t.Fatalf("unexpected client response %d etag %q", resp.StatusCode, etag)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+ClientPath, nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET client: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotModified {
		t.Errorf("status = %d, want 304", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, ts := newTestServer(t, greeter, &Config{Metrics: true})
	openPage(t, srv, ts)

	resp, err := http.Get(ts.URL + HealthPath)
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + MetricsPath)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{"tal_active_sessions", `tal_binding_evaluations_total{statement="content"}`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics should contain %q", want)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
