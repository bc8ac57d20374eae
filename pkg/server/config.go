package server

import (
	"net/http"
	"net/url"
	"time"
)

// SessionConfig holds configuration for individual sessions.
type SessionConfig struct {
	// ReadTimeout is the maximum time to wait for a message from the client.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// AttachTimeout is how long a rendered page waits for its WebSocket.
	// Default: 30 seconds.
	AttachTimeout time.Duration

	// IdleTimeout is the time after which an inactive session is closed.
	// Default: 5 minutes.
	IdleTimeout time.Duration

	// HeartbeatInterval is the time between heartbeat pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// MaxEventQueue is the size of the event channel buffer.
	// Default: 256.
	MaxEventQueue int
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		AttachTimeout:     30 * time.Second,
		IdleTimeout:       5 * time.Minute,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
		MaxEventQueue:     256,
	}
}

// Config holds configuration for the HTTP/WebSocket server.
type Config struct {
	// Address is the address to listen on (e.g., ":3000").
	// Default: ":3000".
	Address string

	// ReadBufferSize and WriteBufferSize are the WebSocket buffer sizes.
	// Default: 4096.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin is called to validate the WebSocket request origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// SessionConfig is the configuration for individual sessions.
	SessionConfig *SessionConfig

	// MaxSessions is the maximum number of concurrent sessions. 0 means no
	// limit.
	MaxSessions int

	// CleanupInterval is the interval of the session cleanup loop.
	// Default: 30 seconds.
	CleanupInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Prefix is the statement attribute prefix. Default: "tal:".
	Prefix string

	// Scripts enables script: expressions.
	Scripts bool

	// Metrics serves /metrics. Tracing emits OpenTelemetry spans.
	Metrics bool
	Tracing bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:         ":3000",
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     SameOriginCheck,
		SessionConfig:   DefaultSessionConfig(),
		CleanupInterval: 30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		Metrics:         true,
		Tracing:         true,
	}
}

// withDefaults fills the unset fields of c.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = d.CheckOrigin
	}
	if out.CleanupInterval == 0 {
		out.CleanupInterval = d.CleanupInterval
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}

	sc := *d.SessionConfig
	if c.SessionConfig != nil {
		given := c.SessionConfig
		if given.ReadTimeout > 0 {
			sc.ReadTimeout = given.ReadTimeout
		}
		if given.WriteTimeout > 0 {
			sc.WriteTimeout = given.WriteTimeout
		}
		if given.AttachTimeout > 0 {
			sc.AttachTimeout = given.AttachTimeout
		}
		if given.IdleTimeout > 0 {
			sc.IdleTimeout = given.IdleTimeout
		}
		if given.HeartbeatInterval > 0 {
			sc.HeartbeatInterval = given.HeartbeatInterval
		}
		if given.MaxMessageSize > 0 {
			sc.MaxMessageSize = given.MaxMessageSize
		}
		if given.MaxEventQueue > 0 {
			sc.MaxEventQueue = given.MaxEventQueue
		}
	}
	out.SessionConfig = &sc
	return &out
}

// SameOriginCheck reports whether the WebSocket request origin matches the
// host. Requests without an Origin header pass.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && originURL.Host == r.Host
}
