package server

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SessionManager tracks live sessions and closes the ones whose page never
// connected or whose client went idle.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	config      *SessionConfig
	maxSessions int

	cleanupInterval time.Duration
	done            chan struct{}
	cleanupDone     chan struct{}
	shutdownOnce    sync.Once

	logger *slog.Logger
}

// NewSessionManager creates a manager and starts its cleanup loop.
func NewSessionManager(config *SessionConfig, maxSessions int, cleanupInterval time.Duration, logger *slog.Logger) *SessionManager {
	if config == nil {
		config = DefaultSessionConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 30 * time.Second
	}
	sm := &SessionManager{
		sessions:        make(map[string]*Session),
		config:          config,
		maxSessions:     maxSessions,
		cleanupInterval: cleanupInterval,
		done:            make(chan struct{}),
		cleanupDone:     make(chan struct{}),
		logger:          logger.With("component", "session_manager"),
	}
	go sm.cleanupLoop()
	return sm
}

// Add registers s. It fails with ErrTooManySessions at the limit.
func (sm *SessionManager) Add(s *Session) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
		return ErrTooManySessions
	}
	sm.sessions[s.ID] = s
	s.onClose = sm.forget
	return nil
}

func (sm *SessionManager) forget(s *Session) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.sessions[s.ID] == s {
		delete(sm.sessions, s.ID)
	}
}

// Get returns the session with the given ID, or nil.
func (sm *SessionManager) Get(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Close closes and removes the session with the given ID.
func (sm *SessionManager) Close(id string) {
	if s := sm.Get(id); s != nil {
		s.Close()
	}
}

// Count returns the number of sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// ForEach calls fn for every session until it returns false.
func (sm *SessionManager) ForEach(fn func(*Session) bool) {
	sm.mu.RLock()
	list := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		list = append(list, s)
	}
	sm.mu.RUnlock()

	for _, s := range list {
		if !fn(s) {
			return
		}
	}
}

func (sm *SessionManager) cleanupLoop() {
	defer close(sm.cleanupDone)

	ticker := time.NewTicker(sm.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.cleanupExpired(time.Now())
		case <-sm.done:
			return
		}
	}
}

// cleanupExpired closes sessions that were never attached within
// AttachTimeout or have been idle longer than IdleTimeout.
func (sm *SessionManager) cleanupExpired(now time.Time) {
	var expired []*Session
	sm.ForEach(func(s *Session) bool {
		if s.Attached() {
			if now.Sub(s.LastActive()) > sm.config.IdleTimeout {
				expired = append(expired, s)
			}
		} else if now.Sub(s.CreatedAt) > sm.config.AttachTimeout {
			expired = append(expired, s)
		}
		return true
	})

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		sm.logger.Info("cleaned up expired sessions",
			"count", len(expired),
			"remaining", sm.Count())
	}
}

// Shutdown closes every session and stops the cleanup loop. It returns when
// both are done or ctx expires.
func (sm *SessionManager) Shutdown(ctx context.Context) error {
	sm.shutdownOnce.Do(func() { close(sm.done) })

	sm.ForEach(func(s *Session) bool {
		s.Close()
		return true
	})

	select {
	case <-sm.cleanupDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
