package server

import "errors"

var (
	// ErrSessionClosed is returned when dispatching to a closed session.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrQueueFull is returned when a session's queue is full.
	ErrQueueFull = errors.New("server: session queue full")

	// ErrAlreadyAttached is returned when a second WebSocket connects to a session.
	ErrAlreadyAttached = errors.New("server: session already attached")

	// ErrTooManySessions is returned when MaxSessions is reached.
	ErrTooManySessions = errors.New("server: too many sessions")
)
