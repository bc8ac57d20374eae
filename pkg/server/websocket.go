package server

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/tal/pkg/protocol"
)

// ReadLoop reads frames from the WebSocket and queues events for the event
// loop. It closes the session when the connection fails.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}
		s.touch()

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Warn("frame decode error", "error", err)
			s.sendError(protocol.CodeInvalidFrame, err.Error(), false)
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			s.handleEventFrame(frame)
		case protocol.FrameControl:
			s.handleControlFrame(frame)
		default:
			s.logger.Warn("unexpected frame type", "type", frame.Type)
		}
	}
}

// handleEventFrame decodes and queues an event from the client.
func (s *Session) handleEventFrame(frame *protocol.Frame) {
	ev := new(protocol.Event)
	if err := frame.Decode(ev); err != nil {
		s.sendError(protocol.CodeInvalidEvent, "invalid event format", false)
		return
	}
	if err := ev.Validate(); err != nil {
		s.sendError(protocol.CodeInvalidEvent, err.Error(), false)
		return
	}

	select {
	case s.events <- ev:
	case <-s.done:
	default:
		s.logger.Warn("event queue full", "type", ev.Type)
		s.sendError(protocol.CodeServerError, "event queue full", false)
	}
}

// handleControlFrame answers pings and handles client close.
func (s *Session) handleControlFrame(frame *protocol.Frame) {
	var c protocol.Control
	if err := frame.Decode(&c); err != nil {
		s.logger.Warn("control decode error", "error", err)
		return
	}
	switch c.Type {
	case protocol.ControlPing:
		if err := s.send(protocol.FrameControl, protocol.Control{Type: protocol.ControlPong}); err != nil {
			s.logger.Error("pong error", "error", err)
		}
	case protocol.ControlPong:
		s.logger.Debug("received pong")
	case protocol.ControlClose:
		s.logger.Info("client closing", "reason", c.Reason)
		s.Close()
	}
}

// WriteLoop sends heartbeat pings until the session closes.
func (s *Session) WriteLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.send(protocol.FrameControl, protocol.Control{Type: protocol.ControlPing}); err != nil {
				s.logger.Debug("ping failed", "error", err)
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}
