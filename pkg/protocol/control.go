package protocol

// ProtocolVersion is sent in the Hello frame.
const ProtocolVersion = 1

// Hello is the first frame of a session. Events lists the DOM event types
// the client forwards.
type Hello struct {
	Session string   `json:"session"`
	Version int      `json:"version"`
	Events  []string `json:"events,omitempty"`
}

// ControlType identifies the type of control message.
type ControlType string

const (
	ControlPing  ControlType = "ping"
	ControlPong  ControlType = "pong"
	ControlClose ControlType = "close"
)

// Control is a connection management message.
type Control struct {
	Type   ControlType `json:"type"`
	Reason string      `json:"reason,omitempty"`
}
