package protocol

import "errors"

// ErrInvalidEvent is returned by Event.Validate.
var ErrInvalidEvent = errors.New("protocol: invalid event")

// Event is a DOM event the client forwards to the server.
//
// Value, Checked and NewState carry the element state the event changed. The
// server applies them to the element properties before dispatching Type.
type Event struct {
	ID       uint64  `json:"id"`
	Type     string  `json:"type"`
	Value    *string `json:"value,omitempty"`
	Checked  *bool   `json:"checked,omitempty"`
	NewState string  `json:"newState,omitempty"`
}

// Validate reports whether the event addresses a node and names a type.
func (e *Event) Validate() error {
	switch {
	case e.ID == 0:
		return errors.Join(ErrInvalidEvent, errors.New("missing node id"))
	case e.Type == "":
		return errors.Join(ErrInvalidEvent, errors.New("missing event type"))
	}
	return nil
}
