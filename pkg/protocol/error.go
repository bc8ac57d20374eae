package protocol

// ErrorCode identifies the type of error.
type ErrorCode string

const (
	CodeInvalidFrame   ErrorCode = "invalid-frame"
	CodeInvalidEvent   ErrorCode = "invalid-event"
	CodeNodeNotFound   ErrorCode = "node-not-found"
	CodeSessionExpired ErrorCode = "session-expired"
	CodeServerError    ErrorCode = "server-error"
)

// ErrorMessage is sent when the server rejects a frame or fails. The session
// is closed after a fatal error.
type ErrorMessage struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Fatal   bool      `json:"fatal,omitempty"`
}

func (e *ErrorMessage) Error() string {
	return string(e.Code) + ": " + e.Message
}
