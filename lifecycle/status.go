// Package lifecycle is the request-lifecycle state machine shared by every
// entity kind. A Store holds one kind's list and detail data plus a Status
// per operation, and moves each operation through
//
//	Idle -> Pending -> Succeeded | Failed -> Idle
//
// Succeeded and Failed are transient: they fall back to Idle after a fixed
// delay or as soon as any operation on the same kind is dispatched again.
package lifecycle

import (
	"errors"
	"net/http"
)

// Operation names an action on an entity kind.
type Operation string

// Operations used by the console. The machine accepts any Operation value.
const (
	OpFetch             Operation = "fetch"
	OpGet               Operation = "get"
	OpCreate            Operation = "create"
	OpUpdate            Operation = "update"
	OpDelete            Operation = "delete"
	OpLock              Operation = "lock"
	OpUnlock            Operation = "unlock"
	OpResetPassword     Operation = "reset_password"
	OpCheckAvailability Operation = "check_availability"
)

// Phase is the machine state of one operation.
type Phase int

// Phases.
const (
	Idle Phase = iota
	Pending
	Succeeded
	Failed
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is the observable state of one operation. Error is empty unless
// the last attempt failed; Code is the transport status of that failure,
// or zero when the failure never reached the server.
type Status struct {
	Pending   bool   `json:"pending"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
	Code      int    `json:"code,omitempty"`
}

// Phase derives the machine state.
func (s Status) Phase() Phase {
	switch {
	case s.Pending:
		return Pending
	case s.Error != "":
		return Failed
	case s.Succeeded:
		return Succeeded
	default:
		return Idle
	}
}

// Conflict reports whether the failure was an HTTP 409, which screens show
// as a field-level error instead of a toast.
func (s Status) Conflict() bool { return s.Code == http.StatusConflict }

// GenericMessage is shown when a failure carries no usable text.
const GenericMessage = "Something went wrong. Please try again."

// serverMessager is implemented by transport errors that decoded a message
// from the response body.
type serverMessager interface {
	ServerMessage() string
}

// statusCoder is implemented by errors carrying an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// ErrorMessage extracts a human-readable message: the server-provided
// message first, then the error's own text, then GenericMessage.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var sm serverMessager
	if errors.As(err, &sm) {
		if msg := sm.ServerMessage(); msg != "" {
			return msg
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return GenericMessage
}

// ErrorCode returns the HTTP status carried by err, or zero.
func ErrorCode(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}
