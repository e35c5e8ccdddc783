package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is returned for every non-2xx response.
type Error struct {
	Status  int
	Message string
	Body    []byte
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("transport: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("transport: unexpected status %d %s", e.Status, http.StatusText(e.Status))
}

// StatusCode returns the HTTP status of the response.
func (e *Error) StatusCode() int { return e.Status }

// ServerMessage returns the message decoded from the response body.
func (e *Error) ServerMessage() string { return e.Message }

// IsStatus reports whether err is a transport Error with the given status.
func IsStatus(err error, status int) bool {
	var te *Error
	return errors.As(err, &te) && te.Status == status
}

// messageFields are checked in order when decoding an error body.
var messageFields = []string{"message", "error", "detail"}

func newError(status int, body []byte) *Error {
	e := &Error{Status: status, Body: body}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, f := range messageFields {
			if s, ok := fields[f].(string); ok && strings.TrimSpace(s) != "" {
				e.Message = s
				break
			}
		}
	}
	return e
}
