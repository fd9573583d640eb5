// Package apierr carries an HTTP status and a stable error code next to the
// message a caller is allowed to see.
package apierr

import (
	"errors"
	"net/http"
)

// Error is rendered as-is by the HTTP layer. Message is caller-facing; Cause
// is kept for logs and errors.Is/As.
type Error struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "":
		return e.Message
	case e.Cause != nil:
		return e.Cause.Error()
	case e.Code != "":
		return e.Code
	case http.StatusText(e.Status) != "":
		return http.StatusText(e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Cause }

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Wrap keeps cause behind a caller-facing message.
func Wrap(status int, code, message string, cause error) *Error {
	return &Error{Status: status, Code: code, Message: message, Cause: cause}
}

// From returns the *Error in err's chain, or a 500 internal_error that shows
// err's text. A zero Status is reported as 500.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		out := *ae
		if out.Status == 0 {
			out.Status = http.StatusInternalServerError
		}
		return &out
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Wrap(http.StatusInternalServerError, "internal_error", msg, err)
}
