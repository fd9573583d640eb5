package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTimeout is returned when both the first attempt and its single retry time out.
	ErrTimeout = errors.New("generation timed out")
	// ErrNetwork is returned for transport failures other than timeouts.
	ErrNetwork = errors.New("generation proxy unreachable")
	// ErrParse is returned when a 2xx response body cannot be decoded.
	ErrParse = errors.New("generation response could not be decoded")
)

// ServerError is a non-2xx answer from the proxy.
type ServerError struct {
	StatusCode int
	Status     string
	Details    string
}

func (e *ServerError) Error() string {
	if e == nil {
		return "generation server error"
	}
	msg := strings.TrimSpace(e.Details)
	if msg == "" {
		msg = e.Status
	}
	return fmt.Sprintf("generation server error: status=%d details=%s", e.StatusCode, msg)
}

func parseServerError(status int, raw []byte) *ServerError {
	statusText := http.StatusText(status)
	out := &ServerError{StatusCode: status, Status: statusText}

	var env struct {
		Error   json.RawMessage `json:"error"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		if d := flatten(env.Details); d != "" {
			out.Details = d
			return out
		}
		if d := flatten(env.Error); d != "" {
			out.Details = d
			return out
		}
	}
	out.Details = statusText
	return out
}

// flatten renders a JSON value as text: strings verbatim, anything else compact.
func flatten(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &nested) == nil && strings.TrimSpace(nested.Message) != "" {
		return strings.TrimSpace(nested.Message)
	}
	return strings.TrimSpace(string(raw))
}
