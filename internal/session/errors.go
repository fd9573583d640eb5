package session

import (
	"context"
	"errors"
	"strings"

	"github.com/yungbote/studycards/internal/generation"
)

// UserMessage renders err as a sentence suitable for showing to a learner.
func UserMessage(err error) string {
	var se *generation.ServerError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyTopic):
		return "Please enter a topic to learn about."
	case errors.Is(err, ErrEmptyConfusion):
		return "Please describe what is unclear."
	case errors.Is(err, ErrInvalidScore):
		return "The quiz score is not valid."
	case errors.Is(err, ErrNotReady):
		return "Load a topic before asking for a clarification."
	case errors.Is(err, ErrBusy):
		return "This session is still working on the previous request."
	case errors.Is(err, generation.ErrTimeout):
		return "The request took too long. Please try again."
	case errors.Is(err, generation.ErrNetwork):
		return "Could not reach the content service. Check your connection and try again."
	case errors.Is(err, generation.ErrParse):
		return "The content service sent a response we could not read. Please try again."
	case errors.As(err, &se):
		if d := strings.TrimSpace(se.Details); d != "" {
			return "The content service reported an error: " + d
		}
		return "The content service reported an error. Please try again."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request took too long. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
