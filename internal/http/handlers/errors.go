package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studycards/internal/generation"
	"github.com/yungbote/studycards/internal/http/response"
	"github.com/yungbote/studycards/internal/identity"
	"github.com/yungbote/studycards/internal/platform/apierr"
	"github.com/yungbote/studycards/internal/session"
)

// sessionError maps a pipeline failure to a status and code; the message is the
// learner-facing text from session.UserMessage.
func sessionError(err error) *apierr.Error {
	var se *generation.ServerError
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, session.ErrEmptyTopic),
		errors.Is(err, session.ErrEmptyConfusion),
		errors.Is(err, session.ErrInvalidScore):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, session.ErrNotReady), errors.Is(err, session.ErrBusy):
		status, code = http.StatusConflict, "session_conflict"
	case errors.Is(err, generation.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "upstream_timeout"
	case errors.Is(err, generation.ErrNetwork):
		status, code = http.StatusBadGateway, "upstream_unreachable"
	case errors.Is(err, generation.ErrParse):
		status, code = http.StatusBadGateway, "upstream_invalid_response"
	case errors.As(err, &se):
		status, code = http.StatusBadGateway, "upstream_error"
	case errors.Is(err, context.Canceled):
		status, code = http.StatusRequestTimeout, "request_canceled"
	}
	return apierr.Wrap(status, code, session.UserMessage(err), err)
}

func respondSessionError(c *gin.Context, err error) {
	_ = c.Error(err)
	response.RespondAPIError(c, sessionError(err))
}

func badRequest(c *gin.Context, err error) {
	response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
}

// requireOwner returns the authenticated identity or writes a 401.
func requireOwner(c *gin.Context) (string, bool) {
	owner := identity.FromContext(c.Request.Context())
	if owner == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("not authenticated"))
		return "", false
	}
	return owner, true
}
