package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/studycards/internal/data/history"
	"github.com/yungbote/studycards/internal/http/response"
	"github.com/yungbote/studycards/internal/observability"
	"github.com/yungbote/studycards/internal/platform/logger"
	"github.com/yungbote/studycards/internal/realtime"
)

type HistoryService interface {
	List(ctx context.Context, owner string) ([]*history.Entry, error)
	Delete(ctx context.Context, owner string, id uuid.UUID) error
}

type HistoryHandler struct {
	log     *logger.Logger
	history HistoryService
	hub     *realtime.SSEHub
	metrics *observability.Metrics
}

func NewHistoryHandler(log *logger.Logger, svc HistoryService, hub *realtime.SSEHub, metrics *observability.Metrics) *HistoryHandler {
	return &HistoryHandler{log: log.With("handler", "HistoryHandler"), history: svc, hub: hub, metrics: metrics}
}

// GET /api/history
func (h *HistoryHandler) List(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	entries, err := h.history.List(c.Request.Context(), owner)
	if err != nil {
		h.log.Error("history list failed", "owner", owner, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "history_list_failed", errors.New("could not load history"))
		return
	}
	if entries == nil {
		entries = []*history.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// DELETE /api/history/:id
func (h *HistoryHandler) Delete(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, errors.New("invalid history id"))
		return
	}
	switch err := h.history.Delete(c.Request.Context(), owner, id); {
	case errors.Is(err, history.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case err != nil:
		h.log.Error("history delete failed", "owner", owner, "id", id, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "history_delete_failed", errors.New("could not delete history entry"))
	default:
		c.Status(http.StatusNoContent)
	}
}

// GET /api/history/stream
// Server-sent events for the caller's history changes and avatar updates.
func (h *HistoryHandler) Stream(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	client := h.hub.NewSSEClient(owner)
	h.hub.AddChannel(client, realtime.OwnerChannel(owner))
	h.metrics.SSEClientConnected()
	defer h.metrics.SSEClientDisconnected()
	defer h.hub.CloseClient(client)

	h.log.Debug("SSE stream open", "owner", owner, "client_id", client.ID)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
