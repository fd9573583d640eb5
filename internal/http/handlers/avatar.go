package handlers

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studycards/internal/http/response"
	"github.com/yungbote/studycards/internal/platform/gcp"
	"github.com/yungbote/studycards/internal/platform/logger"
	"github.com/yungbote/studycards/internal/realtime"
	"github.com/yungbote/studycards/internal/realtime/bus"
)

type AvatarUploader interface {
	Upload(ctx context.Context, owner string, contentType string, size int64, r io.Reader) (string, error)
}

type AvatarHandler struct {
	log    *logger.Logger
	store  AvatarUploader
	events bus.Bus
}

// NewAvatarHandler accepts a nil store; uploads then answer 503.
func NewAvatarHandler(log *logger.Logger, store AvatarUploader, events bus.Bus) *AvatarHandler {
	return &AvatarHandler{log: log.With("handler", "AvatarHandler"), store: store, events: events}
}

// PUT /api/profile/avatar
// multipart form field "avatar"
func (h *AvatarHandler) Upload(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	if h.store == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "avatar_storage_disabled", errors.New("avatar storage is not configured"))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, gcp.MaxAvatarBytes+1<<20)

	fh, err := c.FormFile("avatar")
	if err != nil {
		badRequest(c, errors.New("missing avatar file"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, errors.New("could not open avatar file"))
		return
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 512)
	contentType := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		head, _ := br.Peek(512)
		contentType = http.DetectContentType(head)
	}

	ctx := c.Request.Context()
	url, err := h.store.Upload(ctx, owner, contentType, fh.Size, br)
	switch {
	case errors.Is(err, gcp.ErrAvatarTooLarge):
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", err)
		return
	case errors.Is(err, gcp.ErrAvatarContentType):
		response.RespondError(c, http.StatusUnsupportedMediaType, "unsupported_media_type", err)
		return
	case err != nil:
		h.log.Error("avatar upload failed", "owner", owner, "error", err)
		response.RespondError(c, http.StatusBadGateway, "upload_avatar_failed", errors.New("could not store avatar"))
		return
	}

	if h.events != nil {
		msg := realtime.SSEMessage{
			Channel: realtime.OwnerChannel(owner),
			Event:   realtime.SSEEventAvatarUpdated,
			Data:    gin.H{"avatarUrl": url},
		}
		if err := h.events.Publish(context.WithoutCancel(ctx), msg); err != nil {
			h.log.Warn("avatar event publish failed", "owner", owner, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"avatarUrl": url})
}
