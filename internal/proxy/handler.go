// Package proxy serves POST /api/gemini: it owns the model credential, builds
// the prompt and returns the model's raw text.
package proxy

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/studycards/internal/domain/content"
	"github.com/yungbote/studycards/internal/platform/logger"
	"github.com/yungbote/studycards/internal/prompts"
	"github.com/yungbote/studycards/internal/proxy/engine"
)

const (
	msgMissingKey     = "Missing Gemini API Key"
	msgInvalidRequest = "Invalid request body"
	msgUnknownAction  = "Unknown action"
	msgFailed         = "Failed to generate content"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type textBody struct {
	Text string `json:"text"`
}

type Handler struct {
	engine engine.Engine
	log    *logger.Logger
}

func NewHandler(eng engine.Engine, log *logger.Logger) *Handler {
	if eng == nil {
		eng = engine.Unconfigured{}
	}
	return &Handler{engine: eng, log: log.With("handler", "GeminiProxy", "engine", eng.Name())}
}

// Register mounts the proxy route on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/api/gemini", h.Generate)
}

func (h *Handler) Generate(c *gin.Context) {
	ctx, span := otel.Tracer("studycards/proxy").Start(c.Request.Context(), "proxy.Generate")
	defer span.End()

	var req content.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: msgInvalidRequest, Details: err.Error()})
		return
	}
	action, ok := content.ParseAction(string(req.Action))
	if !ok {
		c.JSON(http.StatusBadRequest, errorBody{Error: msgUnknownAction, Details: string(req.Action)})
		return
	}
	span.SetAttributes(attribute.String("generation.action", string(action)))

	text, err := h.engine.Generate(ctx, engine.Request{
		Action:  action,
		Payload: req.Payload,
		Prompt:  prompts.Build(action, req.Payload),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, engine.ErrMissingKey) {
			h.log.Error("proxy called without a Gemini API key")
			c.JSON(http.StatusInternalServerError, errorBody{Error: msgMissingKey})
			return
		}
		h.log.Error("content generation failed", "action", action, "error", err)
		c.JSON(http.StatusInternalServerError, errorBody{Error: msgFailed, Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, textBody{Text: text})
}
