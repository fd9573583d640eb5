package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studycards/internal/domain/content"
	"github.com/yungbote/studycards/internal/identity"
	"github.com/yungbote/studycards/internal/platform/logger"
	"github.com/yungbote/studycards/internal/session"
)

type SessionHandler struct {
	log      *logger.Logger
	pipeline *session.Pipeline
}

func NewSessionHandler(log *logger.Logger, pipeline *session.Pipeline) *SessionHandler {
	return &SessionHandler{log: log.With("handler", "SessionHandler"), pipeline: pipeline}
}

type loadSessionRequest struct {
	Topic     string `json:"topic"`
	QuizCount int    `json:"quizCount"`
}

type loadSessionResponse struct {
	Title     string                 `json:"title"`
	Cards     []content.Card         `json:"cards"`
	Cached    bool                   `json:"cached"`
	Quiz      []content.QuizQuestion `json:"quiz,omitempty"`
	QuizError string                 `json:"quizError,omitempty"`
}

// POST /api/sessions
// body: { "topic": "...", "quizCount": 3 }
// A positive quizCount also runs the companion quiz; its failure is reported in
// quizError and does not fail the session.
func (h *SessionHandler) Load(c *gin.Context) {
	var req loadSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	s := h.pipeline.NewSession(identity.FromContext(ctx))

	res, err := s.Load(ctx, req.Topic)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	out := loadSessionResponse{Title: res.Title, Cards: res.Cards, Cached: res.Cached}

	if req.QuizCount > 0 {
		done, err := s.StartQuiz(ctx, req.QuizCount)
		if err == nil {
			select {
			case <-done:
			case <-ctx.Done():
			}
		}
		if qs, ok := s.Quiz(); ok {
			out.Quiz = qs
		} else if qerr := s.QuizErr(); qerr != nil {
			out.QuizError = session.UserMessage(qerr)
		}
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/sessions/clarify
// body: { "topic": "...", "confusion": "..." }
func (h *SessionHandler) Clarify(c *gin.Context) {
	var req struct {
		Topic     string `json:"topic"`
		Confusion string `json:"confusion"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	card, err := h.pipeline.AppendClarification(ctx, identity.FromContext(ctx), req.Topic, req.Confusion)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"card": card})
}

// POST /api/quizzes
// body: { "topic": "...", "count": 3 }
func (h *SessionHandler) Quiz(c *gin.Context) {
	var req struct {
		Topic string `json:"topic"`
		Count int    `json:"count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	qs, err := h.pipeline.LoadQuiz(c.Request.Context(), req.Topic, req.Count)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": qs})
}

// POST /api/quizzes/feedback
// body: { "topic": "...", "correct": 2, "total": 3 }
func (h *SessionHandler) Feedback(c *gin.Context) {
	var req struct {
		Topic   string `json:"topic"`
		Correct int    `json:"correct"`
		Total   int    `json:"total"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	fb, err := h.pipeline.QuizFeedback(c.Request.Context(), req.Topic, req.Correct, req.Total)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, content.Feedback{Feedback: fb})
}
