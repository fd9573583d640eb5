// Package mock is a deterministic engine for local development and tests.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/studycards/internal/domain/content"
	"github.com/yungbote/studycards/internal/proxy/engine"
)

type Engine struct {
	// Fence wraps responses in a ```json fence with a short preamble.
	Fence bool
}

func New() *Engine { return &Engine{Fence: true} }

func (e *Engine) Name() string { return "mock" }

func (e *Engine) Generate(ctx context.Context, req engine.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	topic := strings.TrimSpace(req.Payload.Topic)
	if topic == "" {
		topic = "this topic"
	}

	var v any
	switch req.Action {
	case content.ActionClarification:
		v = []content.Card{{
			Title:   "Clarification",
			Content: fmt.Sprintf("Let's look at **%s** again with your question in mind: %s", topic, req.Payload.Confusion),
		}}
	case content.ActionQuiz:
		n := req.Payload.QuizCount()
		qs := make([]content.QuizQuestion, 0, n)
		for i := 0; i < n; i++ {
			if i%2 == 0 {
				qs = append(qs, content.QuizQuestion{
					Question:      fmt.Sprintf("Question %d: which statement about %s is accurate?", i+1, topic),
					Type:          content.MultipleChoice,
					Options:       []string{"It has a definition", "It is undefined", "It cannot be learned", "None of these"},
					CorrectAnswer: "It has a definition",
					Explanation:   "Every topic can be defined and studied.",
				})
				continue
			}
			qs = append(qs, content.QuizQuestion{
				Question:      fmt.Sprintf("Question %d: %s can be explained step by step.", i+1, topic),
				Type:          content.TrueFalse,
				Options:       []string{"True", "False"},
				CorrectAnswer: "True",
				Explanation:   "Breaking a topic into steps is how the cards work.",
			})
		}
		v = qs
	case content.ActionQuizFeedback:
		v = content.Feedback{Feedback: fmt.Sprintf("You scored %d out of %d on %s. Keep going!", req.Payload.Correct, req.Payload.Total, topic)}
	default:
		v = content.Explanation{
			CleanTopic: topic,
			Cards: []content.Card{
				{Title: "What it is", Content: fmt.Sprintf("**%s** in one sentence.", topic)},
				{Title: "Why it matters", Content: fmt.Sprintf("Where %s shows up in practice.", topic)},
				{Title: "Key idea", Content: fmt.Sprintf("The one thing to remember about %s.", topic)},
			},
		}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if e.Fence {
		return "Sure! Here it is:\n```json\n" + string(raw) + "\n```", nil
	}
	return string(raw), nil
}
