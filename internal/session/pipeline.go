// Package session orchestrates cache lookup, generation, normalization and
// persistence for explanation sessions, clarifications and quizzes.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/studycards/internal/domain/content"
	"github.com/yungbote/studycards/internal/normalize"
	"github.com/yungbote/studycards/internal/observability"
	"github.com/yungbote/studycards/internal/platform/logger"
)

var (
	ErrEmptyTopic     = errors.New("topic is required")
	ErrEmptyConfusion = errors.New("clarification text is required")
	ErrInvalidScore   = errors.New("score must satisfy 0 <= correct <= total and total > 0")
)

// Generator produces raw model text for a content request.
type Generator interface {
	Generate(ctx context.Context, action content.Action, payload content.Payload) (string, error)
}

// Cache is the per-identity history the pipeline reads through and writes back to.
type Cache interface {
	Lookup(ctx context.Context, owner, topic string) ([]content.Card, bool, error)
	Save(ctx context.Context, owner, topic string, cards []content.Card) error
	Append(ctx context.Context, owner, topic string, cards []content.Card) error
}

// Result is a loaded explanation. Title is the cleaned topic.
type Result struct {
	Title  string         `json:"title"`
	Cards  []content.Card `json:"cards"`
	Cached bool           `json:"cached"`
}

type Pipeline struct {
	gen      Generator
	cache    Cache
	log      *logger.Logger
	metrics  *observability.Metrics
	inflight singleflight.Group
}

type Option func(*Pipeline)

func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline wires a pipeline. A nil cache disables history entirely.
func NewPipeline(gen Generator, cache Cache, log *logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	p := &Pipeline{gen: gen, cache: cache, log: log.With("service", "SessionPipeline")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadSession returns cards for topic. Authenticated callers read through the
// history cache; guests (empty identity) always generate and never write.
// Concurrent loads of the same (topic, identity) share one generation.
func (p *Pipeline) LoadSession(ctx context.Context, topic, identity string) (Result, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Result{}, ErrEmptyTopic
	}

	key := identity + "\x00" + topic
	ch := p.inflight.DoChan(key, func() (interface{}, error) {
		return p.load(context.WithoutCancel(ctx), topic, identity)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		out := res.Val.(Result)
		if res.Shared {
			out.Cards = append([]content.Card(nil), out.Cards...)
		}
		return out, nil
	}
}

func (p *Pipeline) load(ctx context.Context, topic, identity string) (Result, error) {
	if identity == "" || p.cache == nil {
		p.metrics.ObserveCache("guest")
	} else {
		cards, ok, err := p.cache.Lookup(ctx, identity, topic)
		switch {
		case err != nil:
			p.metrics.ObserveCache("error")
			p.log.Warn("history lookup failed; generating instead", "owner", identity, "topic", topic, "error", err)
		case ok:
			p.metrics.ObserveCache("hit")
			p.log.Debug("history hit", "owner", identity, "topic", topic)
			return Result{Title: topic, Cards: cards, Cached: true}, nil
		default:
			p.metrics.ObserveCache("miss")
		}
	}

	raw, err := p.gen.Generate(ctx, content.ActionExplanation, content.Payload{Topic: topic})
	if err != nil {
		p.log.Warn("explanation generation failed", "topic", topic, "error", err)
		return Result{}, fmt.Errorf("generate explanation: %w", err)
	}
	exp := normalize.Explanation(raw, topic)

	if identity != "" && p.cache != nil {
		if err := p.cache.Save(ctx, identity, exp.CleanTopic, exp.Cards); err != nil {
			p.log.Warn("history save failed", "owner", identity, "topic", exp.CleanTopic, "error", err)
		}
	}
	return Result{Title: exp.CleanTopic, Cards: exp.Cards}, nil
}

// AppendClarification generates one follow-up card for confusion and, for
// authenticated callers, appends it to the stored entry for topic. Nothing is
// stored when no entry exists under topic.
func (p *Pipeline) AppendClarification(ctx context.Context, identity, topic, confusion string) (content.Card, error) {
	topic = strings.TrimSpace(topic)
	confusion = strings.TrimSpace(confusion)
	if topic == "" {
		return content.Card{}, ErrEmptyTopic
	}
	if confusion == "" {
		return content.Card{}, ErrEmptyConfusion
	}

	raw, err := p.gen.Generate(ctx, content.ActionClarification, content.Payload{Topic: topic, Confusion: confusion})
	if err != nil {
		p.log.Warn("clarification generation failed", "topic", topic, "error", err)
		return content.Card{}, fmt.Errorf("generate clarification: %w", err)
	}
	card := mergeCards(normalize.Cards(raw, topic))

	if identity != "" && p.cache != nil {
		if err := p.cache.Append(ctx, identity, topic, []content.Card{card}); err != nil {
			p.log.Warn("history append failed", "owner", identity, "topic", topic, "error", err)
		}
	}
	return card, nil
}

// LoadQuiz generates count questions (clamped to 1..10, default 3). Every
// returned question has correctAnswer among its options.
func (p *Pipeline) LoadQuiz(ctx context.Context, topic string, count int) ([]content.QuizQuestion, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	payload := content.Payload{Topic: topic, Count: count}
	payload.Count = payload.QuizCount()

	raw, err := p.gen.Generate(ctx, content.ActionQuiz, payload)
	if err != nil {
		p.log.Warn("quiz generation failed", "topic", topic, "error", err)
		return nil, fmt.Errorf("generate quiz: %w", err)
	}
	return normalize.Quiz(raw, topic), nil
}

// QuizFeedback asks for encouraging feedback on a finished quiz.
func (p *Pipeline) QuizFeedback(ctx context.Context, topic string, correct, total int) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrEmptyTopic
	}
	if total <= 0 || correct < 0 || correct > total {
		return "", ErrInvalidScore
	}

	raw, err := p.gen.Generate(ctx, content.ActionQuizFeedback, content.Payload{Topic: topic, Correct: correct, Total: total})
	if err != nil {
		p.log.Warn("quiz feedback generation failed", "topic", topic, "error", err)
		return "", fmt.Errorf("generate quiz feedback: %w", err)
	}
	fb := strings.TrimSpace(normalize.Feedback(raw).Feedback)
	if fb == "" {
		fb = fmt.Sprintf("You answered %d out of %d correctly. Keep practicing!", correct, total)
	}
	return fb, nil
}

// mergeCards folds any extra cards into the first one, each under a bold
// heading, so a clarification is always a single card.
func mergeCards(cards []content.Card) content.Card {
	if len(cards) == 0 {
		return content.Card{}
	}
	out := cards[0]
	if len(cards) == 1 {
		return out
	}
	var b strings.Builder
	b.WriteString(out.Content)
	for _, c := range cards[1:] {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if c.Title != "" {
			b.WriteString("**" + c.Title + "**")
			if c.Content != "" {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(c.Content)
	}
	out.Content = b.String()
	if out.Title == "" {
		out.Title = cards[1].Title
	}
	return out
}
