package session

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/studycards/internal/domain/content"
	"github.com/yungbote/studycards/internal/platform/logger"
)

var (
	ErrNotReady = errors.New("session is not ready")
	ErrBusy     = errors.New("session is busy")
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
	StateAppendingClarification
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateAppendingClarification:
		return "appending_clarification"
	default:
		return "unknown"
	}
}

// View is a point-in-time copy of a session.
type View struct {
	State  State
	Topic  string
	Title  string
	Cards  []content.Card
	Cached bool
	Err    error
}

// Session is one learner's explanation view:
// Idle -> Loading -> Ready | Failed, with Ready -> AppendingClarification -> Ready.
type Session struct {
	p        *Pipeline
	identity string
	log      *logger.Logger

	mu     sync.Mutex
	state  State
	topic  string
	title  string
	cards  []content.Card
	cached bool
	err    error

	quiz     []content.QuizQuestion
	quizErr  error
	quizDone chan struct{}
}

func (p *Pipeline) NewSession(identity string) *Session {
	return &Session{
		p:        p,
		identity: identity,
		log:      p.log.With("component", "Session"),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		State:  s.state,
		Topic:  s.topic,
		Title:  s.title,
		Cards:  append([]content.Card(nil), s.cards...),
		Cached: s.cached,
		Err:    s.err,
	}
}

// Load fetches topic. It is allowed from Idle, Ready and Failed.
func (s *Session) Load(ctx context.Context, topic string) (Result, error) {
	s.mu.Lock()
	if s.state == StateLoading || s.state == StateAppendingClarification {
		s.mu.Unlock()
		return Result{}, ErrBusy
	}
	s.state = StateLoading
	s.topic = topic
	s.err = nil
	s.quiz, s.quizErr, s.quizDone = nil, nil, nil
	s.mu.Unlock()

	res, err := s.p.LoadSession(ctx, topic, s.identity)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		s.err = err
		s.title, s.cards, s.cached = "", nil, false
		return Result{}, err
	}
	s.state = StateReady
	s.title = res.Title
	s.cards = append([]content.Card(nil), res.Cards...)
	s.cached = res.Cached
	return res, nil
}

// Clarify appends one clarification card. Only valid from Ready; the session
// returns to Ready whether or not generation succeeds.
func (s *Session) Clarify(ctx context.Context, confusion string) (content.Card, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return content.Card{}, ErrNotReady
	}
	s.state = StateAppendingClarification
	topic := s.title
	if topic == "" {
		topic = s.topic
	}
	s.mu.Unlock()

	card, err := s.p.AppendClarification(ctx, s.identity, topic, confusion)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateReady
	if err != nil {
		return content.Card{}, err
	}
	s.cards = append(s.cards, card)
	return card, nil
}

// StartQuiz issues the companion quiz request for the loaded topic. A failed
// quiz is logged and leaves the quiz unavailable; the session is unaffected.
// The returned channel closes when the request finishes.
func (s *Session) StartQuiz(ctx context.Context, count int) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return nil, ErrNotReady
	}
	if s.quizDone != nil {
		done := s.quizDone
		s.mu.Unlock()
		return done, nil
	}
	topic := s.title
	if topic == "" {
		topic = s.topic
	}
	done := make(chan struct{})
	s.quizDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		qs, err := s.p.LoadQuiz(ctx, topic, count)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.quizDone != done {
			return
		}
		if err != nil {
			s.log.Warn("companion quiz failed", "topic", topic, "error", err)
			s.quizErr = err
			return
		}
		s.quiz = qs
	}()
	return done, nil
}

// Quiz returns the companion quiz once it has arrived.
func (s *Session) Quiz() ([]content.QuizQuestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quiz == nil {
		return nil, false
	}
	return append([]content.QuizQuestion(nil), s.quiz...), true
}

// QuizErr reports why the companion quiz is unavailable, if it failed.
func (s *Session) QuizErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quizErr
}
