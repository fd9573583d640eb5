package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studycards/internal/domain/content"
	"github.com/yungbote/studycards/internal/generation"
	"github.com/yungbote/studycards/internal/platform/logger"
)

func TestSessionLifecycle(t *testing.T) {
	fail := true
	gen := &fakeGen{respond: func(a content.Action, p content.Payload) (string, error) {
		if a == content.ActionExplanation && fail {
			return "", generation.ErrNetwork
		}
		return defaultResponse(a, p)
	}}
	s := NewPipeline(gen, newFakeCache(), logger.Nop()).NewSession("alice")
	ctx := context.Background()

	assert.Equal(t, StateIdle, s.State())
	_, err := s.Clarify(ctx, "why?")
	require.ErrorIs(t, err, ErrNotReady)

	_, err = s.Load(ctx, "Go")
	require.ErrorIs(t, err, generation.ErrNetwork)
	assert.Equal(t, StateFailed, s.State())
	assert.Error(t, s.View().Err)
	_, err = s.Clarify(ctx, "why?")
	require.ErrorIs(t, err, ErrNotReady)

	fail = false
	res, err := s.Load(ctx, "Go")
	require.NoError(t, err)
	assert.Equal(t, StateReady, s.State())

	card, err := s.Clarify(ctx, "what is a channel?")
	require.NoError(t, err)
	assert.Equal(t, StateReady, s.State())

	view := s.View()
	require.Len(t, view.Cards, len(res.Cards)+1)
	assert.Equal(t, card, view.Cards[len(view.Cards)-1])
	assert.Equal(t, "Go", view.Title)
	assert.Equal(t, 1, gen.count(content.ActionClarification))
}

func TestSessionClarifyFailureReturnsToReady(t *testing.T) {
	gen := &fakeGen{respond: func(a content.Action, p content.Payload) (string, error) {
		if a == content.ActionClarification {
			return "", &generation.ServerError{StatusCode: 500, Details: "quota"}
		}
		return defaultResponse(a, p)
	}}
	s := NewPipeline(gen, nil, logger.Nop()).NewSession("")
	ctx := context.Background()

	res, err := s.Load(ctx, "Go")
	require.NoError(t, err)

	_, err = s.Clarify(ctx, "huh")
	var se *generation.ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StateReady, s.State())
	assert.Len(t, s.View().Cards, len(res.Cards))
}

func TestSessionLoadWhileLoadingIsBusy(t *testing.T) {
	gen := &fakeGen{gate: make(chan struct{})}
	s := NewPipeline(gen, nil, logger.Nop()).NewSession("")

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), "Go")
		done <- err
	}()
	require.Eventually(t, func() bool { return s.State() == StateLoading }, time.Second, 5*time.Millisecond)

	_, err := s.Load(context.Background(), "Rust")
	require.ErrorIs(t, err, ErrBusy)
	_, err = s.Clarify(context.Background(), "x")
	require.ErrorIs(t, err, ErrNotReady)

	close(gen.gate)
	require.NoError(t, <-done)
	assert.Equal(t, StateReady, s.State())
}

func TestSessionCompanionQuiz(t *testing.T) {
	gen := &fakeGen{}
	s := NewPipeline(gen, nil, logger.Nop()).NewSession("")
	ctx := context.Background()

	_, err := s.StartQuiz(ctx, 3)
	require.ErrorIs(t, err, ErrNotReady)

	_, err = s.Load(ctx, "Go")
	require.NoError(t, err)
	done, err := s.StartQuiz(ctx, 3)
	require.NoError(t, err)
	again, err := s.StartQuiz(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, done, again)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("quiz never finished")
	}
	qs, ok := s.Quiz()
	require.True(t, ok)
	require.NotEmpty(t, qs)
	assert.Equal(t, 1, gen.count(content.ActionQuiz))
}

func TestSessionCompanionQuizFailureLeavesSessionReady(t *testing.T) {
	gen := &fakeGen{respond: func(a content.Action, p content.Payload) (string, error) {
		if a == content.ActionQuiz {
			return "", fmt.Errorf("boom: %w", generation.ErrTimeout)
		}
		return defaultResponse(a, p)
	}}
	s := NewPipeline(gen, nil, logger.Nop()).NewSession("")
	ctx := context.Background()

	_, err := s.Load(ctx, "Go")
	require.NoError(t, err)
	done, err := s.StartQuiz(ctx, 3)
	require.NoError(t, err)
	<-done

	_, ok := s.Quiz()
	assert.False(t, ok)
	assert.ErrorIs(t, s.QuizErr(), generation.ErrTimeout)
	assert.Equal(t, StateReady, s.State())
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrEmptyTopic, "Please enter a topic to learn about."},
		{fmt.Errorf("x: %w", generation.ErrNetwork), "Could not reach the content service. Check your connection and try again."},
		{generation.ErrParse, "The content service sent a response we could not read. Please try again."},
		{&generation.ServerError{StatusCode: 500, Details: "Missing Gemini API Key"}, "The content service reported an error: Missing Gemini API Key"},
		{context.Canceled, "The request was cancelled."},
		{errors.New("mystery"), "Something went wrong. Please try again."},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, UserMessage(tc.err))
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "appending_clarification", StateAppendingClarification.String())
	assert.Equal(t, "unknown", State(42).String())
}
