package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/yungbote/studycards/internal/domain/content"
)

type fakeGen struct {
	mu      sync.Mutex
	calls   []content.Request
	respond func(content.Action, content.Payload) (string, error)
	gate    chan struct{}
}

func (g *fakeGen) Generate(ctx context.Context, action content.Action, payload content.Payload) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, content.Request{Action: action, Payload: payload})
	gate := g.gate
	g.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.respond == nil {
		return defaultResponse(action, payload)
	}
	return g.respond(action, payload)
}

func (g *fakeGen) count(action content.Action) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.Action == action {
			n++
		}
	}
	return n
}

func (g *fakeGen) last() content.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[len(g.calls)-1]
}

func defaultResponse(action content.Action, payload content.Payload) (string, error) {
	var v any
	switch action {
	case content.ActionExplanation:
		v = content.Explanation{CleanTopic: payload.Topic, Cards: []content.Card{
			{Title: "Overview", Content: payload.Topic + " in brief"},
			{Title: "Details", Content: "More about " + payload.Topic},
		}}
	case content.ActionClarification:
		v = []content.Card{{Title: "Clarified", Content: "About " + payload.Confusion}}
	case content.ActionQuiz:
		v = []content.QuizQuestion{{
			Question:      "Is " + payload.Topic + " fun?",
			Type:          content.TrueFalse,
			Options:       []string{"True", "False"},
			CorrectAnswer: "True",
		}}
	case content.ActionQuizFeedback:
		v = content.Feedback{Feedback: "Nice work"}
	default:
		return "", errors.New("unexpected action")
	}
	raw, err := json.Marshal(v)
	return "Here you go:\n```json\n" + string(raw) + "\n```", err
}

type fakeCache struct {
	mu        sync.Mutex
	entries   map[string][]content.Card
	lookups   int
	writes    int
	lookupErr error
	saveErr   error
	saved     chan string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]content.Card{}, saved: make(chan string, 16)}
}

func cacheKey(owner, topic string) string { return owner + "|" + topic }

func (c *fakeCache) Lookup(_ context.Context, owner, topic string) ([]content.Card, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	if c.lookupErr != nil {
		return nil, false, c.lookupErr
	}
	cards, ok := c.entries[cacheKey(owner, topic)]
	return append([]content.Card(nil), cards...), ok, nil
}

func (c *fakeCache) Save(_ context.Context, owner, topic string, cards []content.Card) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if c.saveErr != nil {
		return c.saveErr
	}
	c.entries[cacheKey(owner, topic)] = append([]content.Card(nil), cards...)
	select {
	case c.saved <- topic:
	default:
	}
	return nil
}

func (c *fakeCache) Append(_ context.Context, owner, topic string, cards []content.Card) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if c.saveErr != nil {
		return c.saveErr
	}
	k := cacheKey(owner, topic)
	if _, ok := c.entries[k]; !ok {
		return nil
	}
	c.entries[k] = append(c.entries[k], cards...)
	return nil
}

func (c *fakeCache) get(owner, topic string) ([]content.Card, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cards, ok := c.entries[cacheKey(owner, topic)]
	return cards, ok
}

func (c *fakeCache) stats() (lookups, writes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups, c.writes
}
