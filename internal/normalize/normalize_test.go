package normalize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studycards/internal/domain/content"
)

func TestExplanationFromFencedArrayWithCommentary(t *testing.T) {
	raw := "Sure! ```json\n[{\"title\":\"A\",\"content\":\"B\"}]\n```"

	got := Explanation(raw, "letters")

	assert.Equal(t, "letters", got.CleanTopic)
	assert.Equal(t, []content.Card{{Title: "A", Content: "B"}}, got.Cards)
}

func TestExplanationUnwrapsObject(t *testing.T) {
	raw := `{"cleanTopic":"Photosynthesis","cards":[{"title":"What","content":"Light to sugar"},{"title":"Where","content":"Chloroplasts"}]}`

	got := Explanation(raw, "photosynthesis??")

	assert.Equal(t, "Photosynthesis", got.CleanTopic)
	require.Len(t, got.Cards, 2)
	assert.Equal(t, "Chloroplasts", got.Cards[1].Content)
}

func TestExplanationIdempotentAcrossWrapping(t *testing.T) {
	canonical := `{"cleanTopic":"TCP","cards":[{"title":"Handshake","content":"SYN, SYN-ACK, ACK"}]}`
	wrapped := "Here is your explanation:\n```json\n" + canonical + "\n```\nHope this helps!"

	assert.Equal(t, Explanation(canonical, "tcp"), Explanation(wrapped, "tcp"))
}

func TestExplanationFallbackStripsFences(t *testing.T) {
	raw := "```markdown\nI cannot produce JSON today, but TCP is a protocol.\n```"

	got := Explanation(raw, "TCP")

	require.Len(t, got.Cards, 1)
	assert.Equal(t, "TCP", got.Cards[0].Title)
	assert.Equal(t, "I cannot produce JSON today, but TCP is a protocol.", got.Cards[0].Content)
	assert.Equal(t, "TCP", got.CleanTopic)
}

func TestExplanationFallbackOnWrongShape(t *testing.T) {
	got := Explanation(`{"answer": 42}`, "life")

	require.Len(t, got.Cards, 1)
	assert.Equal(t, `{"answer": 42}`, got.Cards[0].Content)
}

func TestExplanationEmptyTextStillYieldsCard(t *testing.T) {
	got := Explanation("   ", "void")

	require.Len(t, got.Cards, 1)
	assert.NotEmpty(t, got.Cards[0].Content)
}

func TestExplanationSkipsEmptyCards(t *testing.T) {
	got := Explanation(`[{"title":"","content":""},{"title":"Keep","content":"me"}]`, "x")

	assert.Equal(t, []content.Card{{Title: "Keep", Content: "me"}}, got.Cards)
}

func TestCardsAcceptsArrayObjectAndSingleCard(t *testing.T) {
	assert.Equal(t, []content.Card{{Title: "A", Content: "B"}}, Cards(`[{"title":"A","content":"B"}]`, "t"))
	assert.Equal(t, []content.Card{{Title: "A", Content: "B"}}, Cards(`{"cleanTopic":"t","cards":[{"title":"A","content":"B"}]}`, "t"))
	assert.Equal(t, []content.Card{{Title: "A", Content: "B"}}, Cards(`Okay: {"title":"A","content":"B"}`, "t"))
}

func TestCardsFallback(t *testing.T) {
	got := Cards("just prose", "topic")
	assert.Equal(t, []content.Card{{Title: "topic", Content: "just prose"}}, got)
}

func TestFeedback(t *testing.T) {
	assert.Equal(t, "Great job", Feedback("```json\n{\"feedback\":\"Great job\"}\n```").Feedback)
	assert.Equal(t, "Keep going", Feedback(`"Keep going"`).Feedback)
	assert.Equal(t, "plain words", Feedback("plain words").Feedback)
}

func TestExtractStrategyOrder(t *testing.T) {
	accept := func(json.RawMessage) bool { return true }

	_, name, ok := Extract(`[1,2]`, accept, '[')
	require.True(t, ok)
	assert.Equal(t, "whole", name)

	_, name, ok = Extract("```\n[1,2]\n```", accept, '[')
	require.True(t, ok)
	assert.Equal(t, "fenced", name)

	_, name, ok = Extract(`result: [1,2] done`, accept, '[')
	require.True(t, ok)
	assert.Equal(t, "span", name)

	msg, name, ok := Extract(`first {"a":"}"} then {"b":2} trailing }`, accept, '{')
	require.True(t, ok)
	assert.Equal(t, "balanced", name)
	assert.JSONEq(t, `{"a":"}"}`, string(msg))
}

func TestExtractTriesSuccessiveBalancedGroups(t *testing.T) {
	isObject := func(msg json.RawMessage) bool { return startsWith(msg, '{') }

	msg, name, ok := Extract(`Note (see {this}): {"b":2} and {"c":3}`, isObject, '{')
	require.True(t, ok)
	assert.Equal(t, "balanced", name)
	assert.JSONEq(t, `{"b":2}`, string(msg))

	wantsC := func(msg json.RawMessage) bool { return strings.Contains(string(msg), `"c"`) }
	msg, _, ok = Extract(`{"b":2} then {"c":3} {oops`, wantsC, '{')
	require.True(t, ok)
	assert.JSONEq(t, `{"c":3}`, string(msg))

	msg, _, ok = Extract(`{note: {"inner":true}}`, isObject, '{')
	require.True(t, ok)
	assert.JSONEq(t, `{"inner":true}`, string(msg))
}

func TestExplanationKeepsCleanTopicAfterBracedProse(t *testing.T) {
	raw := `Note (see {this}): {"cleanTopic":"TCP","cards":[{"title":"A","content":"B"}]}`

	got := Explanation(raw, "tcp")

	assert.Equal(t, "TCP", got.CleanTopic)
	assert.Equal(t, []content.Card{{Title: "A", Content: "B"}}, got.Cards)
}

func TestExtractRejectsUnparseable(t *testing.T) {
	_, _, ok := Extract(`{not json`, nil)
	assert.False(t, ok)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "a\nb", StripFences("```go\na\nb\n```"))
}
