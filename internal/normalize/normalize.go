// Package normalize turns untrusted model text into the canonical card, quiz and
// feedback shapes. Every function returns a usable value: when the text cannot be
// parsed into the expected shape a fallback structure is synthesized instead.
package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/studycards/internal/domain/content"
)

const emptyNotice = "No explanation was returned for this topic. Please try again."

type rawCard struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type rawExplanation struct {
	CleanTopic string     `json:"cleanTopic"`
	Cards      *[]rawCard `json:"cards"`
}

// Explanation normalizes an explanation response. An object with cleanTopic and
// cards is unwrapped; a bare card array is wrapped with topic as the clean title.
func Explanation(raw string, topic string) content.Explanation {
	topic = strings.TrimSpace(topic)
	var out content.Explanation
	accept := func(msg json.RawMessage) bool {
		if exp, ok := decodeExplanationObject(msg); ok {
			out = exp
			return true
		}
		if cards, ok := decodeCardArray(msg); ok {
			out = content.Explanation{Cards: cards}
			return true
		}
		return false
	}
	if _, _, ok := Extract(raw, accept, '{', '['); ok {
		if strings.TrimSpace(out.CleanTopic) == "" {
			out.CleanTopic = topic
		}
		out.CleanTopic = strings.TrimSpace(out.CleanTopic)
		return out
	}
	return content.Explanation{CleanTopic: topic, Cards: []content.Card{fallbackCard(raw, topic)}}
}

// Cards normalizes a clarification response: a card array, or an object carrying cards.
func Cards(raw string, topic string) []content.Card {
	var out []content.Card
	accept := func(msg json.RawMessage) bool {
		if cards, ok := decodeCardArray(msg); ok {
			out = cards
			return true
		}
		if exp, ok := decodeExplanationObject(msg); ok {
			out = exp.Cards
			return true
		}
		if card, ok := decodeSingleCard(msg); ok {
			out = []content.Card{card}
			return true
		}
		return false
	}
	if _, _, ok := Extract(raw, accept, '[', '{'); ok {
		return out
	}
	return []content.Card{fallbackCard(raw, topic)}
}

func decodeExplanationObject(msg json.RawMessage) (content.Explanation, bool) {
	if !startsWith(msg, '{') {
		return content.Explanation{}, false
	}
	var obj rawExplanation
	if err := json.Unmarshal(msg, &obj); err != nil || obj.Cards == nil {
		return content.Explanation{}, false
	}
	cards := cleanCards(*obj.Cards)
	if len(cards) == 0 {
		return content.Explanation{}, false
	}
	return content.Explanation{CleanTopic: strings.TrimSpace(obj.CleanTopic), Cards: cards}, true
}

func decodeCardArray(msg json.RawMessage) ([]content.Card, bool) {
	if !startsWith(msg, '[') {
		return nil, false
	}
	var arr []rawCard
	if err := json.Unmarshal(msg, &arr); err != nil {
		return nil, false
	}
	cards := cleanCards(arr)
	return cards, len(cards) > 0
}

func decodeSingleCard(msg json.RawMessage) (content.Card, bool) {
	if !startsWith(msg, '{') {
		return content.Card{}, false
	}
	var c rawCard
	if err := json.Unmarshal(msg, &c); err != nil {
		return content.Card{}, false
	}
	cards := cleanCards([]rawCard{c})
	if len(cards) == 0 {
		return content.Card{}, false
	}
	return cards[0], true
}

func cleanCards(in []rawCard) []content.Card {
	out := make([]content.Card, 0, len(in))
	for _, c := range in {
		title := strings.TrimSpace(c.Title)
		body := strings.TrimSpace(c.Content)
		if title == "" && body == "" {
			continue
		}
		out = append(out, content.Card{Title: title, Content: body})
	}
	return out
}

func fallbackCard(raw string, topic string) content.Card {
	body := StripFences(raw)
	if body == "" {
		body = emptyNotice
	}
	title := strings.TrimSpace(topic)
	if title == "" {
		title = "Explanation"
	}
	return content.Card{Title: title, Content: body}
}

var fenceMarker = regexp.MustCompile("```[A-Za-z0-9_-]*")

// StripFences removes literal code-fence markers (with any language tag) from text.
func StripFences(raw string) string {
	return strings.TrimSpace(fenceMarker.ReplaceAllString(raw, ""))
}

func startsWith(msg json.RawMessage, b byte) bool {
	s := strings.TrimSpace(string(msg))
	return s != "" && s[0] == b
}

// Feedback normalizes a quiz_feedback response: {"feedback": ...} or a bare JSON string.
func Feedback(raw string) content.Feedback {
	var out content.Feedback
	accept := func(msg json.RawMessage) bool {
		var obj content.Feedback
		if startsWith(msg, '{') && json.Unmarshal(msg, &obj) == nil && strings.TrimSpace(obj.Feedback) != "" {
			out.Feedback = strings.TrimSpace(obj.Feedback)
			return true
		}
		var s string
		if json.Unmarshal(msg, &s) == nil && strings.TrimSpace(s) != "" {
			out.Feedback = strings.TrimSpace(s)
			return true
		}
		return false
	}
	if _, _, ok := Extract(raw, accept, '{'); ok {
		return out
	}
	return content.Feedback{Feedback: StripFences(raw)}
}

// asString flattens a JSON scalar to its string form.
func asString(msg json.RawMessage) string {
	if len(msg) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(msg, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(msg, &n) == nil {
		return n.String()
	}
	var b bool
	if json.Unmarshal(msg, &b) == nil {
		return strconv.FormatBool(b)
	}
	return ""
}
