package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/studycards/internal/domain/content"
)

type rawQuestion struct {
	Question           string            `json:"question"`
	Type               string            `json:"type"`
	Options            []json.RawMessage `json:"options"`
	CorrectAnswer      json.RawMessage   `json:"correctAnswer"`
	CorrectAnswerSnake json.RawMessage   `json:"correct_answer"`
	Answer             json.RawMessage   `json:"answer"`
	Explanation        string            `json:"explanation"`
}

// Quiz normalizes a quiz response. Questions that cannot be repaired to satisfy
// correctAnswer ∈ options (with the right option count) are dropped; if none
// survive a single true/false placeholder is returned.
func Quiz(raw string, topic string) []content.QuizQuestion {
	var out []content.QuizQuestion
	accept := func(msg json.RawMessage) bool {
		var arr []rawQuestion
		switch {
		case startsWith(msg, '['):
			if json.Unmarshal(msg, &arr) != nil {
				return false
			}
		case startsWith(msg, '{'):
			var wrapped struct {
				Questions []rawQuestion `json:"questions"`
			}
			if json.Unmarshal(msg, &wrapped) != nil {
				return false
			}
			arr = wrapped.Questions
		default:
			return false
		}
		qs := make([]content.QuizQuestion, 0, len(arr))
		for _, rq := range arr {
			if q, ok := repairQuestion(rq); ok {
				qs = append(qs, q)
			}
		}
		if len(qs) == 0 {
			return false
		}
		out = qs
		return true
	}
	if _, _, ok := Extract(raw, accept, '[', '{'); ok {
		return out
	}
	return []content.QuizQuestion{PlaceholderQuestion(topic)}
}

// PlaceholderQuestion is the quiz fallback when no usable questions were produced.
func PlaceholderQuestion(topic string) content.QuizQuestion {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "this topic"
	}
	return content.QuizQuestion{
		Question:      fmt.Sprintf("The quiz for %q could not be prepared. Is reviewing the explanation cards a good next step?", topic),
		Type:          content.TrueFalse,
		Options:       []string{"True", "False"},
		CorrectAnswer: "True",
		Explanation:   "The quiz response was not in a usable format, so a placeholder question is shown instead.",
	}
}

func repairQuestion(rq rawQuestion) (content.QuizQuestion, bool) {
	question := strings.TrimSpace(rq.Question)
	if question == "" {
		return content.QuizQuestion{}, false
	}

	options := make([]string, 0, len(rq.Options))
	for _, o := range rq.Options {
		if s := strings.TrimSpace(asString(o)); s != "" {
			options = append(options, s)
		}
	}

	answer := ""
	for _, candidate := range []json.RawMessage{rq.CorrectAnswer, rq.CorrectAnswerSnake, rq.Answer} {
		if s := strings.TrimSpace(asString(candidate)); s != "" {
			answer = s
			break
		}
	}

	qType := parseQuestionType(rq.Type, len(options))
	if qType == content.TrueFalse && len(options) == 0 {
		options = []string{"True", "False"}
	}
	if n := qType.OptionCount(); n == 0 || len(options) != n {
		return content.QuizQuestion{}, false
	}

	correct, ok := matchAnswer(answer, options)
	if !ok {
		return content.QuizQuestion{}, false
	}
	return content.QuizQuestion{
		Question:      question,
		Type:          qType,
		Options:       options,
		CorrectAnswer: correct,
		Explanation:   strings.TrimSpace(rq.Explanation),
	}, true
}

func parseQuestionType(raw string, optionCount int) content.QuestionType {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.NewReplacer("-", "_", " ", "_", "/", "_").Replace(t)
	switch t {
	case "multiple_choice", "multiplechoice", "mcq", "multiple":
		return content.MultipleChoice
	case "true_false", "truefalse", "boolean", "bool", "tf":
		return content.TrueFalse
	}
	switch optionCount {
	case 0, 2:
		return content.TrueFalse
	case 4:
		return content.MultipleChoice
	default:
		return ""
	}
}

// matchAnswer resolves answer to one of options: exact text, then case and
// whitespace insensitive, then a letter label (A-D), then a 1-based position.
// Any other bare number is rejected.
func matchAnswer(answer string, options []string) (string, bool) {
	if answer == "" {
		return "", false
	}
	for _, o := range options {
		if o == answer {
			return o, true
		}
	}
	for _, o := range options {
		if strings.EqualFold(strings.Join(strings.Fields(o), " "), strings.Join(strings.Fields(answer), " ")) {
			return o, true
		}
	}
	label := strings.TrimRight(answer, ".):")
	if len(label) == 1 {
		idx := int(strings.ToUpper(label)[0]) - 'A'
		if idx >= 0 && idx < len(options) {
			return options[idx], true
		}
	}
	if pos, err := strconv.Atoi(label); err == nil && pos >= 1 && pos <= len(options) {
		return options[pos-1], true
	}
	return "", false
}
