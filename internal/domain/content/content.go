// Package content holds the card and quiz model shared by the prompt builder,
// the normalizer and the session pipeline.
package content

import "strings"

type Action string

const (
	ActionExplanation   Action = "explanation"
	ActionClarification Action = "clarification"
	ActionQuiz          Action = "quiz"
	ActionQuizFeedback  Action = "quiz_feedback"
)

func (a Action) Valid() bool {
	switch a {
	case ActionExplanation, ActionClarification, ActionQuiz, ActionQuizFeedback:
		return true
	default:
		return false
	}
}

func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	return a, a.Valid()
}

const DefaultQuizCount = 3
const MaxQuizCount = 10

// Payload carries the per-action fields of a content request. Unused fields stay zero.
type Payload struct {
	Topic     string `json:"topic,omitempty"`
	Confusion string `json:"confusion,omitempty"`
	Count     int    `json:"count,omitempty"`
	Correct   int    `json:"correct,omitempty"`
	Total     int    `json:"total,omitempty"`
}

// QuizCount returns Count clamped to [1, MaxQuizCount], defaulting to DefaultQuizCount.
func (p Payload) QuizCount() int {
	switch {
	case p.Count <= 0:
		return DefaultQuizCount
	case p.Count > MaxQuizCount:
		return MaxQuizCount
	default:
		return p.Count
	}
}

type Request struct {
	Action  Action  `json:"action"`
	Payload Payload `json:"payload"`
}

type Card struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Explanation is the canonical explanation shape. CleanTopic is the model's
// title for the topic and becomes the history key.
type Explanation struct {
	CleanTopic string `json:"cleanTopic"`
	Cards      []Card `json:"cards"`
}

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
)

// OptionCount is the number of options a well-formed question of this type carries.
func (t QuestionType) OptionCount() int {
	switch t {
	case MultipleChoice:
		return 4
	case TrueFalse:
		return 2
	default:
		return 0
	}
}

type QuizQuestion struct {
	Question      string       `json:"question"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
}

// Valid reports whether the question satisfies the option-count and
// correctAnswer ∈ options invariants.
func (q QuizQuestion) Valid() bool {
	if strings.TrimSpace(q.Question) == "" {
		return false
	}
	if n := q.Type.OptionCount(); n == 0 || len(q.Options) != n {
		return false
	}
	for _, opt := range q.Options {
		if opt == q.CorrectAnswer {
			return true
		}
	}
	return false
}

type Feedback struct {
	Feedback string `json:"feedback"`
}
