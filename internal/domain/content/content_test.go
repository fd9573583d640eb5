package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuizCount(t *testing.T) {
	assert.Equal(t, DefaultQuizCount, Payload{}.QuizCount())
	assert.Equal(t, 5, Payload{Count: 5}.QuizCount())
	assert.Equal(t, MaxQuizCount, Payload{Count: 99}.QuizCount())
}

func TestQuizQuestionValid(t *testing.T) {
	q := QuizQuestion{
		Question:      "Is Go compiled?",
		Type:          TrueFalse,
		Options:       []string{"True", "False"},
		CorrectAnswer: "True",
	}
	assert.True(t, q.Valid())

	q.CorrectAnswer = "Maybe"
	assert.False(t, q.Valid())

	q.CorrectAnswer = "True"
	q.Type = MultipleChoice
	assert.False(t, q.Valid(), "multiple choice needs four options")
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction(" Quiz_Feedback ")
	assert.True(t, ok)
	assert.Equal(t, ActionQuizFeedback, a)

	_, ok = ParseAction("summarize")
	assert.False(t, ok)
}
