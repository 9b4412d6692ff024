package service

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	q1, q2 := uuid.New(), uuid.New()
	order := []uuid.UUID{q1, q2}
	key := model.AnswerKey{
		q1.String(): {Type: model.QuestionTypeSingleChoice, Correct: "B"},
		q2.String(): {Type: model.QuestionTypeSingleChoice, Correct: "A"},
	}

	tests := []struct {
		name    string
		answers map[string]string
		want    model.AttemptResult
	}{
		{
			name:    "one right one wrong",
			answers: map[string]string{q1.String(): "B", q2.String(): "C"},
			want:    model.AttemptResult{Score: 1, TotalQuestions: 2, CorrectCount: 1, WrongCount: 1},
		},
		{
			name:    "unanswered counts as wrong",
			answers: map[string]string{q1.String(): "B"},
			want:    model.AttemptResult{Score: 1, TotalQuestions: 2, CorrectCount: 1, WrongCount: 1, UnansweredCount: 1},
		},
		{
			name:    "option keys are case sensitive",
			answers: map[string]string{q1.String(): "b", q2.String(): "A"},
			want:    model.AttemptResult{Score: 1, TotalQuestions: 2, CorrectCount: 1, WrongCount: 1},
		},
		{
			name:    "unknown ids ignored",
			answers: map[string]string{uuid.NewString(): "B", q1.String(): "B", q2.String(): "A"},
			want:    model.AttemptResult{Score: 2, TotalQuestions: 2, CorrectCount: 2},
		},
		{
			name:    "nothing answered",
			answers: nil,
			want:    model.AttemptResult{TotalQuestions: 2, WrongCount: 2, UnansweredCount: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(order, key, tt.answers))
		})
	}
}

func TestScoreFreeText(t *testing.T) {
	q1, q2 := uuid.New(), uuid.New()
	key := model.AnswerKey{
		q1.String(): {Type: model.QuestionTypeFreeText, Correct: "Paris"},
		q2.String(): {Type: model.QuestionTypeFreeText},
	}
	res := Score([]uuid.UUID{q1, q2}, key, map[string]string{
		q1.String(): "  paris ",
		q2.String(): "anything",
	})
	assert.Equal(t, 1, res.CorrectCount)
	assert.Equal(t, 1, res.WrongCount)
	assert.Equal(t, 0, res.UnansweredCount)
}

func TestSanitizeAnswers(t *testing.T) {
	q1 := uuid.New()
	raw := map[string]string{"not-a-uuid": "A", uuid.NewString(): "B"}
	raw["{"+q1.String()+"}"] = "C"

	assert.Equal(t, map[string]string{q1.String(): "C"}, sanitizeAnswers([]uuid.UUID{q1}, raw))
}

func TestSanitizeAnswersResolvesSpellingsOfOneQuestion(t *testing.T) {
	q1 := uuid.MustParse("0b7e6a52-3c1d-4f7a-9d2e-5a6b7c8d9e0f")
	upper := strings.ToUpper(q1.String())
	braced := "{" + q1.String() + "}"

	// The canonical spelling wins whatever else is sent.
	for i := 0; i < 20; i++ {
		got := sanitizeAnswers([]uuid.UUID{q1}, map[string]string{upper: "A", q1.String(): "B", braced: "C"})
		require.Equal(t, map[string]string{q1.String(): "B"}, got)
	}

	// Without it, the first spelling in byte order wins.
	for i := 0; i < 20; i++ {
		got := sanitizeAnswers([]uuid.UUID{q1}, map[string]string{braced: "C", upper: "A"})
		require.Equal(t, map[string]string{q1.String(): "A"}, got)
	}
}
