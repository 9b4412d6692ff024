package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "single_choice"
	QuestionTypeFreeText     QuestionType = "free_text"
)

// Question represents a single bank question. CorrectAnswer is only ever
// serialized on staff endpoints; students receive QuestionForStudent.
type Question struct {
	ID            uuid.UUID         `json:"id"`
	QBankID       uuid.UUID         `json:"qbank_id"`
	Text          string            `json:"text"`
	Type          QuestionType      `json:"type"`
	Options       map[string]string `json:"options,omitempty"`
	CorrectAnswer string            `json:"correct_answer"`
	OrderNum      int               `json:"order_num"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ForStudent strips the correct answer.
func (q *Question) ForStudent() QuestionForStudent {
	var opts map[string]string
	if q.Type == QuestionTypeSingleChoice && len(q.Options) > 0 {
		opts = make(map[string]string, len(q.Options))
		for k, v := range q.Options {
			opts[k] = v
		}
	}
	return QuestionForStudent{
		ID:      q.ID,
		Text:    q.Text,
		Type:    q.Type,
		Options: opts,
	}
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID      uuid.UUID         `json:"id"`
	Text    string            `json:"text"`
	Type    QuestionType      `json:"type"`
	Options map[string]string `json:"options,omitempty"`
}

// AddQuestionRequest is the payload for adding a question to a bank.
type AddQuestionRequest struct {
	Text          string            `json:"text" binding:"required,min=1,max=4000"`
	Type          QuestionType      `json:"type" binding:"required,oneof=single_choice free_text"`
	Options       map[string]string `json:"options" binding:"omitempty,dive,keys,min=1,max=10,endkeys,required,max=1000"`
	CorrectAnswer string            `json:"correct_answer" binding:"omitempty,max=500"`
	OrderNum      int               `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a bank's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,dive"`
}
