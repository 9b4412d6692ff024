package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionBank represents a collection of questions.
type QuestionBank struct {
	ID            uuid.UUID `json:"id"`
	AuthorID      *int      `json:"author_id,omitempty"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QuestionBankRequest is the payload for creating or updating a bank.
type QuestionBankRequest struct {
	Name        string `json:"name" binding:"required,min=3,max=255"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}
