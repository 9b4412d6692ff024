package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "draft"
	ExamStatusPublished ExamStatus = "published"
)

// Exam represents an exam entity. Once published it is immutable.
type Exam struct {
	ID                 uuid.UUID   `json:"id"`
	Title              string      `json:"title"`
	Code               string      `json:"code"`
	Description        string      `json:"description"`
	AuthorID           *int        `json:"author_id,omitempty"`
	QuestionIDs        []uuid.UUID `json:"question_ids"`
	TimeLimitMinutes   *int        `json:"time_limit_minutes"`
	RandomizeQuestions bool        `json:"randomize_questions"`
	Status             ExamStatus  `json:"status"`
	PublishedAt        *time.Time  `json:"published_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// TimeLimit returns the exam's time limit, or zero when untimed.
func (e *Exam) TimeLimit() time.Duration {
	if e.TimeLimitMinutes == nil || *e.TimeLimitMinutes <= 0 {
		return 0
	}
	return time.Duration(*e.TimeLimitMinutes) * time.Minute
}

// ExamRequest is the payload for creating or updating a draft exam.
type ExamRequest struct {
	Title              string      `json:"title" binding:"required,min=3,max=255"`
	Code               string      `json:"code" binding:"required,min=2,max=50,exam_code"`
	Description        string      `json:"description" binding:"omitempty,max=2000"`
	QuestionIDs        []uuid.UUID `json:"question_ids" binding:"omitempty,unique"`
	TimeLimitMinutes   *int        `json:"time_limit_minutes" binding:"omitempty,min=1,max=600"`
	RandomizeQuestions bool        `json:"randomize_questions"`
}

// ExamPaper is the Redis-cached student-facing view of an exam
// (no correct answers).
type ExamPaper struct {
	ExamID           uuid.UUID            `json:"exam_id"`
	Title            string               `json:"title"`
	TimeLimitMinutes *int                 `json:"time_limit_minutes"`
	Questions        []QuestionForStudent `json:"questions"`
}

// AnswerKeyEntry is the server-held correct answer for one question.
type AnswerKeyEntry struct {
	Type    QuestionType `json:"type"`
	Correct string       `json:"correct"`
}

// AnswerKey maps question id to its correct answer. It never leaves the server.
type AnswerKey map[string]AnswerKeyEntry

// StudentExamSummary is one row of a student's exam listing.
type StudentExamSummary struct {
	ExamID           uuid.UUID      `json:"exam_id"`
	Title            string         `json:"title"`
	Code             string         `json:"code"`
	TimeLimitMinutes *int           `json:"time_limit_minutes"`
	LatestAttempt    *AttemptDigest `json:"latest_attempt,omitempty"`
}

// StudentExamList is the response of a student's exam listing.
type StudentExamList struct {
	ClassID *int                 `json:"class_id"`
	BatchID *int                 `json:"batch_id"`
	Exams   []StudentExamSummary `json:"exams"`
}
