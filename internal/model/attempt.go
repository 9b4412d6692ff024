package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates the attempt state machine. submitted is terminal.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
)

// Attempt is one student's instance of taking one exam.
type Attempt struct {
	ID            uuid.UUID         `json:"id"`
	ExamID        uuid.UUID         `json:"exam_id"`
	StudentID     int               `json:"student_id"`
	QuestionOrder []uuid.UUID       `json:"question_order"`
	Status        AttemptStatus     `json:"status"`
	DraftAnswers  map[string]string `json:"draft_answers,omitempty"`
	Answers       map[string]string `json:"answers,omitempty"`
	Result        *AttemptResult    `json:"result,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	SubmittedAt   *time.Time        `json:"submitted_at,omitempty"`
}

// Expired reports whether now is past the deadline plus grace.
// Untimed attempts never expire.
func (a *Attempt) Expired(now time.Time, grace time.Duration) bool {
	if a.ExpiresAt == nil {
		return false
	}
	return now.After(a.ExpiresAt.Add(grace))
}

// AttemptResult is the score breakdown stored when an attempt is submitted.
type AttemptResult struct {
	Score           int  `json:"score"`
	TotalQuestions  int  `json:"total_questions"`
	CorrectCount    int  `json:"correct_count"`
	WrongCount      int  `json:"wrong_count"`
	UnansweredCount int  `json:"unanswered_count"`
	TimedOut        bool `json:"timed_out"`
}

// ExpiryBatch reports one round of server-side auto-submits. Failed attempts
// stay overdue and keep their place at the head of the expiry order.
type ExpiryBatch struct {
	Listed int
	Closed int
	Failed int
}

// AttemptDigest is the short form of an attempt used in listings.
type AttemptDigest struct {
	AttemptID   uuid.UUID      `json:"attempt_id"`
	Status      AttemptStatus  `json:"status"`
	Result      *AttemptResult `json:"result,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
}

// Digest returns the listing form of the attempt.
func (a *Attempt) Digest() *AttemptDigest {
	return &AttemptDigest{
		AttemptID:   a.ID,
		Status:      a.Status,
		Result:      a.Result,
		CreatedAt:   a.CreatedAt,
		SubmittedAt: a.SubmittedAt,
	}
}

// StartAttemptResponse is returned by the start operation.
type StartAttemptResponse struct {
	AttemptID        uuid.UUID   `json:"attempt_id"`
	ExamID           uuid.UUID   `json:"exam_id"`
	QuestionOrder    []uuid.UUID `json:"question_order"`
	TimeLimitMinutes *int        `json:"time_limit_minutes"`
	Resumed          bool        `json:"resumed"`
	CreatedAt        time.Time   `json:"created_at"`
}

// SubmitAttemptRequest is the payload for submitting an attempt.
type SubmitAttemptRequest struct {
	AttemptID  uuid.UUID         `json:"attempt_id" binding:"required"`
	Answers    map[string]string `json:"answers"`
	AutoSubmit bool              `json:"auto_submit"`
}

// AttemptState is returned to a reloading client.
type AttemptState struct {
	AttemptID        uuid.UUID         `json:"attempt_id"`
	ExamID           uuid.UUID         `json:"exam_id"`
	Status           AttemptStatus     `json:"status"`
	QuestionOrder    []uuid.UUID       `json:"question_order"`
	Answers          map[string]string `json:"answers"`
	RemainingSeconds *int              `json:"remaining_seconds"`
	Result           *AttemptResult    `json:"result,omitempty"`
}

// AttemptRow is an attempt joined with its student, used by staff views.
type AttemptRow struct {
	Attempt
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

// AttemptEventType names a monitor stream event.
type AttemptEventType string

const (
	AttemptEventStarted   AttemptEventType = "attempt_started"
	AttemptEventAutosaved AttemptEventType = "attempt_autosaved"
	AttemptEventSubmitted AttemptEventType = "attempt_submitted"
)

// AttemptEvent is published on an exam's monitor channel.
type AttemptEvent struct {
	Type      AttemptEventType `json:"type"`
	AttemptID uuid.UUID        `json:"attempt_id"`
	StudentID int              `json:"student_id"`
	Result    *AttemptResult   `json:"result,omitempty"`
	At        time.Time        `json:"at"`
}
