package model

import "github.com/google/uuid"

// ExamTarget assigns an exam to a class, a batch or both.
// A student is eligible when any rule matches their class or batch.
type ExamTarget struct {
	ID      int       `json:"id"`
	ExamID  uuid.UUID `json:"exam_id"`
	ClassID *int      `json:"class_id,omitempty"`
	BatchID *int      `json:"batch_id,omitempty"`
}

// ExamTargetRequest is the payload for adding a target rule.
type ExamTargetRequest struct {
	ClassID *int `json:"class_id" binding:"required_without=BatchID,omitempty,min=1"`
	BatchID *int `json:"batch_id" binding:"required_without=ClassID,omitempty,min=1"`
}

// Matches reports whether the rule covers a student with the given membership.
func (t ExamTarget) Matches(classID, batchID *int) bool {
	if t.ClassID != nil && classID != nil && *t.ClassID == *classID {
		return true
	}
	if t.BatchID != nil && batchID != nil && *t.BatchID == *batchID {
		return true
	}
	return false
}
