package model

import "time"

// Batch is a cohort of students within a class.
type Batch struct {
	ID        int        `json:"id"`
	ClassID   int        `json:"class_id"`
	Name      string     `json:"name"`
	StartsOn  *time.Time `json:"starts_on,omitempty"`
	EndsOn    *time.Time `json:"ends_on,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BatchRequest is the payload for creating or updating a batch.
type BatchRequest struct {
	ClassID  int        `json:"class_id" binding:"required,min=1"`
	Name     string     `json:"name" binding:"required,min=2,max=100"`
	StartsOn *time.Time `json:"starts_on" binding:"omitempty"`
	EndsOn   *time.Time `json:"ends_on" binding:"omitempty,gtfield=StartsOn"`
}
