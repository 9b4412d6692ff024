package model

import "time"

// Student represents a student user. Class and batch membership drive
// which exams the student may start.
type Student struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	ClassID      *int      `json:"class_id,omitempty"`
	BatchID      *int      `json:"batch_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// CreateStudentRequest is the payload for creating a new student account.
type CreateStudentRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Phone    string `json:"phone" binding:"omitempty,max=20"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	ClassID  *int   `json:"class_id" binding:"omitempty,min=1"`
	BatchID  *int   `json:"batch_id" binding:"omitempty,min=1"`
}

// UpdateStudentRequest is the payload for updating an existing student.
type UpdateStudentRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Phone    string `json:"phone" binding:"omitempty,max=20"`
	Password string `json:"password" binding:"omitempty,min=6,max=128"`
	ClassID  *int   `json:"class_id" binding:"omitempty,min=1"`
	BatchID  *int   `json:"batch_id" binding:"omitempty,min=1"`
}

// StudentFilter narrows the student listing.
type StudentFilter struct {
	ClassID *int   `form:"class_id" binding:"omitempty,min=1"`
	BatchID *int   `form:"batch_id" binding:"omitempty,min=1"`
	Search  string `form:"search" binding:"omitempty,max=100"`
	Page    int    `form:"page" binding:"omitempty,min=1"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}
