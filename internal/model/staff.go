package model

import "time"

// Staff represents a teacher or administrator account.
type Staff struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StaffLoginRequest is the payload for teacher/admin authentication.
type StaffLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// CreateStaffRequest is the payload for creating a staff account.
type CreateStaffRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Role     Role   `json:"role" binding:"required,oneof=teacher admin"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// UpdateStaffRequest is the payload for updating a staff account.
// An empty password keeps the current one.
type UpdateStaffRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Role     Role   `json:"role" binding:"required,oneof=teacher admin"`
	Password string `json:"password" binding:"omitempty,min=8,max=128"`
}
