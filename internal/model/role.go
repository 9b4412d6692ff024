package model

// Role is the role claim carried by every identity token.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// IsStaff reports whether the role belongs to teachers or administrators.
func (r Role) IsStaff() bool {
	return r == RoleTeacher || r == RoleAdmin
}
