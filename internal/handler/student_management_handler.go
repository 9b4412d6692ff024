package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/response"
	"github.com/stemsi/eduportal-backend/internal/service"
	"github.com/stemsi/eduportal-backend/internal/validator"
)

// StudentManagementHandler handles staff-facing student and staff account
// management (CRUD, session reset).
type StudentManagementHandler struct {
	studentService *service.StudentService
	staffService   *service.StaffService
	authService    *service.AuthService
}

// NewStudentManagementHandler creates a new StudentManagementHandler.
func NewStudentManagementHandler(
	studentService *service.StudentService,
	staffService *service.StaffService,
	authService *service.AuthService,
) *StudentManagementHandler {
	return &StudentManagementHandler{
		studentService: studentService,
		staffService:   staffService,
		authService:    authService,
	}
}

// ListStudents godoc
// GET /api/v1/admin/students?class_id=&batch_id=&search=&page=&per_page=
// Lists students with pagination.
func (h *StudentManagementHandler) ListStudents(c *gin.Context) {
	var f model.StudentFilter
	if fields := validator.BindQuery(c, &f); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	students, pagination, err := h.studentService.ListStudents(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": students}, pagination)
}

// GetStudent godoc
// GET /api/v1/admin/students/:id
func (h *StudentManagementHandler) GetStudent(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// CreateStudent godoc
// POST /api/v1/admin/students
// Creates a new student.
func (h *StudentManagementHandler) CreateStudent(c *gin.Context) {
	var req model.CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student := &model.Student{
		Email:   req.Email,
		Name:    req.Name,
		Phone:   req.Phone,
		ClassID: req.ClassID,
		BatchID: req.BatchID,
	}
	if err := h.studentService.Create(c.Request.Context(), student, req.Password); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"student": student})
}

// UpdateStudent godoc
// PUT /api/v1/admin/students/:id
// Updates an existing student. An empty password keeps the current one.
func (h *StudentManagementHandler) UpdateStudent(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student := &model.Student{
		ID:      id,
		Email:   req.Email,
		Name:    req.Name,
		Phone:   req.Phone,
		ClassID: req.ClassID,
		BatchID: req.BatchID,
	}
	if err := h.studentService.Update(c.Request.Context(), student, req.Password); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// DeleteStudent godoc
// DELETE /api/v1/admin/students/:id
// Deletes a student. Students with attempts cannot be deleted.
func (h *StudentManagementHandler) DeleteStudent(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.studentService.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "student deleted successfully"})
}

// ResetStudentSession godoc
// POST /api/v1/admin/students/:id/reset-session
// Clears a student's active Redis session, allowing them to log in on a new device.
func (h *StudentManagementHandler) ResetStudentSession(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.authService.ResetStudentSession(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "student session reset successfully"})
}

// ─── Staff accounts (admin only) ────────────────────────────────────

// ListStaff godoc
// GET /api/v1/admin/staff
func (h *StudentManagementHandler) ListStaff(c *gin.Context) {
	staff, err := h.staffService.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"staff": staff})
}

// CreateStaff godoc
// POST /api/v1/admin/staff
func (h *StudentManagementHandler) CreateStaff(c *gin.Context) {
	var req model.CreateStaffRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	staff := &model.Staff{Email: req.Email, Name: req.Name, Role: req.Role}
	if err := h.staffService.Create(c.Request.Context(), staff, req.Password); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"staff": staff})
}

// UpdateStaff godoc
// PUT /api/v1/admin/staff/:id
func (h *StudentManagementHandler) UpdateStaff(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateStaffRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	staff := &model.Staff{ID: id, Email: req.Email, Name: req.Name, Role: req.Role}
	if err := h.staffService.Update(c.Request.Context(), staff, req.Password); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"staff": staff})
}

// DeleteStaff godoc
// DELETE /api/v1/admin/staff/:id
func (h *StudentManagementHandler) DeleteStaff(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.staffService.Delete(c.Request.Context(), id, claims.UserID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "staff deleted successfully"})
}
