package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/response"
	"github.com/stemsi/eduportal-backend/internal/service"
	"github.com/stemsi/eduportal-backend/internal/validator"
)

// ExamHandler handles staff-facing exam authoring, targeting and results.
type ExamHandler struct {
	examService    *service.ExamService
	attemptService *service.AttemptService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, attemptService *service.AttemptService) *ExamHandler {
	return &ExamHandler{examService: examService, attemptService: attemptService}
}

// ListExams godoc
// GET /api/v1/admin/exams?status=draft|published&page=&per_page=
func (h *ExamHandler) ListExams(c *gin.Context) {
	var status *model.ExamStatus
	switch s := model.ExamStatus(c.Query("status")); s {
	case "":
	case model.ExamStatusDraft, model.ExamStatusPublished:
		status = &s
	default:
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"status": "status must be one of [draft published]",
		})
		return
	}

	page, perPage := paging(c)
	exams, pagination, err := h.examService.List(c.Request.Context(), status, page, perPage)
	if err != nil {
		fail(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// GetExam godoc
// GET /api/v1/admin/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// CreateExam godoc
// POST /api/v1/admin/exams
// Creates a draft exam authored by the caller.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}

	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), claims, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/admin/exams/:id
// Only drafts can be updated, by their author or an admin.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), claims, id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/admin/exams/:id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), claims, id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "exam deleted successfully"})
}

// PublishExam godoc
// POST /api/v1/admin/exams/:id/publish
// Freezes the exam and warms the paper and answer key caches.
func (h *ExamHandler) PublishExam(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.Publish(c.Request.Context(), claims, id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// ListTargets godoc
// GET /api/v1/admin/exams/:id/targets
func (h *ExamHandler) ListTargets(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	targets, err := h.examService.ListTargets(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if targets == nil {
		targets = []model.ExamTarget{}
	}

	response.Success(c, http.StatusOK, gin.H{"targets": targets})
}

// AddTarget godoc
// POST /api/v1/admin/exams/:id/targets
// Assigns the exam to a class, a batch or both.
func (h *ExamHandler) AddTarget(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.ExamTargetRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	target, err := h.examService.AddTarget(c.Request.Context(), id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"target": target})
}

// RemoveTarget godoc
// DELETE /api/v1/admin/exams/:id/targets/:target_id
func (h *ExamHandler) RemoveTarget(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := intParam(c, "target_id")
	if !ok {
		return
	}

	if err := h.examService.RemoveTarget(c.Request.Context(), id, targetID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "target removed successfully"})
}

// ListAttempts godoc
// GET /api/v1/admin/exams/:id/attempts?page=&per_page=
// Lists the attempts of an exam with their results.
func (h *ExamHandler) ListAttempts(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.examService.GetByID(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	page, perPage := paging(c)
	rows, pagination, err := h.attemptService.ListByExam(c.Request.Context(), id, page, perPage)
	if err != nil {
		fail(c, err)
		return
	}
	if rows == nil {
		rows = []model.AttemptRow{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": rows}, pagination)
}
