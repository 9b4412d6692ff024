package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/response"
	"github.com/stemsi/eduportal-backend/internal/service"
	"github.com/stemsi/eduportal-backend/internal/validator"
)

// QuestionHandler handles question bank endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
	maxImportBytes  int64
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, maxImportBytes int64) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, maxImportBytes: maxImportBytes}
}

// ListQBanks godoc
// GET /api/v1/admin/qbanks?search=&page=&per_page=
func (h *QuestionHandler) ListQBanks(c *gin.Context) {
	page, perPage := paging(c)
	banks, pagination, err := h.questionService.ListBanks(c.Request.Context(), c.Query("search"), page, perPage)
	if err != nil {
		fail(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"qbanks": banks}, pagination)
}

// GetQBank godoc
// GET /api/v1/admin/qbanks/:id
func (h *QuestionHandler) GetQBank(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	bank, err := h.questionService.GetBank(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"qbank": bank})
}

// CreateQBank godoc
// POST /api/v1/admin/qbanks
func (h *QuestionHandler) CreateQBank(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}

	var req model.QuestionBankRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	bank := &model.QuestionBank{Name: req.Name, Description: req.Description}
	if err := h.questionService.CreateBank(c.Request.Context(), bank, claims.UserID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"qbank": bank})
}

// UpdateQBank godoc
// PUT /api/v1/admin/qbanks/:id
func (h *QuestionHandler) UpdateQBank(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.QuestionBankRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	bank := &model.QuestionBank{ID: id, Name: req.Name, Description: req.Description}
	if err := h.questionService.UpdateBank(c.Request.Context(), bank); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"qbank": bank})
}

// DeleteQBank godoc
// DELETE /api/v1/admin/qbanks/:id
// Deletes a bank with its questions. Published exams keep their snapshot.
func (h *QuestionHandler) DeleteQBank(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.questionService.DeleteBank(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "question bank deleted successfully"})
}

// ListQuestions godoc
// GET /api/v1/admin/qbanks/:id/questions
// Lists all questions of a bank, including correct answers.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	bankID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	questions, err := h.questionService.ListQuestions(c.Request.Context(), bankID)
	if err != nil {
		fail(c, err)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AddQuestion godoc
// POST /api/v1/admin/qbanks/:id/questions
func (h *QuestionHandler) AddQuestion(c *gin.Context) {
	bankID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.AddQuestion(c.Request.Context(), bankID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/qbanks/:id/questions
// Bulk replaces all questions of a bank.
func (h *QuestionHandler) ReplaceQuestions(c *gin.Context) {
	bankID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.questionService.ReplaceQuestions(c.Request.Context(), bankID, req.Questions)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ImportQuestions godoc
// POST /api/v1/admin/qbanks/:id/import (multipart, field "file")
// Replaces the bank's questions with the rows of an .xlsx sheet.
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	bankID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImportBytes+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	if header.Size > h.maxImportBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"file": "file must be an .xlsx spreadsheet",
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer file.Close()

	questions, err := h.questionService.ImportQuestions(c.Request.Context(), bankID, file)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"imported": len(questions), "questions": questions})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/qbanks/:id/questions/:question_id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	bankID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := uuidParam(c, "question_id")
	if !ok {
		return
	}

	if err := h.questionService.DeleteQuestion(c.Request.Context(), bankID, questionID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "question deleted successfully"})
}
