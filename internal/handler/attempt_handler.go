package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/response"
	"github.com/stemsi/eduportal-backend/internal/service"
	"github.com/stemsi/eduportal-backend/internal/validator"
)

// AttemptEngine is the attempt lifecycle used by the student endpoints.
type AttemptEngine interface {
	Start(ctx context.Context, studentID int, examID uuid.UUID, randomize *bool) (*model.StartAttemptResponse, error)
	Questions(ctx context.Context, claims *service.Claims, examID uuid.UUID, attemptID *uuid.UUID) (*model.ExamPaper, error)
	Submit(ctx context.Context, studentID int, examID uuid.UUID, req *model.SubmitAttemptRequest) (*model.AttemptResult, error)
	State(ctx context.Context, studentID int, examID, attemptID uuid.UUID) (*model.AttemptState, error)
}

// StudentExamLister lists the exams assigned to a student.
type StudentExamLister interface {
	ListForStudent(ctx context.Context, st *model.Student) (*model.StudentExamList, error)
}

// StudentFinder loads a student profile.
type StudentFinder interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
}

// AttemptHandler serves the exam attempt endpoints.
type AttemptHandler struct {
	engine   AttemptEngine
	exams    StudentExamLister
	students StudentFinder
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(engine AttemptEngine, exams StudentExamLister, students StudentFinder) *AttemptHandler {
	return &AttemptHandler{engine: engine, exams: exams, students: students}
}

// StartAttempt godoc
// POST /api/v1/exams/:exam_id/start?randomize=true|false
// Opens an attempt. Without randomize the exam's default ordering applies.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	var randomize *bool
	if raw, set := c.GetQuery("randomize"); set {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"randomize": "randomize must be true or false",
			})
			return
		}
		randomize = &v
	}

	started, err := h.engine.Start(c.Request.Context(), claims.UserID, examID, randomize)
	if err != nil {
		fail(c, err)
		return
	}

	status := http.StatusCreated
	if started.Resumed {
		status = http.StatusOK
	}
	response.Success(c, status, started)
}

// GetQuestions godoc
// GET /api/v1/exams/:exam_id/questions?attempt_id=
// Returns the paper without correct answers, in attempt order when
// attempt_id is given.
func (h *AttemptHandler) GetQuestions(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	var attemptID *uuid.UUID
	if raw := c.Query("attempt_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		attemptID = &id
	}

	paper, err := h.engine.Questions(c.Request.Context(), claims, examID, attemptID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// SubmitAttempt godoc
// POST /api/v1/exams/:exam_id/submit
// Scores and closes the attempt. A repeated submit answers 409 with the
// stored result.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.engine.Submit(c.Request.Context(), claims.UserID, examID, &req)
	if errors.Is(err, service.ErrAttemptAlreadySubmitted) {
		response.FailWithData(c, http.StatusConflict, response.ErrAttemptSubmitted, gin.H{"result": result})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt_id": req.AttemptID, "result": result})
}

// GetAttemptState godoc
// GET /api/v1/exams/:exam_id/attempts/:attempt_id
// Returns order, saved answers and remaining time for a reloading client.
func (h *AttemptHandler) GetAttemptState(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}
	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	state, err := h.engine.State(c.Request.Context(), claims.UserID, examID, attemptID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// ListStudentExams godoc
// GET /api/v1/students/:student_id/exams
// Students may only list their own exams; staff may list anyone's.
func (h *AttemptHandler) ListStudentExams(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	studentID, ok := intParam(c, "student_id")
	if !ok {
		return
	}
	if claims.IsStudent() && claims.UserID != studentID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	student, err := h.students.GetByID(c.Request.Context(), studentID)
	if err != nil {
		fail(c, err)
		return
	}

	list, err := h.exams.ListForStudent(c.Request.Context(), student)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, list)
}
