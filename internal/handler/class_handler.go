package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/response"
	"github.com/stemsi/eduportal-backend/internal/service"
	"github.com/stemsi/eduportal-backend/internal/validator"
)

// ClassHandler handles staff-facing class and batch management (CRUD).
type ClassHandler struct {
	classService *service.ClassService
	batchService *service.BatchService
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(classService *service.ClassService, batchService *service.BatchService) *ClassHandler {
	return &ClassHandler{classService: classService, batchService: batchService}
}

// ListClasses godoc
// GET /api/v1/admin/classes
// Lists all classes without pagination.
func (h *ClassHandler) ListClasses(c *gin.Context) {
	classes, err := h.classService.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"classes": classes})
}

// GetClass godoc
// GET /api/v1/admin/classes/:id
func (h *ClassHandler) GetClass(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	class, err := h.classService.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// CreateClass godoc
// POST /api/v1/admin/classes
// Creates a new class.
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req model.ClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class := &model.Class{Name: req.Name, Description: req.Description}
	if err := h.classService.Create(c.Request.Context(), class); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"class": class})
}

// UpdateClass godoc
// PUT /api/v1/admin/classes/:id
// Updates an existing class.
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.ClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class := &model.Class{ID: id, Name: req.Name, Description: req.Description}
	if err := h.classService.Update(c.Request.Context(), class); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// DeleteClass godoc
// DELETE /api/v1/admin/classes/:id
// Deletes a class by ID. Fails while batches or students reference it.
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.classService.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "class deleted successfully"})
}

// ListBatches godoc
// GET /api/v1/admin/batches?class_id=
func (h *ClassHandler) ListBatches(c *gin.Context) {
	var classID *int
	if raw := c.Query("class_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		classID = &id
	}

	batches, err := h.batchService.List(c.Request.Context(), classID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"batches": batches})
}

// GetBatch godoc
// GET /api/v1/admin/batches/:id
func (h *ClassHandler) GetBatch(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	batch, err := h.batchService.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"batch": batch})
}

// CreateBatch godoc
// POST /api/v1/admin/batches
func (h *ClassHandler) CreateBatch(c *gin.Context) {
	var req model.BatchRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	batch := &model.Batch{ClassID: req.ClassID, Name: req.Name, StartsOn: req.StartsOn, EndsOn: req.EndsOn}
	if err := h.batchService.Create(c.Request.Context(), batch); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"batch": batch})
}

// UpdateBatch godoc
// PUT /api/v1/admin/batches/:id
func (h *ClassHandler) UpdateBatch(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.BatchRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	batch := &model.Batch{ID: id, ClassID: req.ClassID, Name: req.Name, StartsOn: req.StartsOn, EndsOn: req.EndsOn}
	if err := h.batchService.Update(c.Request.Context(), batch); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"batch": batch})
}

// DeleteBatch godoc
// DELETE /api/v1/admin/batches/:id
func (h *ClassHandler) DeleteBatch(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.batchService.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "batch deleted successfully"})
}
