package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/response"
	"github.com/stemsi/eduportal-backend/internal/service"
	"github.com/stemsi/eduportal-backend/internal/validator"
)

// BlogHandler serves blog posts to the public site and to staff.
type BlogHandler struct {
	blogService *service.BlogService
}

// NewBlogHandler creates a new BlogHandler.
func NewBlogHandler(blogService *service.BlogService) *BlogHandler {
	return &BlogHandler{blogService: blogService}
}

// ListPublished godoc
// GET /api/v1/public/blogs?page=&per_page=
func (h *BlogHandler) ListPublished(c *gin.Context) {
	h.list(c, true)
}

// GetPublished godoc
// GET /api/v1/public/blogs/:slug
func (h *BlogHandler) GetPublished(c *gin.Context) {
	blog, err := h.blogService.GetPublished(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"blog": blog})
}

// ListAll godoc
// GET /api/v1/admin/blogs
// Lists drafts and published posts.
func (h *BlogHandler) ListAll(c *gin.Context) {
	h.list(c, false)
}

func (h *BlogHandler) list(c *gin.Context, publishedOnly bool) {
	page, perPage := paging(c)
	blogs, pagination, err := h.blogService.List(c.Request.Context(), publishedOnly, page, perPage)
	if err != nil {
		fail(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"blogs": blogs}, pagination)
}

// GetBlog godoc
// GET /api/v1/admin/blogs/:id
func (h *BlogHandler) GetBlog(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	blog, err := h.blogService.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"blog": blog})
}

// CreateBlog godoc
// POST /api/v1/admin/blogs
func (h *BlogHandler) CreateBlog(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}

	var req model.BlogRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	blog := blogFromRequest(&req)
	if err := h.blogService.Create(c.Request.Context(), blog, claims.UserID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"blog": blog})
}

// UpdateBlog godoc
// PUT /api/v1/admin/blogs/:id
func (h *BlogHandler) UpdateBlog(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.BlogRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	blog := blogFromRequest(&req)
	blog.ID = id
	if err := h.blogService.Update(c.Request.Context(), blog); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"blog": blog})
}

// DeleteBlog godoc
// DELETE /api/v1/admin/blogs/:id
func (h *BlogHandler) DeleteBlog(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.blogService.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "blog deleted successfully"})
}

func blogFromRequest(req *model.BlogRequest) *model.Blog {
	return &model.Blog{
		Title:         req.Title,
		Slug:          req.Slug,
		Summary:       req.Summary,
		Content:       req.Content,
		CoverImageURL: req.CoverImageURL,
		Status:        req.Status,
	}
}
