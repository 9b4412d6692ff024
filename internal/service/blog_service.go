package service

import (
	"context"

	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"github.com/stemsi/eduportal-backend/internal/response"
)

// BlogService handles blog post business logic.
type BlogService struct {
	blogRepo *repository.BlogRepository
}

// NewBlogService creates a new BlogService.
func NewBlogService(blogRepo *repository.BlogRepository) *BlogService {
	return &BlogService{blogRepo: blogRepo}
}

// List retrieves posts page by page. Public callers only see published posts.
func (s *BlogService) List(ctx context.Context, publishedOnly bool, page, perPage int) ([]model.Blog, *response.Pagination, error) {
	page, perPage = response.ClampPage(page, perPage)
	blogs, total, err := s.blogRepo.List(ctx, publishedOnly, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return blogs, response.NewPagination(page, perPage, total), nil
}

// GetPublished retrieves a published post by slug.
func (s *BlogService) GetPublished(ctx context.Context, slug string) (*model.Blog, error) {
	return s.blogRepo.GetPublishedBySlug(ctx, slug)
}

// GetByID retrieves any post by ID.
func (s *BlogService) GetByID(ctx context.Context, id int) (*model.Blog, error) {
	return s.blogRepo.GetByID(ctx, id)
}

// Create inserts a post authored by the given staff member.
func (s *BlogService) Create(ctx context.Context, b *model.Blog, authorID int) error {
	b.AuthorID = &authorID
	return s.blogRepo.Create(ctx, b)
}

// Update modifies a post.
func (s *BlogService) Update(ctx context.Context, b *model.Blog) error {
	return s.blogRepo.Update(ctx, b)
}

// Delete removes a post.
func (s *BlogService) Delete(ctx context.Context, id int) error {
	return s.blogRepo.Delete(ctx, id)
}
