package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// BlogRepository handles blog post data access.
type BlogRepository struct {
	pool *pgxpool.Pool
}

// NewBlogRepository creates a new BlogRepository.
func NewBlogRepository(pool *pgxpool.Pool) *BlogRepository {
	return &BlogRepository{pool: pool}
}

const blogColumns = `id, title, slug, summary, content, cover_image_url, author_id, status, published_at, created_at, updated_at`

func scanBlog(row interface{ Scan(...any) error }) (*model.Blog, error) {
	b := &model.Blog{}
	err := row.Scan(&b.ID, &b.Title, &b.Slug, &b.Summary, &b.Content, &b.CoverImageURL,
		&b.AuthorID, &b.Status, &b.PublishedAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

// GetByID retrieves a post by ID regardless of status.
func (r *BlogRepository) GetByID(ctx context.Context, id int) (*model.Blog, error) {
	return scanBlog(r.pool.QueryRow(ctx, `SELECT `+blogColumns+` FROM blogs WHERE id = $1`, id))
}

// GetPublishedBySlug retrieves a published post by slug.
func (r *BlogRepository) GetPublishedBySlug(ctx context.Context, slug string) (*model.Blog, error) {
	return scanBlog(r.pool.QueryRow(ctx,
		`SELECT `+blogColumns+` FROM blogs WHERE slug = $1 AND status = 'published'`, slug))
}

// List retrieves posts newest first. When publishedOnly is set drafts are hidden.
func (r *BlogRepository) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]model.Blog, int, error) {
	where := ``
	if publishedOnly {
		where = ` WHERE status = 'published'`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM blogs`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+blogColumns+` FROM blogs`+where+`
		 ORDER BY COALESCE(published_at, created_at) DESC, id DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	blogs := []model.Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, 0, err
		}
		blogs = append(blogs, *b)
	}
	return blogs, total, rows.Err()
}

// Create inserts a new post. published_at is stamped on first publish.
func (r *BlogRepository) Create(ctx context.Context, b *model.Blog) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO blogs (title, slug, summary, content, cover_image_url, author_id, status, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, CASE WHEN $8::bool THEN NOW() END)
		 RETURNING id, published_at, created_at, updated_at`,
		b.Title, b.Slug, b.Summary, b.Content, b.CoverImageURL, b.AuthorID, b.Status,
		b.Status == model.BlogStatusPublished,
	).Scan(&b.ID, &b.PublishedAt, &b.CreatedAt, &b.UpdatedAt)
	return translate(err)
}

// Update modifies a post, keeping the original publish time once set.
func (r *BlogRepository) Update(ctx context.Context, b *model.Blog) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE blogs
		 SET title = $1, slug = $2, summary = $3, content = $4, cover_image_url = $5, status = $6,
		     published_at = CASE WHEN $7::bool THEN COALESCE(published_at, NOW()) END,
		     updated_at = NOW()
		 WHERE id = $8
		 RETURNING author_id, published_at, created_at, updated_at`,
		b.Title, b.Slug, b.Summary, b.Content, b.CoverImageURL, b.Status,
		b.Status == model.BlogStatusPublished, b.ID,
	).Scan(&b.AuthorID, &b.PublishedAt, &b.CreatedAt, &b.UpdatedAt)
	return translate(err)
}

// Delete removes a post.
func (r *BlogRepository) Delete(ctx context.Context, id int) error {
	return execAffected(r.pool.Exec(ctx, `DELETE FROM blogs WHERE id = $1`, id))
}
