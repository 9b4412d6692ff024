package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// classColumns follows the field order of model.Class so rows can be
// collected positionally.
const classColumns = `id, name, description, created_at, updated_at`

// ClassRepository handles class data access.
type ClassRepository struct {
	pool *pgxpool.Pool
}

func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

func (r *ClassRepository) GetByID(ctx context.Context, id int) (*model.Class, error) {
	rows, _ := r.pool.Query(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id)
	c, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByPos[model.Class])
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// List returns every class ordered by name.
func (r *ClassRepository) List(ctx context.Context) ([]model.Class, error) {
	rows, _ := r.pool.Query(ctx, `SELECT `+classColumns+` FROM classes ORDER BY name`)
	classes, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.Class])
	if err != nil {
		return nil, err
	}
	if classes == nil {
		classes = []model.Class{}
	}
	return classes, nil
}

func (r *ClassRepository) Create(ctx context.Context, c *model.Class) error {
	return translate(r.pool.QueryRow(ctx,
		`INSERT INTO classes (name, description) VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Description,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt))
}

// Update rewrites name and description; ErrNotFound when the class is gone.
func (r *ClassRepository) Update(ctx context.Context, c *model.Class) error {
	return translate(r.pool.QueryRow(ctx,
		`UPDATE classes SET name = $2, description = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Description,
	).Scan(&c.CreatedAt, &c.UpdatedAt))
}

// Delete removes a class. Fails with ErrReferenced while batches or students use it.
func (r *ClassRepository) Delete(ctx context.Context, id int) error {
	return execAffected(r.pool.Exec(ctx, `DELETE FROM classes WHERE id = $1`, id))
}
