package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// BatchRepository handles batch data access.
type BatchRepository struct {
	pool *pgxpool.Pool
}

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{pool: pool}
}

const batchColumns = `id, class_id, name, starts_on, ends_on, created_at, updated_at`

// GetByID retrieves a batch by ID.
func (r *BatchRepository) GetByID(ctx context.Context, id int) (*model.Batch, error) {
	b := &model.Batch{}
	err := r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id).
		Scan(&b.ID, &b.ClassID, &b.Name, &b.StartsOn, &b.EndsOn, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

// List retrieves batches, optionally restricted to one class.
func (r *BatchRepository) List(ctx context.Context, classID *int) ([]model.Batch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+batchColumns+` FROM batches
		 WHERE ($1::int IS NULL OR class_id = $1)
		 ORDER BY class_id, starts_on NULLS LAST, name`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := []model.Batch{}
	for rows.Next() {
		var b model.Batch
		if err := rows.Scan(&b.ID, &b.ClassID, &b.Name, &b.StartsOn, &b.EndsOn, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// Create inserts a new batch.
func (r *BatchRepository) Create(ctx context.Context, b *model.Batch) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO batches (class_id, name, starts_on, ends_on)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		b.ClassID, b.Name, b.StartsOn, b.EndsOn,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return translate(err)
}

// Update modifies an existing batch.
func (r *BatchRepository) Update(ctx context.Context, b *model.Batch) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE batches SET class_id = $1, name = $2, starts_on = $3, ends_on = $4, updated_at = NOW()
		 WHERE id = $5
		 RETURNING created_at, updated_at`,
		b.ClassID, b.Name, b.StartsOn, b.EndsOn, b.ID,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	return translate(err)
}

// Delete removes a batch.
func (r *BatchRepository) Delete(ctx context.Context, id int) error {
	return execAffected(r.pool.Exec(ctx, `DELETE FROM batches WHERE id = $1`, id))
}
