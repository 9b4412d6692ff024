package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// ExamTargetRepository handles exam assignment rules.
type ExamTargetRepository struct {
	pool *pgxpool.Pool
}

// NewExamTargetRepository creates a new ExamTargetRepository.
func NewExamTargetRepository(pool *pgxpool.Pool) *ExamTargetRepository {
	return &ExamTargetRepository{pool: pool}
}

// ListByExam retrieves all target rules for an exam.
func (r *ExamTargetRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamTarget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, class_id, batch_id FROM exam_targets WHERE exam_id = $1 ORDER BY id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	targets := []model.ExamTarget{}
	for rows.Next() {
		var t model.ExamTarget
		if err := rows.Scan(&t.ID, &t.ExamID, &t.ClassID, &t.BatchID); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// Create inserts a new target rule.
func (r *ExamTargetRepository) Create(ctx context.Context, t *model.ExamTarget) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_targets (exam_id, class_id, batch_id) VALUES ($1, $2, $3) RETURNING id`,
		t.ExamID, t.ClassID, t.BatchID,
	).Scan(&t.ID)
	return translate(err)
}

// Delete removes a target rule from an exam.
func (r *ExamTargetRepository) Delete(ctx context.Context, examID uuid.UUID, ruleID int) error {
	return execAffected(r.pool.Exec(ctx,
		`DELETE FROM exam_targets WHERE id = $1 AND exam_id = $2`, ruleID, examID))
}
