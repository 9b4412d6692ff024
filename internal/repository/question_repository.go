package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduportal-backend/internal/model"
)

// QuestionRepository handles question bank and question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ─── Banks ──────────────────────────────────────────────────────────

const bankSelect = `SELECT b.id, b.author_id, b.name, b.description,
	(SELECT COUNT(*) FROM questions q WHERE q.qbank_id = b.id),
	b.created_at, b.updated_at
	FROM question_banks b`

func scanBank(row interface{ Scan(...any) error }) (*model.QuestionBank, error) {
	b := &model.QuestionBank{}
	err := row.Scan(&b.ID, &b.AuthorID, &b.Name, &b.Description, &b.QuestionCount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

// GetBank retrieves a question bank with its question count.
func (r *QuestionRepository) GetBank(ctx context.Context, id uuid.UUID) (*model.QuestionBank, error) {
	return scanBank(r.pool.QueryRow(ctx, bankSelect+` WHERE b.id = $1`, id))
}

// ListBanks retrieves question banks, newest first, optionally filtered by name.
func (r *QuestionRepository) ListBanks(ctx context.Context, search string, limit, offset int) ([]model.QuestionBank, int, error) {
	const filter = ` WHERE ($1::text = '' OR b.name ILIKE '%' || $1::text || '%')`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM question_banks b`+filter, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, bankSelect+filter+` ORDER BY b.created_at DESC LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	banks := []model.QuestionBank{}
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, 0, err
		}
		banks = append(banks, *b)
	}
	return banks, total, rows.Err()
}

// CreateBank inserts a new question bank.
func (r *QuestionRepository) CreateBank(ctx context.Context, b *model.QuestionBank) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO question_banks (author_id, name, description) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		b.AuthorID, b.Name, b.Description,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return translate(err)
}

// UpdateBank modifies a bank's name and description.
func (r *QuestionRepository) UpdateBank(ctx context.Context, b *model.QuestionBank) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE question_banks SET name = $1, description = $2, updated_at = NOW()
		 WHERE id = $3
		 RETURNING author_id, created_at, updated_at`,
		b.Name, b.Description, b.ID,
	).Scan(&b.AuthorID, &b.CreatedAt, &b.UpdatedAt)
	return translate(err)
}

// DeleteBank removes a bank and its questions.
func (r *QuestionRepository) DeleteBank(ctx context.Context, id uuid.UUID) error {
	return execAffected(r.pool.Exec(ctx, `DELETE FROM question_banks WHERE id = $1`, id))
}

// ─── Questions ──────────────────────────────────────────────────────

const questionColumns = `id, qbank_id, text, type, options, correct_answer, order_num, created_at`

func scanQuestion(row interface{ Scan(...any) error }) (*model.Question, error) {
	var (
		q    model.Question
		opts []byte
	)
	if err := row.Scan(&q.ID, &q.QBankID, &q.Text, &q.Type, &opts, &q.CorrectAnswer, &q.OrderNum, &q.CreatedAt); err != nil {
		return nil, translate(err)
	}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of question %s: %w", q.ID, err)
		}
	}
	if len(q.Options) == 0 {
		q.Options = nil
	}
	return &q, nil
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()
	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// ListByBank retrieves all questions of a bank in authored order.
func (r *QuestionRepository) ListByBank(ctx context.Context, bankID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE qbank_id = $1 ORDER BY order_num, created_at`, bankID)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// GetByIDs retrieves the questions with the given ids in unspecified order.
// Missing ids are simply absent from the result.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	if len(ids) == 0 {
		return []model.Question{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

func encodeOptions(opts map[string]string) ([]byte, error) {
	if opts == nil {
		opts = map[string]string{}
	}
	return json.Marshal(opts)
}

// Create inserts a new question into a bank.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	opts, err := encodeOptions(q.Options)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO questions (qbank_id, text, type, options, correct_answer, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		q.QBankID, q.Text, q.Type, opts, q.CorrectAnswer, q.OrderNum,
	).Scan(&q.ID, &q.CreatedAt)
	return translate(err)
}

// ReplaceAll swaps a bank's questions for the given set in one transaction.
func (r *QuestionRepository) ReplaceAll(ctx context.Context, bankID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE qbank_id = $1`, bankID); err != nil {
		return translate(err)
	}

	for i := range questions {
		q := &questions[i]
		q.QBankID = bankID
		opts, err := encodeOptions(q.Options)
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO questions (qbank_id, text, type, options, correct_answer, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, created_at`,
			q.QBankID, q.Text, q.Type, opts, q.CorrectAnswer, q.OrderNum,
		).Scan(&q.ID, &q.CreatedAt)
		if err != nil {
			return translate(err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE question_banks SET updated_at = NOW() WHERE id = $1`, bankID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete removes a single question from a bank.
func (r *QuestionRepository) Delete(ctx context.Context, bankID, questionID uuid.UUID) error {
	return execAffected(r.pool.Exec(ctx,
		`DELETE FROM questions WHERE id = $1 AND qbank_id = $2`, questionID, bankID))
}
