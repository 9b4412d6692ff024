package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"github.com/stemsi/eduportal-backend/internal/response"
)

// QuestionService handles question bank business logic.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo}
}

// ListBanks retrieves question banks page by page.
func (s *QuestionService) ListBanks(ctx context.Context, search string, page, perPage int) ([]model.QuestionBank, *response.Pagination, error) {
	page, perPage = response.ClampPage(page, perPage)
	banks, total, err := s.questionRepo.ListBanks(ctx, search, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return banks, response.NewPagination(page, perPage, total), nil
}

// GetBank retrieves a specific question bank.
func (s *QuestionService) GetBank(ctx context.Context, id uuid.UUID) (*model.QuestionBank, error) {
	return s.questionRepo.GetBank(ctx, id)
}

// CreateBank creates a new question bank owned by authorID.
func (s *QuestionService) CreateBank(ctx context.Context, b *model.QuestionBank, authorID int) error {
	b.AuthorID = &authorID
	return s.questionRepo.CreateBank(ctx, b)
}

// UpdateBank updates a question bank.
func (s *QuestionService) UpdateBank(ctx context.Context, b *model.QuestionBank) error {
	return s.questionRepo.UpdateBank(ctx, b)
}

// DeleteBank deletes a question bank with its questions.
func (s *QuestionService) DeleteBank(ctx context.Context, id uuid.UUID) error {
	return s.questionRepo.DeleteBank(ctx, id)
}

// ListQuestions retrieves all questions of a bank, including correct answers.
func (s *QuestionService) ListQuestions(ctx context.Context, bankID uuid.UUID) ([]model.Question, error) {
	if _, err := s.questionRepo.GetBank(ctx, bankID); err != nil {
		return nil, err
	}
	return s.questionRepo.ListByBank(ctx, bankID)
}

// AddQuestion validates and appends a question to a bank.
func (s *QuestionService) AddQuestion(ctx context.Context, bankID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	if err := ValidateQuestion(req); err != nil {
		return nil, err
	}
	if _, err := s.questionRepo.GetBank(ctx, bankID); err != nil {
		return nil, err
	}
	q := questionFromRequest(bankID, req)
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// ReplaceQuestions swaps all questions of a bank for the given set.
func (s *QuestionService) ReplaceQuestions(ctx context.Context, bankID uuid.UUID, reqs []model.AddQuestionRequest) ([]model.Question, error) {
	for i := range reqs {
		if err := ValidateQuestion(&reqs[i]); err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				fe.Field = "questions[" + itoa(i) + "]." + fe.Field
			}
			return nil, err
		}
	}
	if _, err := s.questionRepo.GetBank(ctx, bankID); err != nil {
		return nil, err
	}

	questions := make([]model.Question, len(reqs))
	for i := range reqs {
		questions[i] = *questionFromRequest(bankID, &reqs[i])
	}
	if err := s.questionRepo.ReplaceAll(ctx, bankID, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// ImportQuestions parses an .xlsx sheet and replaces the bank's questions with it.
func (s *QuestionService) ImportQuestions(ctx context.Context, bankID uuid.UUID, r io.Reader) ([]model.Question, error) {
	reqs, err := ParseQuestionSheet(r)
	if err != nil {
		return nil, err
	}
	return s.ReplaceQuestions(ctx, bankID, reqs)
}

// DeleteQuestion removes a single question from a bank.
func (s *QuestionService) DeleteQuestion(ctx context.Context, bankID, questionID uuid.UUID) error {
	return s.questionRepo.Delete(ctx, bankID, questionID)
}

// ValidateQuestion enforces the rules per question type: single-choice
// questions need at least two options and a correct key among them,
// free-text questions carry no options.
func ValidateQuestion(req *model.AddQuestionRequest) error {
	req.CorrectAnswer = strings.TrimSpace(req.CorrectAnswer)
	switch req.Type {
	case model.QuestionTypeSingleChoice:
		if len(req.Options) < 2 {
			return fieldErr("options", "single choice questions need at least two options")
		}
		if req.CorrectAnswer == "" {
			return fieldErr("correct_answer", "single choice questions need a correct option")
		}
		if _, ok := req.Options[req.CorrectAnswer]; !ok {
			keys := make([]string, 0, len(req.Options))
			for k := range req.Options {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return fieldErr("correct_answer", "must be one of %s", strings.Join(keys, ", "))
		}
	case model.QuestionTypeFreeText:
		if len(req.Options) > 0 {
			return fieldErr("options", "free text questions take no options")
		}
	default:
		return fieldErr("type", "unsupported question type %q", req.Type)
	}
	return nil
}

func questionFromRequest(bankID uuid.UUID, req *model.AddQuestionRequest) *model.Question {
	return &model.Question{
		QBankID:       bankID,
		Text:          req.Text,
		Type:          req.Type,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		OrderNum:      req.OrderNum,
	}
}
