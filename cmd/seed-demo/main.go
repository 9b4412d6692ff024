package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/eduportal-backend/internal/config"
	"github.com/stemsi/eduportal-backend/internal/database"
	"github.com/stemsi/eduportal-backend/internal/logger"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"github.com/stemsi/eduportal-backend/internal/service"
)

const (
	demoClass        = "Go Fundamentals"
	demoBatch        = "Autumn Cohort"
	demoAuthorEmail  = "demo.teacher@eduportal.local"
	demoPassword     = "eduportal123"
	demoExamCode     = "GOF-QUIZ-1"
	demoStudentCount = 20
)

// seed populates a class, a batch, students, a question bank and a
// published exam targeted at the batch. Reruns skip what already exists.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	classRepo := repository.NewClassRepository(pool)
	batchRepo := repository.NewBatchRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	membership := service.Membership{Classes: classRepo, Batches: batchRepo}

	authService := service.NewAuthService(cfg, repository.NewSessionStore(rdb))
	staffService := service.NewStaffService(repository.NewStaffRepository(pool), authService)
	studentService := service.NewStudentService(repository.NewStudentRepository(pool), membership, authService)
	classService := service.NewClassService(classRepo)
	batchService := service.NewBatchService(batchRepo, classRepo)
	questionService := service.NewQuestionService(questionRepo)
	examService := service.NewExamService(
		repository.NewExamRepository(pool),
		repository.NewExamTargetRepository(pool),
		questionRepo,
		membership,
		repository.NewExamCache(rdb),
		repository.NewAttemptRepository(pool),
		log,
	)

	fmt.Println("=== Seeding demo data ===")

	// Class
	classID, err := lookupID(ctx, pool, "SELECT id FROM classes WHERE name = $1", demoClass)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to look up class")
	}
	if classID == 0 {
		class := &model.Class{Name: demoClass, Description: "Introductory Go course"}
		if err := classService.Create(ctx, class); err != nil {
			log.Fatal().Err(err).Msg("Failed to create class")
		}
		classID = class.ID
		fmt.Printf("Created class %q (ID %d)\n", demoClass, classID)
	}

	// Batch
	batchID, err := lookupID(ctx, pool, "SELECT id FROM batches WHERE class_id = $1 AND name = $2", classID, demoBatch)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to look up batch")
	}
	if batchID == 0 {
		batch := &model.Batch{ClassID: classID, Name: demoBatch}
		if err := batchService.Create(ctx, batch); err != nil {
			log.Fatal().Err(err).Msg("Failed to create batch")
		}
		batchID = batch.ID
		fmt.Printf("Created batch %q (ID %d)\n", demoBatch, batchID)
	}

	// Exam author
	author, err := staffService.GetByEmail(ctx, demoAuthorEmail)
	if errors.Is(err, repository.ErrNotFound) {
		author = &model.Staff{Email: demoAuthorEmail, Name: "Demo Teacher", Role: model.RoleTeacher}
		err = staffService.Create(ctx, author, demoPassword)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare exam author")
	}

	// Students
	created := 0
	for i := 1; i <= demoStudentCount; i++ {
		student := &model.Student{
			Email:   fmt.Sprintf("student%02d@eduportal.local", i),
			Name:    fmt.Sprintf("Demo Student %02d", i),
			ClassID: &classID,
			BatchID: &batchID,
		}
		if err := studentService.Create(ctx, student, demoPassword); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			log.Fatal().Err(err).Str("email", student.Email).Msg("Failed to create student")
		}
		created++
	}
	fmt.Printf("Created %d/%d students\n", created, demoStudentCount)

	// Bank, exam, target
	examID, err := lookupUUID(ctx, pool, demoExamCode)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to look up exam")
	}
	if examID != "" {
		fmt.Printf("Exam %s already exists (%s), skipping\n", demoExamCode, examID)
		return
	}

	bank := &model.QuestionBank{Name: "Go basics", Description: "Demo questions"}
	if err := questionService.CreateBank(ctx, bank, author.ID); err != nil {
		log.Fatal().Err(err).Msg("Failed to create question bank")
	}

	req := &model.ExamRequest{Title: "Go Fundamentals Quiz", Code: demoExamCode, RandomizeQuestions: true}
	limit := 20
	req.TimeLimitMinutes = &limit
	for i, q := range demoQuestions() {
		q.OrderNum = i + 1
		added, err := questionService.AddQuestion(ctx, bank.ID, &q)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to add question")
		}
		req.QuestionIDs = append(req.QuestionIDs, added.ID)
	}

	claims := &service.Claims{Role: author.Role, UserID: author.ID}
	exam, err := examService.Create(ctx, claims, req)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}
	if _, err := examService.AddTarget(ctx, exam.ID, &model.ExamTargetRequest{BatchID: &batchID}); err != nil {
		log.Fatal().Err(err).Msg("Failed to target exam")
	}
	if _, err := examService.Publish(ctx, claims, exam.ID); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish exam")
	}

	fmt.Printf("\nSeed completed! Exam %s (%s) published for batch %d.\n", demoExamCode, exam.ID, batchID)
	fmt.Printf("Log in as student01@eduportal.local / %s\n", demoPassword)
}

func lookupID(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) (int, error) {
	var id int
	err := pool.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return id, err
}

func lookupUUID(ctx context.Context, pool *pgxpool.Pool, code string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id::text FROM exams WHERE code = $1", code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func demoQuestions() []model.AddQuestionRequest {
	choice := func(text, correct string, options map[string]string) model.AddQuestionRequest {
		return model.AddQuestionRequest{
			Text:          text,
			Type:          model.QuestionTypeSingleChoice,
			Options:       options,
			CorrectAnswer: correct,
		}
	}
	return []model.AddQuestionRequest{
		choice("Which keyword starts a goroutine?", "B", map[string]string{"A": "async", "B": "go", "C": "spawn", "D": "defer"}),
		choice("What is the zero value of a map?", "C", map[string]string{"A": "an empty map", "B": "0", "C": "nil", "D": "undefined"}),
		choice("Which package provides context cancellation?", "A", map[string]string{"A": "context", "B": "sync", "C": "os/signal", "D": "runtime"}),
		choice("What does a closed channel return on receive?", "D", map[string]string{"A": "it blocks", "B": "it panics", "C": "an error", "D": "the zero value"}),
		{
			Text:          "Name the built-in function that appends to a slice.",
			Type:          model.QuestionTypeFreeText,
			CorrectAnswer: "append",
		},
	}
}
