package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/config"
	"github.com/stemsi/eduportal-backend/internal/handler"
	"github.com/stemsi/eduportal-backend/internal/middleware"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/response"
)

// publicBlogMaxAge is how long clients and CDNs may cache public blog reads.
const publicBlogMaxAge = 300

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Class       *handler.ClassHandler
	StudentMgmt *handler.StudentManagementHandler
	Blog        *handler.BlogHandler
	Question    *handler.QuestionHandler
	Exam        *handler.ExamHandler
	Attempt     *handler.AttemptHandler
	WS          *handler.WSHandler
	Monitor     *handler.MonitorHandler
	System      *handler.SystemHandler
}

// Guards holds the collaborators of the auth and throttling middlewares.
type Guards struct {
	Tokens      middleware.TokenValidator
	Sessions    middleware.SessionValidator
	LoginLimit  *middleware.RateLimiter
	RequestsLog zerolog.Logger
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(guards Guards, handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log and every envelope carry it.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(guards.RequestsLog))
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	tokens := guards.Tokens
	session := middleware.CheckSingleDeviceSession(guards.Sessions, guards.RequestsLog)

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1/public")
	publicAPI.Use(middleware.CacheControl(publicBlogMaxAge))
	{
		publicAPI.GET("/blogs", handlers.Blog.ListPublished)
		publicAPI.GET("/blogs/:slug", handlers.Blog.GetPublished)
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/student/login", guards.LoginLimit.Middleware(), handlers.Auth.StudentLogin)
		auth.POST("/staff/login", guards.LoginLimit.Middleware(), handlers.Auth.StaffLogin)

		auth.POST("/student/logout", middleware.RequireStudentJWT(tokens), session, handlers.Auth.StudentLogout)
		auth.GET("/me", middleware.RequireAnyJWT(tokens), session, handlers.Auth.Me)
	}

	// ─── 2. Exam attempts ──────────────────────────────────────────────
	// Start, submit and state belong to the student taking the exam.
	studentExams := router.Group("/api/v1/exams")
	studentExams.Use(middleware.NoStore(), middleware.RequireStudentJWT(tokens), session)
	{
		studentExams.POST("/:exam_id/start", handlers.Attempt.StartAttempt)
		studentExams.POST("/:exam_id/submit", handlers.Attempt.SubmitAttempt)
		studentExams.GET("/:exam_id/attempts/:attempt_id", handlers.Attempt.GetAttemptState)
	}

	// Questions and exam listings are also open to staff.
	sharedAPI := router.Group("/api/v1")
	sharedAPI.Use(middleware.NoStore(), middleware.RequireAnyJWT(tokens), session)
	{
		sharedAPI.GET("/exams/:exam_id/questions", handlers.Attempt.GetQuestions)
		sharedAPI.GET("/students/:student_id/exams", handlers.Attempt.ListStudentExams)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(tokens), session)
	{
		ws.GET("/student/exams/:exam_id/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Admin Group (teacher or admin JWT) ─────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.NoStore(), middleware.RequireStaffJWT(tokens))
	{
		// Classes & batches
		adminAPI.GET("/classes", handlers.Class.ListClasses)
		adminAPI.GET("/classes/:id", handlers.Class.GetClass)
		adminAPI.POST("/classes", handlers.Class.CreateClass)
		adminAPI.PUT("/classes/:id", handlers.Class.UpdateClass)
		adminAPI.DELETE("/classes/:id", handlers.Class.DeleteClass)

		adminAPI.GET("/batches", handlers.Class.ListBatches)
		adminAPI.GET("/batches/:id", handlers.Class.GetBatch)
		adminAPI.POST("/batches", handlers.Class.CreateBatch)
		adminAPI.PUT("/batches/:id", handlers.Class.UpdateBatch)
		adminAPI.DELETE("/batches/:id", handlers.Class.DeleteBatch)

		// Students
		adminAPI.GET("/students", handlers.StudentMgmt.ListStudents)
		adminAPI.GET("/students/:id", handlers.StudentMgmt.GetStudent)
		adminAPI.POST("/students", handlers.StudentMgmt.CreateStudent)
		adminAPI.PUT("/students/:id", handlers.StudentMgmt.UpdateStudent)
		adminAPI.DELETE("/students/:id", handlers.StudentMgmt.DeleteStudent)
		adminAPI.POST("/students/:id/reset-session", handlers.StudentMgmt.ResetStudentSession)

		// Blogs
		adminAPI.GET("/blogs", handlers.Blog.ListAll)
		adminAPI.GET("/blogs/:id", handlers.Blog.GetBlog)
		adminAPI.POST("/blogs", handlers.Blog.CreateBlog)
		adminAPI.PUT("/blogs/:id", handlers.Blog.UpdateBlog)
		adminAPI.DELETE("/blogs/:id", handlers.Blog.DeleteBlog)

		// Question banks
		adminAPI.GET("/qbanks", handlers.Question.ListQBanks)
		adminAPI.GET("/qbanks/:id", handlers.Question.GetQBank)
		adminAPI.POST("/qbanks", handlers.Question.CreateQBank)
		adminAPI.PUT("/qbanks/:id", handlers.Question.UpdateQBank)
		adminAPI.DELETE("/qbanks/:id", handlers.Question.DeleteQBank)
		adminAPI.GET("/qbanks/:id/questions", handlers.Question.ListQuestions)
		adminAPI.POST("/qbanks/:id/questions", handlers.Question.AddQuestion)
		adminAPI.PUT("/qbanks/:id/questions", handlers.Question.ReplaceQuestions)
		adminAPI.DELETE("/qbanks/:id/questions/:question_id", handlers.Question.DeleteQuestion)
		adminAPI.POST("/qbanks/:id/import", handlers.Question.ImportQuestions)

		// Exams
		adminAPI.GET("/exams", handlers.Exam.ListExams)
		adminAPI.GET("/exams/:id", handlers.Exam.GetExam)
		adminAPI.POST("/exams", handlers.Exam.CreateExam)
		adminAPI.PUT("/exams/:id", handlers.Exam.UpdateExam)
		adminAPI.DELETE("/exams/:id", handlers.Exam.DeleteExam)
		adminAPI.POST("/exams/:id/publish", handlers.Exam.PublishExam)
		adminAPI.GET("/exams/:id/targets", handlers.Exam.ListTargets)
		adminAPI.POST("/exams/:id/targets", handlers.Exam.AddTarget)
		adminAPI.DELETE("/exams/:id/targets/:target_id", handlers.Exam.RemoveTarget)
		adminAPI.GET("/exams/:id/attempts", handlers.Exam.ListAttempts)
		adminAPI.GET("/exams/:id/monitor", handlers.Monitor.MonitorExamSSE)

		// Staff accounts (admin only)
		staff := adminAPI.Group("/staff")
		staff.Use(middleware.RequireStaffJWT(tokens, model.RoleAdmin))
		{
			staff.GET("", handlers.StudentMgmt.ListStaff)
			staff.POST("", handlers.StudentMgmt.CreateStaff)
			staff.PUT("/:id", handlers.StudentMgmt.UpdateStaff)
			staff.DELETE("/:id", handlers.StudentMgmt.DeleteStaff)
		}

		adminAPI.GET("/system/status", middleware.RequireStaffJWT(tokens, model.RoleAdmin), handlers.System.SystemStatus)
	}

	return router
}
