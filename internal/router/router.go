package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepexam/prepexam-backend/internal/config"
	"github.com/prepexam/prepexam-backend/internal/handler"
	"github.com/prepexam/prepexam-backend/internal/middleware"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/response"
	"github.com/prepexam/prepexam-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Exam    *handler.ExamHandler
	Session *handler.SessionHandler
	Submit  *handler.SubmitHandler
	Result  *handler.ResultHandler
	WS      *handler.WSHandler
	Monitor *handler.MonitorHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

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
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.HeaderGuestKey}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
	}

	// ─── 2. Public Catalog and Session Group ───────────────────────────
	// OptionalJWT: logged-in users get their claims attached, guests pass
	// through and are identified by their guest key. The session engine's
	// eligibility gate decides who may actually start.
	api := router.Group("/api")
	api.Use(middleware.OptionalJWT(authService))
	{
		api.GET("/exams", middleware.CacheControl(30), handlers.Exam.ListCatalog)
		api.GET("/exams/:exam_id", handlers.Exam.GetExam)

		// Session lifecycle
		api.POST("/exams/:exam_id/session", handlers.Session.Open)
		api.GET("/exams/:exam_id/session", handlers.Session.State)
		api.DELETE("/exams/:exam_id/session", handlers.Session.Teardown)
		api.PUT("/exams/:exam_id/session/answers", handlers.Session.SetAnswer)
		api.POST("/exams/:exam_id/session/identity", handlers.Session.ProvideIdentity)
		api.POST("/exams/:exam_id/session/submit", handlers.Session.Submit)
		api.POST("/exams/:exam_id/session/submit/decline", handlers.Session.DeclineSubmit)
		api.POST("/exams/:exam_id/session/exit", handlers.Session.RequestExit)
		api.POST("/exams/:exam_id/session/exit/confirm", handlers.Session.ConfirmExit)
		api.POST("/exams/:exam_id/session/exit/cancel", handlers.Session.CancelExit)

		// Direct anonymous submission (free exams only).
		api.POST("/exams/:exam_id/submit/anonymous", handlers.Submit.SubmitAnonymous)

		// Latest attempt; guests look up by the email they submitted with.
		api.GET("/exams/:exam_id/result", handlers.Result.GetForExam)
	}

	// ─── 3. Authenticated Group ────────────────────────────────────────
	userAPI := router.Group("/api")
	userAPI.Use(middleware.RequireJWT(authService))
	{
		userAPI.GET("/users/me", handlers.Auth.Me)
		userAPI.GET("/exams/:exam_id/check-attempt", handlers.Exam.CheckAttempt)
		userAPI.POST("/exams/:exam_id/submit", handlers.Submit.Submit)
		userAPI.GET("/results", handlers.Result.ListMine)
		userAPI.GET("/results/:result_id", handlers.Result.GetDetailed)
	}

	// ─── 4. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.OptionalJWT(authService))
	{
		ws.GET("/exams/:exam_id/session", handlers.WS.SessionStream)
	}

	// ─── 5. Admin Group ────────────────────────────────────────────────
	adminAPI := router.Group("/api/admin")
	adminAPI.Use(
		middleware.RequireJWT(authService),
		middleware.RequireRole(model.RoleAdmin, model.RoleModerator),
	)
	{
		adminAPI.GET("/exams", handlers.Exam.AdminList)
		adminAPI.POST("/exams", handlers.Exam.Create)
		adminAPI.PUT("/exams/:exam_id", handlers.Exam.Update)
		adminAPI.DELETE("/exams/:exam_id", handlers.Exam.Delete)
		adminAPI.POST("/exams/:exam_id/questions", handlers.Exam.AddQuestion)
		adminAPI.POST("/exams/:exam_id/questions/bulk", handlers.Exam.AddQuestionsBulk)
		adminAPI.PUT("/exams/:exam_id/questions/:question_id", handlers.Exam.UpdateQuestion)
		adminAPI.DELETE("/exams/:exam_id/questions/:question_id", handlers.Exam.DeleteQuestion)
		adminAPI.GET("/exams/:exam_id/results", handlers.Result.ListByExam)
		adminAPI.GET("/exams/:exam_id/monitor", handlers.Monitor.MonitorExamSSE)
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
