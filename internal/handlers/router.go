package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/services"
	"github.com/docuhub/exam-service/internal/utils"
)

const serviceName = "exam-service"

type HandlerManager struct {
	serviceManager services.ServiceManager
	examHandler    *ExamHandler
	attemptHandler *AttemptHandler
	authenticator  Authenticator
	logger         utils.Logger
}

// NewHandlerManager wires handlers to an initialized service manager
func NewHandlerManager(
	serviceManager services.ServiceManager,
	authenticator Authenticator,
	logger utils.Logger,
	exposeErrors bool,
) *HandlerManager {
	return &HandlerManager{
		serviceManager: serviceManager,
		examHandler: NewExamHandler(
			serviceManager.Exam(),
			serviceManager.Attempt(),
			serviceManager.Export(),
			logger,
			exposeErrors,
		),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), logger, exposeErrors),
		authenticator:  authenticator,
		logger:         logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.GET("/health", hm.health)

	exams := api.Group("/exams")
	exams.Use(AuthMiddleware(hm.authenticator, hm.logger))
	{
		adminOnly := RequireRoleMiddleware(models.RoleAdmin)

		// Static segments first so they are not taken for an exam id
		exams.GET("", hm.examHandler.ListExams)
		exams.GET("/results", hm.attemptHandler.ListMyResults)
		exams.POST("", adminOnly, hm.examHandler.CreateExam)
		exams.GET("/attempts/:id", hm.attemptHandler.GetAttempt)

		exams.GET("/:id", hm.examHandler.GetExam)
		exams.POST("/:id/start", hm.attemptHandler.StartAttempt)
		exams.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
		exams.DELETE("/:id", adminOnly, hm.examHandler.DeleteExam)
		exams.GET("/:id/results", adminOnly, hm.examHandler.ListExamResults)
		exams.GET("/:id/results/export", adminOnly, hm.examHandler.ExportExamResults)
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"success":   true,
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		utils.FromContext(c, hm.logger).Warn("Health check failed", "error", err)
		status = http.StatusServiceUnavailable
		body["success"] = false
		body["status"] = "unhealthy"
	}
	c.JSON(status, body)
}
