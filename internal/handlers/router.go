package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/aptitude-service/internal/metrics"
	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/services"
	"github.com/SAP-F-2025/aptitude-service/internal/utils"
)

type HandlerManager struct {
	testHandler       *TestHandler
	templateHandler   *TemplateHandler
	assignmentHandler *AssignmentHandler
	markingHandler    *MarkingHandler
	authMiddleware    *CasdoorAuthMiddleware
	serviceManager    services.ServiceManager
	metrics           *metrics.Metrics
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
	m *metrics.Metrics,
) *HandlerManager {
	return &HandlerManager{
		testHandler:       NewTestHandler(serviceManager.Test(), logger),
		templateHandler:   NewTemplateHandler(serviceManager.Template(), logger),
		assignmentHandler: NewAssignmentHandler(serviceManager.Assignment(), logger),
		markingHandler:    NewMarkingHandler(serviceManager.Marking(), logger),
		authMiddleware:    authMiddleware,
		serviceManager:    serviceManager,
		metrics:           m,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Test taker routes
	user := router.Group("/user")
	user.Use(hm.authMiddleware.AuthMiddleware())
	{
		user.GET("/tests", hm.testHandler.ListTests)
		user.GET("/tests/:id", hm.testHandler.GetTest)

		user.GET("/test/:id", hm.testHandler.GetAssignedTest)
		user.POST("/test/:id/start", hm.testHandler.StartTest)
		user.POST("/test/:id/submit", hm.testHandler.SubmitAnswers)
		user.POST("/test/:id/complete", hm.testHandler.CompleteTest)
		user.GET("/test/:id/submitted", hm.testHandler.GetSubmitted)

		user.GET("/results/:attemptId/detailed-review", hm.testHandler.GetDetailedReview)
	}

	// Administrator routes
	admin := router.Group("/admin")
	admin.Use(hm.authMiddleware.AuthMiddleware(), hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
	{
		templates := admin.Group("/templates")
		{
			templates.POST("", hm.templateHandler.CreateTemplate)
			templates.GET("", hm.templateHandler.ListTemplates)
			templates.GET("/:id", hm.templateHandler.GetTemplate)
			templates.PUT("/:id", hm.templateHandler.UpdateTemplate)
			templates.DELETE("/:id", hm.templateHandler.DeleteTemplate)
			templates.POST("/:id/questions", hm.templateHandler.AddQuestion)
		}

		assignments := admin.Group("/assignments")
		{
			assignments.POST("", hm.assignmentHandler.AssignTest)
			assignments.GET("", hm.assignmentHandler.ListAssignments)
			assignments.POST("/:id/reassign", hm.assignmentHandler.ReassignTest)
		}

		attempts := admin.Group("/attempts")
		{
			attempts.GET("", hm.markingHandler.ListAttempts)
			attempts.GET("/:id", hm.markingHandler.GetAttemptReview)
			attempts.POST("/:id/review", hm.markingHandler.BeginReview)
			attempts.POST("/:id/mark", hm.markingHandler.MarkAttempt)
			attempts.POST("/:id/approve", hm.markingHandler.ApproveAttempt)
			attempts.POST("/:id/reject", hm.markingHandler.RejectAttempt)
		}

		admin.GET("/results/export", hm.markingHandler.ExportResults)
	}

	router.GET("/health", hm.health)
	if hm.metrics != nil {
		router.GET("/metrics", hm.metrics.Handler())
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "aptitude-service",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "aptitude-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
