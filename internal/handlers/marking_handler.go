package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/repositories"
	"github.com/SAP-F-2025/aptitude-service/internal/services"
	"github.com/SAP-F-2025/aptitude-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type MarkingHandler struct {
	BaseHandler
	markingService services.MarkingService
}

func NewMarkingHandler(markingService services.MarkingService, logger utils.Logger) *MarkingHandler {
	return &MarkingHandler{
		BaseHandler:    NewBaseHandler(logger),
		markingService: markingService,
	}
}

// @Router /admin/attempts [get]
func (h *MarkingHandler) ListAttempts(c *gin.Context) {
	filters := attemptFilters(c)

	resp, err := h.markingService.ListAttempts(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: resp})
}

// @Router /admin/attempts/{id} [get]
func (h *MarkingHandler) GetAttemptReview(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	data, err := h.markingService.GetReview(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: data})
}

// @Router /admin/attempts/{id}/review [post]
func (h *MarkingHandler) BeginReview(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	reviewerID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting review", "attempt_id", id)

	attempt, err := h.markingService.BeginReview(c.Request.Context(), id, reviewerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Review started", Data: attempt})
}

// @Router /admin/attempts/{id}/mark [post]
func (h *MarkingHandler) MarkAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	reviewerID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Marking attempt", "attempt_id", id, "scores", len(req.Scores))

	attempt, err := h.markingService.Mark(c.Request.Context(), id, &req, reviewerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Attempt marked", Data: attempt})
}

// @Router /admin/attempts/{id}/approve [post]
func (h *MarkingHandler) ApproveAttempt(c *gin.Context) {
	h.decide(c, true)
}

// @Router /admin/attempts/{id}/reject [post]
func (h *MarkingHandler) RejectAttempt(c *gin.Context) {
	h.decide(c, false)
}

func (h *MarkingHandler) decide(c *gin.Context, approve bool) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.ReviewDecisionRequest
	// the body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
	}
	reviewerID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deciding attempt", "attempt_id", id, "approve", approve)

	var (
		attempt *models.Attempt
		err     error
		message string
	)
	if approve {
		attempt, err = h.markingService.Approve(c.Request.Context(), id, &req, reviewerID)
		message = "Attempt approved"
	} else {
		attempt, err = h.markingService.Reject(c.Request.Context(), id, &req, reviewerID)
		message = "Attempt rejected"
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: message, Data: attempt})
}

// ExportResults streams matching attempts as an XLSX workbook
// @Router /admin/results/export [get]
func (h *MarkingHandler) ExportResults(c *gin.Context) {
	filters := attemptFilters(c)
	filters.Limit, filters.Offset = 0, 0

	h.LogRequest(c, "Exporting results")

	var buf bytes.Buffer
	if err := h.markingService.ExportResults(c.Request.Context(), filters, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("results-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func attemptFilters(c *gin.Context) repositories.AttemptFilters {
	filters := repositories.AttemptFilters{}
	filters.Limit, filters.Offset = parsePagination(c)
	if v := c.Query("userId"); v != "" {
		filters.UserID = &v
	}
	if v, err := strconv.ParseUint(c.Query("templateId"), 10, 32); err == nil {
		id := uint(v)
		filters.TemplateID = &id
	}
	if v := c.Query("status"); v != "" {
		status := models.AttemptStatus(v)
		filters.Status = &status
	}
	return filters
}

func (h *MarkingHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Attempt not found"})
	case errors.Is(err, services.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Template not found"})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Invalid status transition", Details: err.Error()})
	case errors.Is(err, services.ErrScoreExceedsTotal):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "Score exceeds total points"})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
