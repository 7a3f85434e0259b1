package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/repositories"
	"github.com/SAP-F-2025/aptitude-service/internal/services"
	"github.com/SAP-F-2025/aptitude-service/internal/utils"
)

type AssignmentHandler struct {
	BaseHandler
	assignmentService services.AssignmentService
}

func NewAssignmentHandler(assignmentService services.AssignmentService, logger utils.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assignmentService: assignmentService,
	}
}

// AssignTest assigns a template to one or more users
// @Router /admin/assignments [post]
func (h *AssignmentHandler) AssignTest(c *gin.Context) {
	var req services.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	adminID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Assigning test", "template_id", req.TemplateID, "users", len(req.UserIDs))

	assignments, err := h.assignmentService.Assign(c.Request.Context(), &req, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{Message: "Test assigned", Data: assignments})
}

// ReassignTest creates a new assignment linked to an earlier one
// @Router /admin/assignments/{id}/reassign [post]
func (h *AssignmentHandler) ReassignTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	adminID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Reassigning test", "assignment_id", id, "template_id", req.TemplateID)

	assignment, err := h.assignmentService.Reassign(c.Request.Context(), id, &req, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{Message: "Test reassigned", Data: assignment})
}

// @Router /admin/assignments [get]
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	filters := repositories.AssignmentFilters{}
	filters.Limit, filters.Offset = parsePagination(c)
	if v := c.Query("userId"); v != "" {
		filters.UserID = &v
	}
	if v, err := strconv.ParseUint(c.Query("templateId"), 10, 32); err == nil {
		id := uint(v)
		filters.TemplateID = &id
	}
	if v := c.Query("status"); v != "" {
		status := models.AssignmentStatus(v)
		filters.Status = &status
	}

	resp, err := h.assignmentService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: resp})
}

func (h *AssignmentHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Template not found"})
	case errors.Is(err, services.ErrAssignmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Assignment not found"})
	case errors.Is(err, services.ErrTemplateEmpty):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "Template has no questions"})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
