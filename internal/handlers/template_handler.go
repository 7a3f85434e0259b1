package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/aptitude-service/internal/repositories"
	"github.com/SAP-F-2025/aptitude-service/internal/services"
	"github.com/SAP-F-2025/aptitude-service/internal/utils"
)

type TemplateHandler struct {
	BaseHandler
	templateService services.TemplateService
}

func NewTemplateHandler(templateService services.TemplateService, logger utils.Logger) *TemplateHandler {
	return &TemplateHandler{
		BaseHandler:     NewBaseHandler(logger),
		templateService: templateService,
	}
}

// CreateTemplate creates a test template with its questions
// @Router /admin/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req services.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Creating template", "name", req.Name)

	template, err := h.templateService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{Message: "Template created", Data: template})
}

// @Router /admin/templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	filters := repositories.TemplateFilters{}
	filters.Limit, filters.Offset = parsePagination(c)
	if v := c.Query("category"); v != "" {
		filters.Category = &v
	}
	if v := c.Query("department"); v != "" {
		filters.Department = &v
	}

	h.LogRequest(c, "Listing templates")

	resp, err := h.templateService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: resp})
}

// @Router /admin/templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	template, err := h.templateService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: template})
}

// @Router /admin/templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Updating template", "template_id", id)

	template, err := h.templateService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Template updated", Data: template})
}

// @Router /admin/templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting template", "template_id", id)

	if err := h.templateService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddQuestion appends a question to a template
// @Router /admin/templates/{id}/questions [post]
func (h *TemplateHandler) AddQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Adding question", "template_id", id, "type", req.Type)

	question, err := h.templateService.AddQuestion(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{Message: "Question added", Data: question})
}

func (h *TemplateHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrTemplateHasAttempts):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Template already has attempts"})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
