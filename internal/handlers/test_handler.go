package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/services"
	"github.com/SAP-F-2025/aptitude-service/internal/utils"
)

// TestHandler serves the test taker's routes under /user
type TestHandler struct {
	BaseHandler
	testService services.TestService
}

func NewTestHandler(testService services.TestService, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler: NewBaseHandler(logger),
		testService: testService,
	}
}

// ListTests lists the caller's assignments
// @Router /user/tests [get]
func (h *TestHandler) ListTests(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing assigned tests")

	assignments, err := h.testService.ListAssignments(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: assignments})
}

// GetAssignedTest returns the assignment with its nested template
// @Router /user/test/{id} [get]
func (h *TestHandler) GetAssignedTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting assigned test", "template_id", id)

	assignment, err := h.testService.GetAssignedTest(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: assignment})
}

// GetTest returns the flat test without an envelope
// @Router /user/tests/{id} [get]
func (h *TestHandler) GetTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting test", "template_id", id)

	test, err := h.testService.GetTest(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// StartTest begins the attempt; a repeated start answers 200 with the existing attempt
// @Router /user/test/{id}/start [post]
func (h *TestHandler) StartTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting test", "template_id", id)

	result, err := h.testService.Start(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if result.AlreadyStarted {
		c.JSON(http.StatusOK, SuccessResponse{Message: "Test already started", Data: result})
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse{Message: "Test started", Data: result})
}

// SubmitAnswers stores the answer batch
// @Router /user/test/{id}/submit [post]
func (h *TestHandler) SubmitAnswers(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting answers", "template_id", id, "responses", len(req.Responses), "trigger", req.Trigger)

	result, err := h.testService.Submit(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Answers submitted successfully", Data: result})
}

// CompleteTest closes the assignment
// @Router /user/test/{id}/complete [post]
func (h *TestHandler) CompleteTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Completing test", "template_id", id)

	if err := h.testService.Complete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Test completed"})
}

// GetSubmitted returns the submitted attempt with its template and review
// @Router /user/test/{id}/submitted [get]
func (h *TestHandler) GetSubmitted(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting submitted test", "template_id", id)

	data, err := h.testService.GetSubmitted(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: data})
}

// GetDetailedReview returns the per-question breakdown of an attempt
// @Router /user/results/{attemptId}/detailed-review [get]
func (h *TestHandler) GetDetailedReview(c *gin.Context) {
	id := h.parseIDParam(c, "attemptId")
	if id == 0 {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting detailed review", "attempt_id", id)

	review, err := h.testService.GetDetailedReview(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: review})
}

func (h *TestHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAssignmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Test not assigned"})
	case errors.Is(err, services.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Test not found"})
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Attempt not found"})
	case errors.Is(err, services.ErrAttemptNotStarted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Test has not been started"})
	case errors.Is(err, services.ErrAttemptAlreadySubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Test already submitted"})
	case errors.Is(err, services.ErrAttemptNotSubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Test has not been submitted"})
	case errors.Is(err, services.ErrAssignmentCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Test already completed"})
	case errors.Is(err, services.ErrTemplateEmpty):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "Test has no questions"})
	case errors.Is(err, services.ErrAssignmentExpired):
		c.JSON(http.StatusGone, ErrorResponse{Message: "Assignment has expired"})
	case errors.Is(err, services.ErrAttemptTimeExpired):
		c.JSON(http.StatusGone, ErrorResponse{Message: "Attempt time has expired"})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
