package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/repositories"
	"github.com/SAP-F-2025/aptitude-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

type CreateTemplateRequest = validator.TemplateCreateRequest
type UpdateTemplateRequest = validator.TemplateUpdateRequest
type CreateQuestionRequest = validator.QuestionCreateRequest
type CreateAssignmentRequest = validator.AssignmentCreateRequest
type ReassignRequest = validator.ReassignRequest
type MarkRequest = validator.MarkRequest
type ReviewDecisionRequest = validator.ReviewDecisionRequest

type TemplateListResponse struct {
	Templates []*models.TestTemplate `json:"templates"`
	Total     int64                  `json:"total"`
}

type AssignmentListResponse struct {
	Assignments []*models.Assignment `json:"assignments"`
	Total       int64                `json:"total"`
}

type AttemptListResponse struct {
	Attempts []*models.AttemptSummary `json:"attempts"`
	Total    int64                    `json:"total"`
}

// ExpiryReport summarises one ExpireOverdue sweep
type ExpiryReport struct {
	Checked int `json:"checked"`
	Expired int `json:"expired"`
}

// ===== SERVICE INTERFACES =====

// TestService drives the student side of a test attempt
type TestService interface {
	ListAssignments(ctx context.Context, userID string) ([]*models.AssignmentView, error)
	// GetAssignedTest returns the nested assignment shape for templateID
	GetAssignedTest(ctx context.Context, templateID uint, userID string) (*models.AssignmentView, error)
	// GetTest returns the flat template shape for templateID
	GetTest(ctx context.Context, templateID uint, userID string) (*models.TemplateView, error)

	Start(ctx context.Context, templateID uint, userID string) (*models.StartResult, error)
	Submit(ctx context.Context, templateID uint, req *models.SubmitRequest, userID string) (*models.SubmitResult, error)
	Complete(ctx context.Context, templateID uint, userID string) error

	GetSubmitted(ctx context.Context, templateID uint, userID string) (*models.TestReviewData, error)
	GetDetailedReview(ctx context.Context, attemptID uint, userID string) (*models.DetailedReview, error)
}

type TemplateService interface {
	Create(ctx context.Context, req *CreateTemplateRequest, creatorID string) (*models.TestTemplate, error)
	GetByID(ctx context.Context, id uint) (*models.TestTemplate, error)
	List(ctx context.Context, filters repositories.TemplateFilters) (*TemplateListResponse, error)
	Update(ctx context.Context, id uint, req *UpdateTemplateRequest) (*models.TestTemplate, error)
	Delete(ctx context.Context, id uint) error
	AddQuestion(ctx context.Context, templateID uint, req *CreateQuestionRequest) (*models.Question, error)
}

type AssignmentService interface {
	Assign(ctx context.Context, req *CreateAssignmentRequest, adminID string) ([]*models.Assignment, error)
	Reassign(ctx context.Context, assignmentID uint, req *ReassignRequest, adminID string) (*models.Assignment, error)
	List(ctx context.Context, filters repositories.AssignmentFilters) (*AssignmentListResponse, error)
	ExpireOverdue(ctx context.Context, now time.Time) (*ExpiryReport, error)
}

type MarkingService interface {
	ListAttempts(ctx context.Context, filters repositories.AttemptFilters) (*AttemptListResponse, error)
	GetReview(ctx context.Context, attemptID uint) (*models.TestReviewData, error)
	BeginReview(ctx context.Context, attemptID uint, reviewerID string) (*models.Attempt, error)
	Mark(ctx context.Context, attemptID uint, req *MarkRequest, reviewerID string) (*models.Attempt, error)
	Approve(ctx context.Context, attemptID uint, req *ReviewDecisionRequest, reviewerID string) (*models.Attempt, error)
	Reject(ctx context.Context, attemptID uint, req *ReviewDecisionRequest, reviewerID string) (*models.Attempt, error)
	// ExportResults writes one XLSX row per attempt matching filters
	ExportResults(ctx context.Context, filters repositories.AttemptFilters, w io.Writer) error
}

type ServiceManager interface {
	Initialize(ctx context.Context) error

	Test() TestService
	Template() TemplateService
	Assignment() AssignmentService
	Marking() MarkingService

	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
