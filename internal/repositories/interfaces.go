package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type TemplateFilters struct {
	Category   *string `json:"category"`
	Department *string `json:"department"`
	CreatedBy  *string `json:"createdBy"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
}

type AssignmentFilters struct {
	UserID     *string                  `json:"userId"`
	TemplateID *uint                    `json:"templateId"`
	Status     *models.AssignmentStatus `json:"status"`
	Limit      int                      `json:"limit"`
	Offset     int                      `json:"offset"`
}

type AttemptFilters struct {
	UserID     *string               `json:"userId"`
	TemplateID *uint                 `json:"templateId"`
	Status     *models.AttemptStatus `json:"status"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====

type TemplateRepository interface {
	// Create stores the template together with its questions
	Create(ctx context.Context, template *models.TestTemplate) error
	// GetByID loads the template with questions in display order
	GetByID(ctx context.Context, id uint) (*models.TestTemplate, error)
	List(ctx context.Context, filters TemplateFilters) ([]*models.TestTemplate, int64, error)
	// Update writes header fields only; questions are managed through AddQuestion
	Update(ctx context.Context, template *models.TestTemplate) error
	Delete(ctx context.Context, id uint) error
	AddQuestion(ctx context.Context, question *models.Question) error
}

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id uint) (*models.Assignment, error)
	// GetLatestForUser returns the most recent assignment of templateID to userID
	GetLatestForUser(ctx context.Context, userID string, templateID uint) (*models.Assignment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Assignment, error)
	List(ctx context.Context, filters AssignmentFilters) ([]*models.Assignment, int64, error)
	UpdateStatus(ctx context.Context, id uint, status models.AssignmentStatus) error
	// ListOverdue returns open assignments whose due date is before now
	ListOverdue(ctx context.Context, now time.Time) ([]*models.Assignment, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	// GetByID loads the attempt with its answers
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	GetByAssignment(ctx context.Context, assignmentID uint) (*models.Attempt, error)
	// Update writes attempt fields; answers are written through UpsertAnswers
	Update(ctx context.Context, attempt *models.Attempt) error
	// UpsertAnswers inserts or replaces answers keyed by (attempt, question)
	UpsertAnswers(ctx context.Context, attemptID uint, answers []models.AttemptAnswer) error
	List(ctx context.Context, filters AttemptFilters) ([]*models.Attempt, int64, error)
	CountByTemplate(ctx context.Context, templateID uint) (int64, error)
}
