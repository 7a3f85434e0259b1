package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/aptitude-service/internal/cache"
	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/repositories"
)

type AssignmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAssignmentPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (a *AssignmentPostgreSQL) withTemplate(ctx context.Context) *gorm.DB {
	return a.db.WithContext(ctx).
		Preload("Template").
		Preload("Template.Questions", orderedQuestions)
}

func (a *AssignmentPostgreSQL) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now()
	}
	if err := a.db.WithContext(ctx).Omit("Template").Create(assignment).Error; err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	cache.InvalidateUserAssignments(ctx, a.cacheManager, assignment.UserID)
	return nil
}

func (a *AssignmentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := a.withTemplate(ctx).First(&assignment, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) GetLatestForUser(ctx context.Context, userID string, templateID uint) (*models.Assignment, error) {
	var assignment models.Assignment
	err := a.withTemplate(ctx).
		Where("user_id = ? AND template_id = ?", userID, templateID).
		Order("id DESC").
		First(&assignment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &assignment, nil
}

// ListByUser returns the user's assignments through the cache
func (a *AssignmentPostgreSQL) ListByUser(ctx context.Context, userID string) ([]*models.Assignment, error) {
	var assignments []*models.Assignment
	err := a.cacheManager.Assignment.CacheOrExecute(ctx, fmt.Sprintf("user:%s", userID), &assignments, cache.AssignmentCacheConfig.TTL, func() (interface{}, error) {
		var dbAssignments []*models.Assignment
		err := a.withTemplate(ctx).
			Where("user_id = ?", userID).
			Order("id DESC").
			Find(&dbAssignments).Error
		return dbAssignments, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

func (a *AssignmentPostgreSQL) List(ctx context.Context, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	var total int64
	query := applyAssignmentFilters(a.db.WithContext(ctx).Model(&models.Assignment{}), filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assignments: %w", err)
	}

	var assignments []*models.Assignment
	err := applyPagination(query, filters.Limit, filters.Offset).
		Preload("Template").
		Order("id DESC").
		Find(&assignments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, total, nil
}

func (a *AssignmentPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.AssignmentStatus) error {
	var assignment models.Assignment
	if err := a.db.WithContext(ctx).Select("id", "user_id").First(&assignment, id).Error; err != nil {
		return fmt.Errorf("failed to get assignment: %w", err)
	}

	err := a.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to update assignment status: %w", err)
	}

	cache.InvalidateUserAssignments(ctx, a.cacheManager, assignment.UserID)
	return nil
}

func (a *AssignmentPostgreSQL) ListOverdue(ctx context.Context, now time.Time) ([]*models.Assignment, error) {
	var assignments []*models.Assignment
	err := a.db.WithContext(ctx).
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Where("status IN ?", []models.AssignmentStatus{models.AssignmentAssigned, models.AssignmentInProgress}).
		Order("id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue assignments: %w", err)
	}
	return assignments, nil
}
