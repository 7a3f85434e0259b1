package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	if err := a.db.WithContext(ctx).Omit("Answers").Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).Preload("Answers").First(&attempt, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByAssignment(ctx context.Context, assignmentID uint) (*models.Attempt, error) {
	var attempt models.Attempt
	err := a.db.WithContext(ctx).
		Preload("Answers").
		Where("assignment_id = ?", assignmentID).
		First(&attempt).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return &attempt, nil
}

// Update saves attempt columns without touching answers
func (a *AttemptPostgreSQL) Update(ctx context.Context, attempt *models.Attempt) error {
	result := a.db.WithContext(ctx).
		Model(attempt).
		Select("status", "submitted_at", "time_spent", "score", "approved", "reviewed_by", "feedback").
		Updates(attempt)
	if result.Error != nil {
		return fmt.Errorf("failed to update attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// UpsertAnswers relies on the (attempt_id, question_id) unique index for last-write-wins
func (a *AttemptPostgreSQL) UpsertAnswers(ctx context.Context, attemptID uint, answers []models.AttemptAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	for i := range answers {
		answers[i].AttemptID = attemptID
	}

	err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"answer", "points_awarded", "is_correct", "updated_at"}),
		}).
		Create(&answers).Error
	if err != nil {
		return fmt.Errorf("failed to save answers: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var total int64
	query := applyAttemptFilters(a.db.WithContext(ctx).Model(&models.Attempt{}), filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	var attempts []*models.Attempt
	err := applyPagination(query, filters.Limit, filters.Offset).
		Preload("Answers").
		Order("id ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, total, nil
}

func (a *AttemptPostgreSQL) CountByTemplate(ctx context.Context, templateID uint) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("template_id = ?", templateID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}
