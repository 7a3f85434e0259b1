package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/aptitude-service/internal/cache"
	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/repositories"
)

type TemplatePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewTemplatePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.TemplateRepository {
	return &TemplatePostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// Create creates a template with its questions and invalidates list caches
func (t *TemplatePostgreSQL) Create(ctx context.Context, template *models.TestTemplate) error {
	if err := t.db.WithContext(ctx).Create(template).Error; err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	cache.SafeInvalidatePattern(ctx, t.cacheManager.Template, "list:*")
	return nil
}

// GetByID retrieves a template with ordered questions through the cache
func (t *TemplatePostgreSQL) GetByID(ctx context.Context, id uint) (*models.TestTemplate, error) {
	var template models.TestTemplate

	err := t.cacheManager.Template.CacheOrExecute(ctx, fmt.Sprintf("id:%d", id), &template, cache.TemplateCacheConfig.TTL, func() (interface{}, error) {
		var dbTemplate models.TestTemplate
		err := t.db.WithContext(ctx).
			Preload("Questions", orderedQuestions).
			First(&dbTemplate, id).Error
		if err != nil {
			return nil, err
		}
		return &dbTemplate, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return &template, nil
}

func (t *TemplatePostgreSQL) List(ctx context.Context, filters repositories.TemplateFilters) ([]*models.TestTemplate, int64, error) {
	var total int64
	query := applyTemplateFilters(t.db.WithContext(ctx).Model(&models.TestTemplate{}), filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count templates: %w", err)
	}

	var templates []*models.TestTemplate
	err := applyPagination(query, filters.Limit, filters.Offset).
		Preload("Questions", orderedQuestions).
		Order("created_at DESC").
		Find(&templates).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list templates: %w", err)
	}

	return templates, total, nil
}

// Update writes header fields and invalidates the cached template
func (t *TemplatePostgreSQL) Update(ctx context.Context, template *models.TestTemplate) error {
	result := t.db.WithContext(ctx).
		Model(&models.TestTemplate{}).
		Where("id = ?", template.ID).
		Updates(map[string]interface{}{
			"name":        template.Name,
			"description": template.Description,
			"category":    template.Category,
			"department":  template.Department,
			"time_limit":  template.TimeLimit,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update template: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	cache.InvalidateTemplateCache(ctx, t.cacheManager, template.ID)
	return nil
}

func (t *TemplatePostgreSQL) Delete(ctx context.Context, id uint) error {
	result := t.db.WithContext(ctx).Delete(&models.TestTemplate{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete template: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	cache.InvalidateTemplateCache(ctx, t.cacheManager, id)
	return nil
}

func (t *TemplatePostgreSQL) AddQuestion(ctx context.Context, question *models.Question) error {
	var count int64
	if err := t.db.WithContext(ctx).Model(&models.TestTemplate{}).Where("id = ?", question.TemplateID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check template: %w", err)
	}
	if count == 0 {
		return repositories.ErrNotFound
	}

	if err := t.db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to add question: %w", err)
	}

	cache.InvalidateTemplateCache(ctx, t.cacheManager, question.TemplateID)
	return nil
}
