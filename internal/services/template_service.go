package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/repositories"
	"github.com/SAP-F-2025/aptitude-service/internal/validator"
	"gorm.io/datatypes"
)

type templateService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewTemplateService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) TemplateService {
	return &templateService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *templateService) Create(ctx context.Context, req *CreateTemplateRequest, creatorID string) (*models.TestTemplate, error) {
	s.logger.Info("Creating test template", "name", req.Name, "creator_id", creatorID, "questions", len(req.Questions))

	if err := s.validator.ValidateTemplateCreate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	template := &models.TestTemplate{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    req.Category,
		Department:  req.Department,
		TimeLimit:   req.TimeLimit,
		CreatedBy:   creatorID,
		Questions:   make([]models.Question, 0, len(req.Questions)),
	}
	for i := range req.Questions {
		template.Questions = append(template.Questions, buildQuestion(&req.Questions[i], i))
	}

	if err := s.repo.Template().Create(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	s.logger.Info("Test template created", "template_id", template.ID, "total_points", template.TotalPoints())
	return template, nil
}

func (s *templateService) GetByID(ctx context.Context, id uint) (*models.TestTemplate, error) {
	template, err := s.repo.Template().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return template, nil
}

func (s *templateService) List(ctx context.Context, filters repositories.TemplateFilters) (*TemplateListResponse, error) {
	templates, total, err := s.repo.Template().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return &TemplateListResponse{Templates: templates, Total: total}, nil
}

func (s *templateService) Update(ctx context.Context, id uint, req *UpdateTemplateRequest) (*models.TestTemplate, error) {
	s.logger.Info("Updating test template", "template_id", id)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	template, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNoAttempts(ctx, id); err != nil {
		return nil, err
	}

	if req.TimeLimit != nil {
		template.TimeLimit = *req.TimeLimit
	}
	if req.Name != nil {
		template.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		template.Description = *req.Description
	}
	if req.Category != nil {
		template.Category = *req.Category
	}
	if req.Department != nil {
		template.Department = *req.Department
	}

	if err := s.repo.Template().Update(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return template, nil
}

func (s *templateService) Delete(ctx context.Context, id uint) error {
	s.logger.Info("Deleting test template", "template_id", id)

	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.ensureNoAttempts(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Template().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

func (s *templateService) AddQuestion(ctx context.Context, templateID uint, req *CreateQuestionRequest) (*models.Question, error) {
	if err := s.validator.ValidateQuestionCreate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	template, err := s.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNoAttempts(ctx, templateID); err != nil {
		return nil, err
	}

	question := buildQuestion(req, len(template.Questions))
	question.TemplateID = templateID
	if err := s.repo.Template().AddQuestion(ctx, &question); err != nil {
		return nil, fmt.Errorf("failed to add question: %w", err)
	}

	s.logger.Info("Question added", "template_id", templateID, "question_id", question.ID, "type", question.Type)
	return &question, nil
}

// ensureNoAttempts keeps a template frozen once any attempt references it
func (s *templateService) ensureNoAttempts(ctx context.Context, templateID uint) error {
	attempts, err := s.repo.Attempt().CountByTemplate(ctx, templateID)
	if err != nil {
		return fmt.Errorf("failed to count attempts: %w", err)
	}
	if attempts > 0 {
		return ErrTemplateHasAttempts
	}
	return nil
}

// buildQuestion falls back to position for the display order when none is given
func buildQuestion(req *CreateQuestionRequest, position int) models.Question {
	order := req.Order
	if order == 0 {
		order = position + 1
	}
	q := models.Question{
		Type:           req.Type,
		Text:           req.Text,
		Points:         req.Points,
		Order:          order,
		CorrectAnswers: datatypes.JSONSlice[string](append([]string(nil), req.CorrectAnswers...)),
	}
	if len(req.Options) > 0 {
		q.Options = datatypes.JSONSlice[string](append([]string(nil), req.Options...))
	}
	return q
}
