package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/aptitude-service/internal/events"
	"github.com/SAP-F-2025/aptitude-service/internal/metrics"
	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/repositories"
	"github.com/SAP-F-2025/aptitude-service/internal/validator"
)

type assignmentService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	metrics   *metrics.Metrics
}

func NewAssignmentService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
	m *metrics.Metrics,
) AssignmentService {
	return &assignmentService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		metrics:   m,
	}
}

func (s *assignmentService) Assign(ctx context.Context, req *CreateAssignmentRequest, adminID string) ([]*models.Assignment, error) {
	s.logger.Info("Assigning test", "template_id", req.TemplateID, "users", len(req.UserIDs), "admin_id", adminID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := s.checkAssignable(ctx, req.TemplateID); err != nil {
		return nil, err
	}

	now := time.Now()
	created := make([]*models.Assignment, 0, len(req.UserIDs))
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		for _, userID := range req.UserIDs {
			assignment := &models.Assignment{
				UserID:     userID,
				TemplateID: req.TemplateID,
				AssignedBy: adminID,
				AssignedAt: now,
				DueDate:    req.DueDate,
				Status:     models.AssignmentAssigned,
			}
			if err := tx.Assignment().Create(ctx, assignment); err != nil {
				return err
			}
			created = append(created, assignment)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create assignments: %w", err)
	}

	for _, a := range created {
		s.publish(ctx, events.EventAssignmentCreated, assignmentEventData(a))
	}
	return created, nil
}

// Reassign points the same user at a template through a new assignment row.
// The original row and any attempt made under it stay as they are.
func (s *assignmentService) Reassign(ctx context.Context, assignmentID uint, req *ReassignRequest, adminID string) (*models.Assignment, error) {
	s.logger.Info("Reassigning test", "assignment_id", assignmentID, "template_id", req.TemplateID, "admin_id", adminID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	original, err := s.repo.Assignment().GetByID(ctx, assignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if err := s.checkAssignable(ctx, req.TemplateID); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		UserID:         original.UserID,
		TemplateID:     req.TemplateID,
		AssignedBy:     adminID,
		AssignedAt:     time.Now(),
		DueDate:        req.DueDate,
		Status:         models.AssignmentAssigned,
		ReassignedFrom: &original.ID,
	}
	if err := s.repo.Assignment().Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	s.publish(ctx, events.EventAssignmentCreated, assignmentEventData(assignment))
	return assignment, nil
}

func (s *assignmentService) List(ctx context.Context, filters repositories.AssignmentFilters) (*AssignmentListResponse, error) {
	assignments, total, err := s.repo.Assignment().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return &AssignmentListResponse{Assignments: assignments, Total: total}, nil
}

// ExpireOverdue closes every open assignment whose due date is before now.
// A failure on one assignment is logged and does not stop the sweep.
func (s *assignmentService) ExpireOverdue(ctx context.Context, now time.Time) (*ExpiryReport, error) {
	overdue, err := s.repo.Assignment().ListOverdue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue assignments: %w", err)
	}

	report := &ExpiryReport{Checked: len(overdue)}
	for _, a := range overdue {
		if err := s.repo.Assignment().UpdateStatus(ctx, a.ID, models.AssignmentExpired); err != nil {
			s.logger.Error("Failed to expire assignment", "assignment_id", a.ID, "error", err)
			continue
		}
		report.Expired++
		s.publish(ctx, events.EventAssignmentExpired, assignmentEventData(a))
	}

	s.metrics.AssignmentsExpiredAdd(report.Expired)
	if report.Checked > 0 {
		s.logger.Info("Overdue assignments expired", "checked", report.Checked, "expired", report.Expired)
	}
	return report, nil
}

func (s *assignmentService) checkAssignable(ctx context.Context, templateID uint) error {
	template, err := s.repo.Template().GetByID(ctx, templateID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTemplateNotFound
		}
		return fmt.Errorf("failed to get template: %w", err)
	}
	if len(template.Questions) == 0 {
		return ErrTemplateEmpty
	}
	return nil
}

func (s *assignmentService) publish(ctx context.Context, eventType events.EventType, data interface{}) {
	publishEvent(ctx, s.publisher, s.logger, eventType, data)
}

func assignmentEventData(a *models.Assignment) events.AssignmentEventData {
	return events.AssignmentEventData{
		AssignmentID:   a.ID,
		UserID:         a.UserID,
		TemplateID:     a.TemplateID,
		AssignedBy:     a.AssignedBy,
		DueDate:        a.DueDate,
		ReassignedFrom: a.ReassignedFrom,
	}
}
