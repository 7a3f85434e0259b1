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

// DefaultSubmitGrace is how long after the time limit an answer batch is still accepted
const DefaultSubmitGrace = 30 * time.Second

type TestServiceConfig struct {
	SubmitGrace time.Duration
	Now         func() time.Time
}

type testService struct {
	repo        repositories.Repository
	logger      *slog.Logger
	validator   *validator.Validator
	publisher   events.EventPublisher
	metrics     *metrics.Metrics
	submitGrace time.Duration
	now         func() time.Time
}

func NewTestService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
	m *metrics.Metrics,
	cfg TestServiceConfig,
) TestService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SubmitGrace < 0 {
		cfg.SubmitGrace = 0
	}
	return &testService{
		repo:        repo,
		logger:      logger,
		validator:   validator,
		publisher:   publisher,
		metrics:     m,
		submitGrace: cfg.SubmitGrace,
		now:         cfg.Now,
	}
}

// ===== VIEWS =====

func (s *testService) ListAssignments(ctx context.Context, userID string) ([]*models.AssignmentView, error) {
	assignments, err := s.repo.Assignment().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	views := make([]*models.AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		if a.Template == nil {
			continue
		}
		view, err := toAssignmentView(a)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *testService) GetAssignedTest(ctx context.Context, templateID uint, userID string) (*models.AssignmentView, error) {
	assignment, err := s.resolveAssignment(ctx, templateID, userID)
	if err != nil {
		return nil, err
	}
	return toAssignmentView(assignment)
}

func (s *testService) GetTest(ctx context.Context, templateID uint, userID string) (*models.TemplateView, error) {
	assignment, err := s.resolveAssignment(ctx, templateID, userID)
	if err != nil {
		return nil, err
	}
	return toTemplateView(assignment.Template)
}

// ===== ATTEMPT LIFECYCLE =====

// Start creates the attempt for the caller's assignment. Starting twice is not
// an error: the existing attempt is returned with AlreadyStarted set.
func (s *testService) Start(ctx context.Context, templateID uint, userID string) (*models.StartResult, error) {
	s.logger.Info("Starting test attempt", "template_id", templateID, "user_id", userID)

	assignment, err := s.resolveAssignment(ctx, templateID, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Attempt().GetByAssignment(ctx, assignment.ID)
	if err == nil {
		return s.alreadyStarted(existing, assignment)
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	now := s.now()
	switch {
	case assignment.Status == models.AssignmentExpired, assignment.IsOverdue(now):
		return nil, ErrAssignmentExpired
	case assignment.Status == models.AssignmentCompleted:
		return nil, ErrAssignmentCompleted
	}
	if len(assignment.Template.Questions) == 0 {
		return nil, ErrTemplateEmpty
	}

	attempt := &models.Attempt{
		AssignmentID: assignment.ID,
		UserID:       userID,
		TemplateID:   assignment.TemplateID,
		Status:       models.AttemptInProgress,
		StartedAt:    now,
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Attempt().Create(ctx, attempt); err != nil {
			return err
		}
		return tx.Assignment().UpdateStatus(ctx, assignment.ID, models.AssignmentInProgress)
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			// lost a race with a concurrent start
			if existing, getErr := s.repo.Attempt().GetByAssignment(ctx, assignment.ID); getErr == nil {
				return s.alreadyStarted(existing, assignment)
			}
		}
		return nil, fmt.Errorf("failed to start attempt: %w", err)
	}

	s.metrics.AttemptStarted()
	s.publish(ctx, events.EventAttemptStarted, attemptEventData(attempt))

	s.logger.Info("Test attempt started",
		"attempt_id", attempt.ID,
		"assignment_id", assignment.ID,
		"user_id", userID)

	return &models.StartResult{
		AttemptID:    attempt.ID,
		AssignmentID: assignment.ID,
		StartedAt:    attempt.StartedAt,
		TimeLimit:    assignment.Template.TimeLimit,
	}, nil
}

func (s *testService) alreadyStarted(attempt *models.Attempt, assignment *models.Assignment) (*models.StartResult, error) {
	if attempt.Status.IsSubmitted() {
		return nil, ErrAttemptAlreadySubmitted
	}
	s.logger.Info("Test attempt already started", "attempt_id", attempt.ID, "user_id", attempt.UserID)
	return &models.StartResult{
		AttemptID:      attempt.ID,
		AssignmentID:   assignment.ID,
		StartedAt:      attempt.StartedAt,
		TimeLimit:      assignment.Template.TimeLimit,
		AlreadyStarted: true,
	}, nil
}

// Submit persists the answer batch and moves the attempt to submitted.
// Later entries for the same question replace earlier ones; entries for
// questions outside the template are skipped.
func (s *testService) Submit(ctx context.Context, templateID uint, req *models.SubmitRequest, userID string) (*models.SubmitResult, error) {
	s.logger.Info("Submitting answers",
		"template_id", templateID,
		"user_id", userID,
		"responses", len(req.Responses),
		"trigger", req.Trigger)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	assignment, err := s.resolveAssignment(ctx, templateID, userID)
	if err != nil {
		return nil, err
	}

	attempt, err := s.repo.Attempt().GetByAssignment(ctx, assignment.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotStarted
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptAlreadySubmitted
	}

	now := s.now()
	template := assignment.Template
	if now.After(submissionDeadline(attempt, template, s.submitGrace)) {
		s.logger.Warn("Submission after deadline rejected",
			"attempt_id", attempt.ID,
			"started_at", attempt.StartedAt,
			"time_limit", template.TimeLimit)
		return nil, ErrAttemptTimeExpired
	}

	answers, skipped := scoreResponses(req.Responses, template)
	for _, qid := range skipped {
		s.logger.Warn("Skipping answer for unknown question", "attempt_id", attempt.ID, "question_id", qid)
	}

	attempt.Status = models.AttemptSubmitted
	attempt.SubmittedAt = &now
	attempt.TimeSpent = reconcileTimeSpent(
		elapsedMinutes(attempt.StartedAt, now, template.TimeLimit), req.TimeSpent, template.TimeLimit, s.submitGrace)

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Attempt().UpsertAnswers(ctx, attempt.ID, answers); err != nil {
			return err
		}
		return tx.Attempt().Update(ctx, attempt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit answers: %w", err)
	}

	s.metrics.SubmissionAccepted(req.Trigger, len(answers))
	s.publish(ctx, events.EventAttemptSubmitted, attemptEventData(attempt))

	s.logger.Info("Answers submitted",
		"attempt_id", attempt.ID,
		"answered", len(answers),
		"skipped", len(skipped),
		"time_spent", attempt.TimeSpent)

	return &models.SubmitResult{
		AttemptID:   attempt.ID,
		Status:      string(attempt.Status),
		Answered:    len(answers),
		Skipped:     skipped,
		SubmittedAt: now,
	}, nil
}

// Complete closes the assignment once answers are in; repeating it is a no-op
func (s *testService) Complete(ctx context.Context, templateID uint, userID string) error {
	assignment, err := s.resolveAssignment(ctx, templateID, userID)
	if err != nil {
		return err
	}

	attempt, err := s.repo.Attempt().GetByAssignment(ctx, assignment.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotStarted
		}
		return fmt.Errorf("failed to get attempt: %w", err)
	}
	if !attempt.Status.IsSubmitted() {
		return ErrAttemptNotSubmitted
	}
	if assignment.Status == models.AssignmentCompleted {
		return nil
	}

	if err := s.repo.Assignment().UpdateStatus(ctx, assignment.ID, models.AssignmentCompleted); err != nil {
		return fmt.Errorf("failed to complete assignment: %w", err)
	}

	s.publish(ctx, events.EventAssignmentFinished, events.AssignmentEventData{
		AssignmentID: assignment.ID,
		UserID:       assignment.UserID,
		TemplateID:   assignment.TemplateID,
	})
	s.logger.Info("Assignment completed", "assignment_id", assignment.ID, "user_id", userID)
	return nil
}

// ===== REVIEW =====

func (s *testService) GetSubmitted(ctx context.Context, templateID uint, userID string) (*models.TestReviewData, error) {
	assignment, err := s.resolveAssignment(ctx, templateID, userID)
	if err != nil {
		return nil, err
	}

	attempt, err := s.repo.Attempt().GetByAssignment(ctx, assignment.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if !attempt.Status.IsSubmitted() {
		return nil, ErrAttemptNotSubmitted
	}

	return buildReviewData(attempt, assignment.Template), nil
}

func (s *testService) GetDetailedReview(ctx context.Context, attemptID uint, userID string) (*models.DetailedReview, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, NewPermissionError(userID, attemptID, "attempt", "review", "not owned by user")
	}
	if !attempt.Status.IsSubmitted() {
		return nil, ErrAttemptNotSubmitted
	}

	template, err := s.repo.Template().GetByID(ctx, attempt.TemplateID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return buildDetailedReview(attempt, template), nil
}

// ===== HELPERS =====

// resolveAssignment finds the caller's latest assignment of templateID with its template loaded
func (s *testService) resolveAssignment(ctx context.Context, templateID uint, userID string) (*models.Assignment, error) {
	assignment, err := s.repo.Assignment().GetLatestForUser(ctx, userID, templateID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if assignment.Template == nil {
		template, err := s.repo.Template().GetByID(ctx, assignment.TemplateID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrTemplateNotFound
			}
			return nil, fmt.Errorf("failed to get template: %w", err)
		}
		assignment.Template = template
	}
	assignment.Template.SortQuestions()
	return assignment, nil
}

func (s *testService) publish(ctx context.Context, eventType events.EventType, data interface{}) {
	publishEvent(ctx, s.publisher, s.logger, eventType, data)
}
