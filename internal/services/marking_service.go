package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/aptitude-service/internal/events"
	"github.com/SAP-F-2025/aptitude-service/internal/grading"
	"github.com/SAP-F-2025/aptitude-service/internal/metrics"
	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/repositories"
	"github.com/SAP-F-2025/aptitude-service/internal/validator"
)

const resultsSheet = "Results"

var resultsHeader = []interface{}{
	"Attempt ID", "User ID", "Test", "Status", "Started At", "Submitted At",
	"Time Spent (min)", "Score", "Total Points", "Percentage", "Grade",
}

type markingService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	metrics   *metrics.Metrics
}

func NewMarkingService(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
	m *metrics.Metrics,
) MarkingService {
	return &markingService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		metrics:   m,
	}
}

func (s *markingService) ListAttempts(ctx context.Context, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	attempts, total, err := s.repo.Attempt().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	summaries, err := s.summarize(ctx, attempts)
	if err != nil {
		return nil, err
	}
	return &AttemptListResponse{Attempts: summaries, Total: total}, nil
}

func (s *markingService) GetReview(ctx context.Context, attemptID uint) (*models.TestReviewData, error) {
	attempt, template, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	data := buildReviewData(attempt, template)
	data.Review = grading.WithCorrectAnswers(data.Review, template)
	return data, nil
}

func (s *markingService) BeginReview(ctx context.Context, attemptID uint, reviewerID string) (*models.Attempt, error) {
	attempt, _, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(attempt, models.AttemptUnderReview); err != nil {
		return nil, err
	}
	attempt.ReviewedBy = &reviewerID

	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to update attempt: %w", err)
	}

	s.logger.Info("Attempt review started", "attempt_id", attemptID, "reviewer_id", reviewerID)
	return attempt, nil
}

// Mark applies the reviewer's per-question scores over the auto-graded ones
// and stores the total. Questions not mentioned keep their current points.
func (s *markingService) Mark(ctx context.Context, attemptID uint, req *MarkRequest, reviewerID string) (*models.Attempt, error) {
	s.logger.Info("Marking attempt", "attempt_id", attemptID, "reviewer_id", reviewerID, "scores", len(req.Scores))

	attempt, template, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateMark(req, template); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := s.transition(attempt, models.AttemptMarked); err != nil {
		return nil, err
	}

	updated, err := applyScores(attempt, req.Scores)
	if err != nil {
		return nil, err
	}

	totalPoints := template.TotalPoints()
	var score float64
	for _, pts := range attempt.AwardedPoints() {
		score += pts
	}
	if score > float64(totalPoints) {
		return nil, ErrScoreExceedsTotal
	}
	score = grading.ClampScore(score, totalPoints)

	attempt.Score = &score
	attempt.ReviewedBy = &reviewerID
	if req.Feedback != nil {
		attempt.Feedback = req.Feedback
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if len(updated) > 0 {
			if err := tx.Attempt().UpsertAnswers(ctx, attempt.ID, updated); err != nil {
				return err
			}
		}
		return tx.Attempt().Update(ctx, attempt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark attempt: %w", err)
	}

	s.metrics.AttemptReviewed(string(models.AttemptMarked))
	s.publish(ctx, events.EventAttemptMarked, attemptEventData(attempt))

	s.logger.Info("Attempt marked",
		"attempt_id", attempt.ID,
		"score", score,
		"total_points", totalPoints,
		"percentage", grading.Percentage(score, totalPoints))
	return attempt, nil
}

func (s *markingService) Approve(ctx context.Context, attemptID uint, req *ReviewDecisionRequest, reviewerID string) (*models.Attempt, error) {
	return s.decide(ctx, attemptID, req, reviewerID, true)
}

func (s *markingService) Reject(ctx context.Context, attemptID uint, req *ReviewDecisionRequest, reviewerID string) (*models.Attempt, error) {
	return s.decide(ctx, attemptID, req, reviewerID, false)
}

func (s *markingService) decide(ctx context.Context, attemptID uint, req *ReviewDecisionRequest, reviewerID string, approved bool) (*models.Attempt, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	attempt, _, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	next, eventType := models.AttemptRejected, events.EventAttemptRejected
	if approved {
		next, eventType = models.AttemptApproved, events.EventAttemptApproved
	}
	if err := s.transition(attempt, next); err != nil {
		return nil, err
	}

	attempt.Approved = &approved
	attempt.ReviewedBy = &reviewerID
	if req.Feedback != nil {
		attempt.Feedback = req.Feedback
	}

	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to update attempt: %w", err)
	}

	s.metrics.AttemptReviewed(string(next))
	s.publish(ctx, eventType, attemptEventData(attempt))
	s.logger.Info("Attempt reviewed", "attempt_id", attemptID, "status", next, "reviewer_id", reviewerID)
	return attempt, nil
}

func (s *markingService) ExportResults(ctx context.Context, filters repositories.AttemptFilters, w io.Writer) error {
	attempts, _, err := s.repo.Attempt().List(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list attempts: %w", err)
	}
	summaries, err := s.summarize(ctx, attempts)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &resultsHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, sum := range summaries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			sum.AttemptID, sum.UserID, sum.TemplateName, string(sum.Status),
			sum.StartedAt.Format("2006-01-02 15:04:05"), "",
			sum.TimeSpent, "", sum.TotalPoints, "", sum.Grade,
		}
		if sum.SubmittedAt != nil {
			row[5] = sum.SubmittedAt.Format("2006-01-02 15:04:05")
		}
		if sum.Score != nil {
			row[7] = *sum.Score
		}
		if sum.Percentage != nil {
			row[9] = *sum.Percentage
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Results exported", "rows", len(summaries))
	return nil
}

// ===== HELPERS =====

func (s *markingService) loadAttempt(ctx context.Context, attemptID uint) (*models.Attempt, *models.TestTemplate, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	template, err := s.repo.Template().GetByID(ctx, attempt.TemplateID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrTemplateNotFound
		}
		return nil, nil, fmt.Errorf("failed to get template: %w", err)
	}
	template.SortQuestions()
	return attempt, template, nil
}

func (s *markingService) transition(attempt *models.Attempt, next models.AttemptStatus) error {
	if err := s.validator.ValidateAttemptTransition(attempt.Status, next); err != nil {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, attempt.Status, next)
	}
	attempt.Status = next
	return nil
}

func (s *markingService) summarize(ctx context.Context, attempts []*models.Attempt) ([]*models.AttemptSummary, error) {
	templates := make(map[uint]*models.TestTemplate)
	summaries := make([]*models.AttemptSummary, 0, len(attempts))

	for _, a := range attempts {
		template, ok := templates[a.TemplateID]
		if !ok {
			t, err := s.repo.Template().GetByID(ctx, a.TemplateID)
			if err != nil && !repositories.IsNotFoundError(err) {
				return nil, fmt.Errorf("failed to get template: %w", err)
			}
			template = t
			templates[a.TemplateID] = t
		}

		sum := &models.AttemptSummary{
			AttemptID:    a.ID,
			AssignmentID: a.AssignmentID,
			UserID:       a.UserID,
			TemplateID:   a.TemplateID,
			Status:       a.Status,
			StartedAt:    a.StartedAt,
			SubmittedAt:  a.SubmittedAt,
			TimeSpent:    a.TimeSpent,
			Score:        a.Score,
		}
		if template != nil {
			sum.TemplateName = template.Name
			sum.TotalPoints = template.TotalPoints()
		}
		if a.Score != nil {
			pct := grading.Percentage(*a.Score, sum.TotalPoints)
			sum.Percentage = &pct
			sum.Grade = grading.LetterGrade(pct)
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

func (s *markingService) publish(ctx context.Context, eventType events.EventType, data interface{}) {
	publishEvent(ctx, s.publisher, s.logger, eventType, data)
}

// applyScores writes reviewer points into the attempt's answers and returns
// the changed answers. Scoring an unanswered question is rejected.
func applyScores(attempt *models.Attempt, scores []validator.QuestionScore) ([]models.AttemptAnswer, error) {
	var errs ValidationErrors
	updated := make([]models.AttemptAnswer, 0, len(scores))

	for i, sc := range scores {
		ans, ok := attempt.AnswerFor(sc.QuestionID)
		if !ok {
			errs = append(errs, validator.ValidationError{
				Field:   fmt.Sprintf("scores[%d].questionId", i),
				Message: "question was not answered",
				Value:   sc.QuestionID,
				Rule:    "business_logic",
			})
			continue
		}
		points := sc.Points
		ans.PointsAwarded = &points
		updated = append(updated, *ans)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %w", errs)
	}
	return updated, nil
}
