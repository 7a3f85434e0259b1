package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jinzhu/copier"

	"github.com/SAP-F-2025/aptitude-service/internal/events"
	"github.com/SAP-F-2025/aptitude-service/internal/grading"
	"github.com/SAP-F-2025/aptitude-service/internal/models"
)

// publishEvent never fails the caller; a lost event is logged
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType events.EventType, data interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		logger.Error("Failed to publish event", "event_type", eventType, "error", err)
	}
}

func attemptEventData(a *models.Attempt) events.AttemptEventData {
	return events.AttemptEventData{
		AttemptID:    a.ID,
		AssignmentID: a.AssignmentID,
		UserID:       a.UserID,
		TemplateID:   a.TemplateID,
		Status:       string(a.Status),
		Score:        a.Score,
		ReviewedBy:   a.ReviewedBy,
	}
}

func toTemplateView(t *models.TestTemplate) (*models.TemplateView, error) {
	view := &models.TemplateView{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Category:    t.Category,
		Department:  t.Department,
		TimeLimit:   t.TimeLimit,
		TotalPoints: t.TotalPoints(),
		Questions:   make([]models.QuestionView, 0, len(t.Questions)),
	}
	if err := copier.Copy(&view.Questions, &t.Questions); err != nil {
		return nil, fmt.Errorf("failed to map questions: %w", err)
	}
	return view, nil
}

func toAssignmentView(a *models.Assignment) (*models.AssignmentView, error) {
	template, err := toTemplateView(a.Template)
	if err != nil {
		return nil, err
	}
	return &models.AssignmentView{
		ID:           a.ID,
		UserID:       a.UserID,
		Status:       a.Status,
		AssignedAt:   a.AssignedAt,
		DueDate:      a.DueDate,
		TestTemplate: *template,
	}, nil
}

func submissionDeadline(a *models.Attempt, t *models.TestTemplate, grace time.Duration) time.Time {
	return a.StartedAt.Add(time.Duration(t.TimeLimit)*time.Minute + grace)
}

// elapsedMinutes is the wall time between start and now, capped at the limit
func elapsedMinutes(startedAt, now time.Time, limitMinutes int) float64 {
	elapsed := now.Sub(startedAt).Minutes()
	if elapsed < 0 {
		return 0
	}
	if limit := float64(limitMinutes); elapsed > limit {
		return limit
	}
	return elapsed
}

// reconcileTimeSpent prefers the client's minutes when they agree with the
// server clock within tolerance, and never leaves [0, limit].
func reconcileTimeSpent(server float64, reported *float64, limitMinutes int, tolerance time.Duration) float64 {
	if reported == nil {
		return server
	}
	if math.Abs(*reported-server) > tolerance.Minutes() {
		return server
	}
	return math.Max(0, math.Min(*reported, float64(limitMinutes)))
}

// scoreResponses dedupes the batch (last write wins), auto-scores each answer
// and returns the ids of questions not found in the template.
func scoreResponses(responses []models.ResponseItem, t *models.TestTemplate) ([]models.AttemptAnswer, []uint) {
	index := make(map[uint]int, len(responses))
	answers := make([]models.AttemptAnswer, 0, len(responses))
	var skipped []uint

	for _, r := range responses {
		q, ok := t.QuestionByID(r.QuestionID)
		if !ok {
			skipped = append(skipped, r.QuestionID)
			continue
		}

		ans := models.AttemptAnswer{QuestionID: q.ID, Answer: r.Answer}
		if points, correct, graded := grading.AutoScore(q, r.Answer); graded {
			ans.PointsAwarded = &points
			ans.IsCorrect = &correct
		}

		if i, seen := index[q.ID]; seen {
			answers[i] = ans
			continue
		}
		index[q.ID] = len(answers)
		answers = append(answers, ans)
	}
	return answers, skipped
}

func buildReviewData(a *models.Attempt, t *models.TestTemplate) *models.TestReviewData {
	data := &models.TestReviewData{
		Attempt:      a,
		TestTemplate: t,
		Review:       grading.BuildReview(a, t),
	}
	if a.Status.IsMarked() {
		summary := grading.Summarize(a.AwardedPoints(), t.TotalPoints())
		data.Summary = &summary
	}
	return data
}

func buildDetailedReview(a *models.Attempt, t *models.TestTemplate) *models.DetailedReview {
	t.SortQuestions()
	reviews := grading.WithCorrectAnswers(grading.BuildReview(a, t), t)
	return &models.DetailedReview{
		AttemptID: a.ID,
		Status:    a.Status,
		Feedback:  a.Feedback,
		Breakdown: models.ReviewBreakdown{
			QuestionResults: reviews,
			Statistics:      grading.Statistics(reviews, t.TotalPoints()),
		},
	}
}
