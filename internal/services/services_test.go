package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/aptitude-service/internal/events"
	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/repositories"
	"github.com/SAP-F-2025/aptitude-service/internal/repositories/memory"
	"github.com/SAP-F-2025/aptitude-service/internal/validator"
)

type fixture struct {
	repo       *memory.Repository
	publisher  *events.MockEventPublisher
	tests      TestService
	templates  TemplateService
	assignment AssignmentService
	marking    MarkingService
	now        time.Time
	template   *models.TestTemplate
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := testLogger()
	v := validator.New()
	f := &fixture{
		repo:      memory.NewRepository(),
		publisher: events.NewMockEventPublisher(logger),
		now:       time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.tests = NewTestService(f.repo, logger, v, f.publisher, nil, TestServiceConfig{
		SubmitGrace: 30 * time.Second,
		Now:         func() time.Time { return f.now },
	})
	f.templates = NewTemplateService(f.repo, logger, v)
	f.assignment = NewAssignmentService(f.repo, logger, v, f.publisher, nil)
	f.marking = NewMarkingService(f.repo, logger, v, f.publisher, nil)

	f.template = &models.TestTemplate{
		Name:      "Logic",
		TimeLimit: 10,
		CreatedBy: "admin-1",
		Questions: []models.Question{
			{Type: models.QuestionMultipleChoice, Text: "2+2", Points: 5, Order: 1,
				Options: datatypes.JSONSlice[string]{"3", "4"}, CorrectAnswers: datatypes.JSONSlice[string]{"4"}},
			{Type: models.QuestionBoolean, Text: "Sky is blue", Points: 2, Order: 2,
				CorrectAnswers: datatypes.JSONSlice[string]{"true"}},
			{Type: models.QuestionSentence, Text: "Describe", Points: 3, Order: 3,
				CorrectAnswers: datatypes.JSONSlice[string]{"anything"}},
		},
	}
	require.NoError(t, f.repo.Template().Create(context.Background(), f.template))
	return f
}

func (f *fixture) assign(t *testing.T, userID string) *models.Assignment {
	t.Helper()
	created, err := f.assignment.Assign(context.Background(), &CreateAssignmentRequest{
		TemplateID: f.template.ID,
		UserIDs:    []string{userID},
	}, "admin-1")
	require.NoError(t, err)
	require.Len(t, created, 1)
	return created[0]
}

func (f *fixture) qid(i int) uint { return f.template.Questions[i].ID }

func TestTestService_StartIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.assign(t, "u1")

	first, err := f.tests.Start(ctx, f.template.ID, "u1")
	require.NoError(t, err)
	assert.False(t, first.AlreadyStarted)
	assert.Equal(t, 10, first.TimeLimit)

	second, err := f.tests.Start(ctx, f.template.ID, "u1")
	require.NoError(t, err)
	assert.True(t, second.AlreadyStarted)
	assert.Equal(t, first.AttemptID, second.AttemptID)

	stored, err := f.repo.Assignment().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentInProgress, stored.Status)
	assert.Len(t, f.publisher.EventsOfType(events.EventAttemptStarted), 1)
}

func TestTestService_StartErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("not assigned", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.tests.Start(ctx, f.template.ID, "stranger")
		assert.ErrorIs(t, err, ErrAssignmentNotFound)
	})

	t.Run("overdue", func(t *testing.T) {
		f := newFixture(t)
		due := f.now.Add(-time.Hour)
		require.NoError(t, f.repo.Assignment().Create(ctx, &models.Assignment{
			UserID:     "u1",
			TemplateID: f.template.ID,
			AssignedBy: "admin-1",
			AssignedAt: f.now.Add(-2 * time.Hour),
			DueDate:    &due,
			Status:     models.AssignmentAssigned,
		}))

		_, err := f.tests.Start(ctx, f.template.ID, "u1")
		assert.ErrorIs(t, err, ErrAssignmentExpired)
	})

	t.Run("already submitted", func(t *testing.T) {
		f := newFixture(t)
		f.assign(t, "u1")
		_, err := f.tests.Start(ctx, f.template.ID, "u1")
		require.NoError(t, err)
		_, err = f.tests.Submit(ctx, f.template.ID, &models.SubmitRequest{}, "u1")
		require.NoError(t, err)

		_, err = f.tests.Start(ctx, f.template.ID, "u1")
		assert.ErrorIs(t, err, ErrAttemptAlreadySubmitted)
	})
}

func TestTestService_SubmitScoresAndDedupes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assign(t, "u1")
	started, err := f.tests.Start(ctx, f.template.ID, "u1")
	require.NoError(t, err)

	f.now = f.now.Add(4 * time.Minute)
	res, err := f.tests.Submit(ctx, f.template.ID, &models.SubmitRequest{
		Trigger: "manual",
		Responses: []models.ResponseItem{
			{QuestionID: f.qid(0), Answer: "3"},
			{QuestionID: f.qid(1), Answer: "true"},
			{QuestionID: 9999, Answer: "ghost"},
			{QuestionID: f.qid(0), Answer: "4"},
		},
	}, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Answered)
	assert.Equal(t, []uint{9999}, res.Skipped)
	assert.Equal(t, string(models.AttemptSubmitted), res.Status)

	attempt, err := f.repo.Attempt().GetByID(ctx, started.AttemptID)
	require.NoError(t, err)
	require.Len(t, attempt.Answers, 2)
	assert.InDelta(t, 4.0, attempt.TimeSpent, 0.001)
	assert.Nil(t, attempt.Score)

	mc, ok := attempt.AnswerFor(f.qid(0))
	require.True(t, ok)
	assert.Equal(t, "4", mc.Answer)
	require.NotNil(t, mc.PointsAwarded)
	assert.Equal(t, 5.0, *mc.PointsAwarded)

	_, err = f.tests.Submit(ctx, f.template.ID, &models.SubmitRequest{}, "u1")
	assert.ErrorIs(t, err, ErrAttemptAlreadySubmitted)
}

func TestTestService_SubmitDeadline(t *testing.T) {
	ctx := context.Background()

	t.Run("within grace", func(t *testing.T) {
		f := newFixture(t)
		f.assign(t, "u1")
		_, err := f.tests.Start(ctx, f.template.ID, "u1")
		require.NoError(t, err)

		f.now = f.now.Add(10*time.Minute + 20*time.Second)
		_, err = f.tests.Submit(ctx, f.template.ID, &models.SubmitRequest{Trigger: "auto"}, "u1")
		assert.NoError(t, err)
	})

	t.Run("past grace", func(t *testing.T) {
		f := newFixture(t)
		f.assign(t, "u1")
		_, err := f.tests.Start(ctx, f.template.ID, "u1")
		require.NoError(t, err)

		f.now = f.now.Add(11 * time.Minute)
		_, err = f.tests.Submit(ctx, f.template.ID, &models.SubmitRequest{}, "u1")
		assert.ErrorIs(t, err, ErrAttemptTimeExpired)
	})

	t.Run("not started", func(t *testing.T) {
		f := newFixture(t)
		f.assign(t, "u1")
		_, err := f.tests.Submit(ctx, f.template.ID, &models.SubmitRequest{}, "u1")
		assert.ErrorIs(t, err, ErrAttemptNotStarted)
	})

	t.Run("invalid trigger", func(t *testing.T) {
		f := newFixture(t)
		f.assign(t, "u1")
		_, err := f.tests.Submit(ctx, f.template.ID, &models.SubmitRequest{Trigger: "timer"}, "u1")
		var verrs ValidationErrors
		assert.True(t, errors.As(err, &verrs))
	})
}

func TestTestService_CompleteAndReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.assign(t, "u1")

	_, err := f.tests.Start(ctx, f.template.ID, "u1")
	require.NoError(t, err)
	assert.ErrorIs(t, f.tests.Complete(ctx, f.template.ID, "u1"), ErrAttemptNotSubmitted)

	res, err := f.tests.Submit(ctx, f.template.ID, &models.SubmitRequest{
		Responses: []models.ResponseItem{{QuestionID: f.qid(0), Answer: "4"}},
	}, "u1")
	require.NoError(t, err)

	require.NoError(t, f.tests.Complete(ctx, f.template.ID, "u1"))
	require.NoError(t, f.tests.Complete(ctx, f.template.ID, "u1"))
	stored, err := f.repo.Assignment().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCompleted, stored.Status)
	assert.Len(t, f.publisher.EventsOfType(events.EventAssignmentFinished), 1)

	data, err := f.tests.GetSubmitted(ctx, f.template.ID, "u1")
	require.NoError(t, err)
	require.Len(t, data.Review, 3)
	assert.Equal(t, models.ReviewCorrect, data.Review[0].Status)
	assert.Equal(t, models.NoAnswerProvided, data.Review[1].SubmittedAnswer)
	assert.Equal(t, models.ReviewManualRequired, data.Review[2].Status)
	assert.Nil(t, data.Summary)

	review, err := f.tests.GetDetailedReview(ctx, res.AttemptID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, review.Breakdown.Statistics.TotalQuestions)
	assert.Equal(t, 1, review.Breakdown.Statistics.Correct)
	assert.Equal(t, 10, review.Breakdown.Statistics.TotalPoints)
	assert.Equal(t, []string{"4"}, review.Breakdown.QuestionResults[0].CorrectAnswers)

	_, err = f.tests.GetDetailedReview(ctx, res.AttemptID, "someone-else")
	var permErr *PermissionError
	assert.True(t, errors.As(err, &permErr))
}

func TestTestService_Views(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assign(t, "u1")

	nested, err := f.tests.GetAssignedTest(ctx, f.template.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Logic", nested.TestTemplate.Name)
	require.Len(t, nested.TestTemplate.Questions, 3)
	assert.Equal(t, []string{"3", "4"}, nested.TestTemplate.Questions[0].Options)

	flat, err := f.tests.GetTest(ctx, f.template.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, flat.TotalPoints)

	list, err := f.tests.ListAssignments(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTemplateService_CreateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.templates.Create(ctx, &CreateTemplateRequest{Name: "", TimeLimit: 0}, "admin-1")
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))

	created, err := f.templates.Create(ctx, &CreateTemplateRequest{
		Name:      " Numeracy ",
		TimeLimit: 15,
		Questions: []CreateQuestionRequest{{
			Type: models.QuestionBoolean, Text: "1 < 2", Points: 1, CorrectAnswers: []string{"true"},
		}},
	}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "Numeracy", created.Name)
	assert.Equal(t, 1, created.Questions[0].Order)

	q, err := f.templates.AddQuestion(ctx, created.ID, &CreateQuestionRequest{
		Type: models.QuestionSentence, Text: "Why?", Points: 4, CorrectAnswers: []string{"because"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, q.Order)

	require.NoError(t, f.templates.Delete(ctx, created.ID))
	_, err = f.templates.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	// a template with attempts is protected
	f.assign(t, "u1")
	_, err = f.tests.Start(ctx, f.template.ID, "u1")
	require.NoError(t, err)
	assert.ErrorIs(t, f.templates.Delete(ctx, f.template.ID), ErrTemplateHasAttempts)

	limit := 20
	_, err = f.templates.Update(ctx, f.template.ID, &UpdateTemplateRequest{TimeLimit: &limit})
	assert.ErrorIs(t, err, ErrTemplateHasAttempts)
}

func TestAssignmentService_ReassignAndExpire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := f.assign(t, "u1")

	re, err := f.assignment.Reassign(ctx, original.ID, &ReassignRequest{TemplateID: f.template.ID}, "admin-2")
	require.NoError(t, err)
	require.NotNil(t, re.ReassignedFrom)
	assert.Equal(t, original.ID, *re.ReassignedFrom)
	assert.Equal(t, "u1", re.UserID)

	stored, err := f.repo.Assignment().GetByID(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentAssigned, stored.Status)

	_, err = f.assignment.Reassign(ctx, 4242, &ReassignRequest{TemplateID: f.template.ID}, "admin-2")
	assert.ErrorIs(t, err, ErrAssignmentNotFound)

	due := time.Now().Add(time.Hour)
	_, err = f.assignment.Assign(ctx, &CreateAssignmentRequest{
		TemplateID: f.template.ID, UserIDs: []string{"u2"}, DueDate: &due,
	}, "admin-1")
	require.NoError(t, err)

	report, err := f.assignment.ExpireOverdue(ctx, due.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
	assert.Len(t, f.publisher.EventsOfType(events.EventAssignmentExpired), 1)

	report, err = f.assignment.ExpireOverdue(ctx, due.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Checked)
}

func TestMarkingService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assign(t, "u1")
	_, err := f.tests.Start(ctx, f.template.ID, "u1")
	require.NoError(t, err)
	res, err := f.tests.Submit(ctx, f.template.ID, &models.SubmitRequest{
		Responses: []models.ResponseItem{
			{QuestionID: f.qid(0), Answer: "4"},
			{QuestionID: f.qid(2), Answer: "a thoughtful essay"},
		},
	}, "u1")
	require.NoError(t, err)

	_, err = f.marking.Mark(ctx, res.AttemptID, &MarkRequest{}, "rev-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.marking.BeginReview(ctx, res.AttemptID, "rev-1")
	require.NoError(t, err)

	_, err = f.marking.Mark(ctx, res.AttemptID, &MarkRequest{
		Scores: []validator.QuestionScore{{QuestionID: f.qid(2), Points: 4}},
	}, "rev-1")
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "points above the question value are rejected")

	feedback := "good"
	marked, err := f.marking.Mark(ctx, res.AttemptID, &MarkRequest{
		Scores:   []validator.QuestionScore{{QuestionID: f.qid(2), Points: 2}},
		Feedback: &feedback,
	}, "rev-1")
	require.NoError(t, err)
	require.NotNil(t, marked.Score)
	assert.Equal(t, 7.0, *marked.Score)
	assert.Equal(t, models.AttemptMarked, marked.Status)

	data, err := f.tests.GetSubmitted(ctx, f.template.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, data.Summary)
	assert.Equal(t, 70.0, data.Summary.Percentage)
	assert.Equal(t, "B", data.Summary.Grade)

	approved, err := f.marking.Approve(ctx, res.AttemptID, &ReviewDecisionRequest{}, "rev-1")
	require.NoError(t, err)
	require.NotNil(t, approved.Approved)
	assert.True(t, *approved.Approved)

	_, err = f.marking.Reject(ctx, res.AttemptID, &ReviewDecisionRequest{}, "rev-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, f.publisher.EventsOfType(events.EventAttemptApproved), 1)
}

func TestMarkingService_ListAndExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assign(t, "u1")
	_, err := f.tests.Start(ctx, f.template.ID, "u1")
	require.NoError(t, err)

	list, err := f.marking.ListAttempts(ctx, repositories.AttemptFilters{})
	require.NoError(t, err)
	require.Equal(t, int64(1), list.Total)
	assert.Equal(t, "Logic", list.Attempts[0].TemplateName)
	assert.Equal(t, 10, list.Attempts[0].TotalPoints)

	var buf bytes.Buffer
	require.NoError(t, f.marking.ExportResults(ctx, repositories.AttemptFilters{}, &buf))
	// xlsx files are zip archives
	require.Greater(t, buf.Len(), 4)
	assert.Equal(t, "PK", string(buf.Bytes()[:2]))
}

func TestTemplateService_FrozenOnceAttempted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assign(t, "u1")
	_, err := f.tests.Start(ctx, f.template.ID, "u1")
	require.NoError(t, err)
	res, err := f.tests.Submit(ctx, f.template.ID, &models.SubmitRequest{
		Responses: []models.ResponseItem{
			{QuestionID: f.qid(0), Answer: "4"},
			{QuestionID: f.qid(2), Answer: "an essay"},
		},
	}, "u1")
	require.NoError(t, err)
	_, err = f.marking.BeginReview(ctx, res.AttemptID, "rev-1")
	require.NoError(t, err)
	_, err = f.marking.Mark(ctx, res.AttemptID, &MarkRequest{
		Scores: []validator.QuestionScore{{QuestionID: f.qid(2), Points: 3}},
	}, "rev-1")
	require.NoError(t, err)

	_, err = f.templates.AddQuestion(ctx, f.template.ID, &CreateQuestionRequest{
		Type: models.QuestionSentence, Text: "Extra", Points: 10, CorrectAnswers: []string{"x"},
	})
	assert.ErrorIs(t, err, ErrTemplateHasAttempts)

	name := "Renamed"
	_, err = f.templates.Update(ctx, f.template.ID, &UpdateTemplateRequest{Name: &name})
	assert.ErrorIs(t, err, ErrTemplateHasAttempts)

	data, err := f.tests.GetSubmitted(ctx, f.template.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, data.Summary)
	assert.Equal(t, 80.0, data.Summary.Percentage)
	assert.Equal(t, "A", data.Summary.Grade)
	assert.Len(t, data.Review, 3)
	assert.Equal(t, "Logic", data.TestTemplate.Name)
}

func TestTestService_SubmitTimeSpent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		reported *float64
		want     float64
	}{
		{name: "server clock when not reported", want: 4.0},
		{name: "client value within tolerance", reported: ptrFloat(4.25), want: 4.25},
		{name: "understated value falls back to server", reported: ptrFloat(0.1), want: 4.0},
		{name: "overstated value falls back to server", reported: ptrFloat(60), want: 4.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.assign(t, "u1")
			started, err := f.tests.Start(ctx, f.template.ID, "u1")
			require.NoError(t, err)

			f.now = f.now.Add(4 * time.Minute)
			_, err = f.tests.Submit(ctx, f.template.ID, &models.SubmitRequest{TimeSpent: tt.reported}, "u1")
			require.NoError(t, err)

			attempt, err := f.repo.Attempt().GetByID(ctx, started.AttemptID)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, attempt.TimeSpent, 0.001)
		})
	}
}

func TestReconcileTimeSpent_StaysWithinLimit(t *testing.T) {
	reported := 10.2
	assert.Equal(t, 10.0, reconcileTimeSpent(10, &reported, 10, 30*time.Second))

	negative := -0.1
	assert.Equal(t, 0.0, reconcileTimeSpent(0, &negative, 10, 30*time.Second))
}

func ptrFloat(v float64) *float64 { return &v }
