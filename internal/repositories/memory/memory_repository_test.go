package memory

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/repositories"
)

func TestAttemptRepo_UpsertAnswers(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	attempt := &models.Attempt{AssignmentID: 1, UserID: "u1", TemplateID: 1, Status: models.AttemptInProgress, StartedAt: time.Now()}
	if err := repo.Attempt().Create(ctx, attempt); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := repo.Attempt().UpsertAnswers(ctx, attempt.ID, []models.AttemptAnswer{
		{QuestionID: 1, Answer: "a"},
		{QuestionID: 2, Answer: "x"},
	})
	if err != nil {
		t.Fatalf("UpsertAnswers failed: %v", err)
	}
	if err := repo.Attempt().UpsertAnswers(ctx, attempt.ID, []models.AttemptAnswer{{QuestionID: 1, Answer: "b"}}); err != nil {
		t.Fatalf("UpsertAnswers failed: %v", err)
	}

	got, err := repo.Attempt().GetByID(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(got.Answers))
	}
	if ans, _ := got.AnswerFor(1); ans.Answer != "b" {
		t.Errorf("expected last write to win, got %q", ans.Answer)
	}
}

func TestAttemptRepo_OnePerAssignment(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	if err := repo.Attempt().Create(ctx, &models.Attempt{AssignmentID: 5}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := repo.Attempt().Create(ctx, &models.Attempt{AssignmentID: 5})
	if !repositories.IsDuplicateError(err) {
		t.Errorf("expected duplicate error, got %v", err)
	}
}

func TestTemplateRepo_ReturnsCopies(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	tmpl := &models.TestTemplate{Name: "Logic", TimeLimit: 10, Questions: []models.Question{
		{Type: models.QuestionBoolean, Text: "b", Points: 1, Order: 2},
		{Type: models.QuestionBoolean, Text: "a", Points: 1, Order: 1},
	}}
	if err := repo.Template().Create(ctx, tmpl); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.Template().GetByID(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Questions[0].Text != "a" {
		t.Errorf("expected questions in display order, got %q first", got.Questions[0].Text)
	}

	got.Name = "mutated"
	again, _ := repo.Template().GetByID(ctx, tmpl.ID)
	if again.Name != "Logic" {
		t.Errorf("stored template was mutated through a returned copy")
	}

	if _, err := repo.Template().GetByID(ctx, 999); !repositories.IsNotFoundError(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestAssignmentRepo_ListOverdue(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	for _, a := range []*models.Assignment{
		{UserID: "u1", TemplateID: 1, Status: models.AssignmentAssigned, DueDate: &past},
		{UserID: "u2", TemplateID: 1, Status: models.AssignmentCompleted, DueDate: &past},
		{UserID: "u3", TemplateID: 1, Status: models.AssignmentInProgress, DueDate: &future},
		{UserID: "u4", TemplateID: 1, Status: models.AssignmentAssigned},
	} {
		if err := repo.Assignment().Create(ctx, a); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	overdue, err := repo.Assignment().ListOverdue(ctx, time.Now())
	if err != nil {
		t.Fatalf("ListOverdue failed: %v", err)
	}
	if len(overdue) != 1 || overdue[0].UserID != "u1" {
		t.Errorf("expected only u1 to be overdue, got %+v", overdue)
	}
}
