package grading

import (
	"testing"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"gorm.io/datatypes"
)

func sampleTemplate() *models.TestTemplate {
	return &models.TestTemplate{
		ID:        1,
		Name:      "Numeracy",
		TimeLimit: 1,
		Questions: []models.Question{
			{ID: 10, Type: models.QuestionMultipleChoice, Text: "2+2?", Points: 5, Order: 1,
				Options: datatypes.JSONSlice[string]{"3", "4"}, CorrectAnswers: datatypes.JSONSlice[string]{"4"}},
			{ID: 11, Type: models.QuestionSentence, Text: "Explain", Points: 5, Order: 2,
				CorrectAnswers: datatypes.JSONSlice[string]{"reference text"}},
			{ID: 12, Type: models.QuestionBoolean, Text: "Sky is blue", Points: 2, Order: 3,
				CorrectAnswers: datatypes.JSONSlice[string]{"true"}},
		},
	}
}

func TestLetterGrade(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A"},
		{80, "A"},
		{79.9, "B"},
		{60, "B"},
		{59.9, "C"},
		{0, "C"},
	}
	for _, tt := range tests {
		if got := LetterGrade(tt.pct); got != tt.want {
			t.Errorf("LetterGrade(%v) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		total int
		want  float64
	}{
		{"full", 10, 10, 100},
		{"one decimal", 2, 3, 66.7},
		{"zero total", 5, 0, 0},
		{"half", 6, 12, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentage(tt.score, tt.total); got != tt.want {
				t.Errorf("Percentage(%v, %d) = %v, want %v", tt.score, tt.total, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Run("clamps above total", func(t *testing.T) {
		s := Summarize(map[uint]float64{1: 8, 2: 8}, 10)
		if s.TotalScore != 10 || s.Percentage != 100 || s.Grade != "A" {
			t.Errorf("unexpected summary %+v", s)
		}
	})

	t.Run("clamps below zero", func(t *testing.T) {
		s := Summarize(map[uint]float64{1: -3}, 10)
		if s.TotalScore != 0 || s.Grade != "C" {
			t.Errorf("unexpected summary %+v", s)
		}
	})

	t.Run("banding", func(t *testing.T) {
		s := Summarize(map[uint]float64{1: 5, 2: 2}, 10)
		if s.TotalScore != 7 || s.Percentage != 70 || s.Grade != "B" {
			t.Errorf("unexpected summary %+v", s)
		}
	})
}

func TestBuildReview(t *testing.T) {
	tmpl := sampleTemplate()

	t.Run("exact match is correct and order follows template", func(t *testing.T) {
		attempt := &models.Attempt{Answers: []models.AttemptAnswer{
			{QuestionID: 12, Answer: "true"},
			{QuestionID: 10, Answer: "4"},
		}}

		reviews := BuildReview(attempt, tmpl)
		if len(reviews) != 3 {
			t.Fatalf("expected 3 reviews, got %d", len(reviews))
		}
		for i, id := range []uint{10, 11, 12} {
			if reviews[i].QuestionID != id {
				t.Errorf("review %d: question %d, want %d", i, reviews[i].QuestionID, id)
			}
		}
		if reviews[0].IsCorrect == nil || !*reviews[0].IsCorrect {
			t.Errorf("multiple-choice exact match should be correct")
		}
		if reviews[2].Status != models.ReviewCorrect {
			t.Errorf("boolean exact match should be correct, got %s", reviews[2].Status)
		}
	})

	t.Run("case and whitespace differences are incorrect", func(t *testing.T) {
		for _, answer := range []string{" 4", "4 ", "four"} {
			attempt := &models.Attempt{Answers: []models.AttemptAnswer{{QuestionID: 10, Answer: answer}}}
			r := BuildReview(attempt, tmpl)[0]
			if r.IsCorrect == nil || *r.IsCorrect {
				t.Errorf("answer %q should be incorrect", answer)
			}
		}
		attempt := &models.Attempt{Answers: []models.AttemptAnswer{{QuestionID: 12, Answer: "True"}}}
		if r := BuildReview(attempt, tmpl)[2]; r.Status != models.ReviewIncorrect {
			t.Errorf("case-differing boolean should be incorrect, got %s", r.Status)
		}
	})

	t.Run("sentence is never auto graded", func(t *testing.T) {
		attempt := &models.Attempt{Answers: []models.AttemptAnswer{{QuestionID: 11, Answer: "reference text"}}}
		r := BuildReview(attempt, tmpl)[1]
		if r.IsCorrect != nil {
			t.Errorf("sentence review must not carry isCorrect, got %v", *r.IsCorrect)
		}
		if r.Status != models.ReviewManualRequired {
			t.Errorf("expected manual review, got %s", r.Status)
		}
	})

	t.Run("unanswered gets sentinel", func(t *testing.T) {
		reviews := BuildReview(&models.Attempt{}, tmpl)
		for _, r := range reviews {
			if r.Answered || r.SubmittedAnswer != models.NoAnswerProvided {
				t.Errorf("question %d: expected no answer sentinel, got %q", r.QuestionID, r.SubmittedAnswer)
			}
		}
		if reviews[0].IsCorrect == nil || *reviews[0].IsCorrect {
			t.Errorf("unanswered multiple-choice should be incorrect")
		}
		if reviews[1].IsCorrect != nil {
			t.Errorf("unanswered sentence should stay ungraded")
		}
	})

	t.Run("auto-gradable without reference answer", func(t *testing.T) {
		tmpl := &models.TestTemplate{Questions: []models.Question{{ID: 1, Type: models.QuestionBoolean, Points: 1}}}
		r := BuildReview(&models.Attempt{Answers: []models.AttemptAnswer{{QuestionID: 1, Answer: "true"}}}, tmpl)[0]
		if r.IsCorrect != nil || r.Status != models.ReviewNotGradable {
			t.Errorf("unexpected review %+v", r)
		}
	})
}

func TestStatistics(t *testing.T) {
	tmpl := sampleTemplate()
	five, zero := 5.0, 0.0
	attempt := &models.Attempt{Answers: []models.AttemptAnswer{
		{QuestionID: 10, Answer: "4", PointsAwarded: &five},
		{QuestionID: 12, Answer: "false", PointsAwarded: &zero},
	}}

	stats := Statistics(BuildReview(attempt, tmpl), tmpl.TotalPoints())
	if stats.TotalQuestions != 3 || stats.Answered != 2 {
		t.Errorf("unexpected counts %+v", stats)
	}
	if stats.Correct != 1 || stats.Incorrect != 1 || stats.ManualReview != 1 {
		t.Errorf("unexpected status counts %+v", stats)
	}
	if stats.TotalScore != 5 || stats.TotalPoints != 12 || stats.Percentage != 41.7 || stats.Grade != "C" {
		t.Errorf("unexpected score block %+v", stats)
	}
}

func TestAutoScore(t *testing.T) {
	tmpl := sampleTemplate()

	if pts, correct, graded := AutoScore(&tmpl.Questions[0], "4"); pts != 5 || !correct || !graded {
		t.Errorf("expected full points, got %v %v %v", pts, correct, graded)
	}
	if pts, correct, graded := AutoScore(&tmpl.Questions[0], "3"); pts != 0 || correct || !graded {
		t.Errorf("expected zero points, got %v %v %v", pts, correct, graded)
	}
	if _, _, graded := AutoScore(&tmpl.Questions[1], "reference text"); graded {
		t.Errorf("sentence must not be auto scored")
	}
}
