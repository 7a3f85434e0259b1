// Package grading derives review and score presentation from a submitted
// attempt and its template without touching storage.
package grading

import (
	"math"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
)

const (
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
)

// Grade bands, checked top-down
var gradeBands = []struct {
	min   float64
	grade string
}{
	{80, GradeA},
	{60, GradeB},
}

// LetterGrade maps a percentage onto the A/B/C bands
func LetterGrade(percentage float64) string {
	for _, band := range gradeBands {
		if percentage >= band.min {
			return band.grade
		}
	}
	return GradeC
}

// Percentage returns score / totalPoints * 100 rounded to one decimal.
// A template without points yields 0.
func Percentage(score float64, totalPoints int) float64 {
	if totalPoints <= 0 {
		return 0
	}
	return math.Round(score/float64(totalPoints)*1000) / 10
}

// Summarize totals the awarded points, clamped to [0, totalPoints]
func Summarize(questionScores map[uint]float64, totalPoints int) models.ScoreSummary {
	var total float64
	for _, pts := range questionScores {
		total += pts
	}
	total = ClampScore(total, totalPoints)

	pct := Percentage(total, totalPoints)
	return models.ScoreSummary{
		TotalScore:  total,
		TotalPoints: totalPoints,
		Percentage:  pct,
		Grade:       LetterGrade(pct),
	}
}

// ClampScore keeps a score within [0, totalPoints]
func ClampScore(score float64, totalPoints int) float64 {
	if score < 0 {
		return 0
	}
	if max := float64(totalPoints); score > max {
		return max
	}
	return score
}

// BuildReview pairs every template question, in template order, with the
// attempt's recorded answer. Multiple-choice and boolean questions are judged
// by exact string equality; sentence questions are left for manual review.
func BuildReview(attempt *models.Attempt, template *models.TestTemplate) []models.QuestionReview {
	reviews := make([]models.QuestionReview, 0, len(template.Questions))
	for i := range template.Questions {
		q := &template.Questions[i]

		review := models.QuestionReview{
			QuestionID:      q.ID,
			Type:            q.Type,
			Text:            q.Text,
			Points:          q.Points,
			SubmittedAnswer: models.NoAnswerProvided,
		}

		var answered *models.AttemptAnswer
		if attempt != nil {
			if ans, ok := attempt.AnswerFor(q.ID); ok {
				answered = ans
				review.SubmittedAnswer = ans.Answer
				review.Answered = true
				review.PointsAwarded = ans.PointsAwarded
			}
		}

		switch {
		case !q.Type.AutoGradable():
			review.Status = models.ReviewManualRequired
		case len(q.CorrectAnswers) == 0:
			review.Status = models.ReviewNotGradable
		default:
			correct := answered != nil && q.IsCorrectAnswer(answered.Answer)
			review.IsCorrect = &correct
			if correct {
				review.Status = models.ReviewCorrect
			} else {
				review.Status = models.ReviewIncorrect
			}
		}

		reviews = append(reviews, review)
	}
	return reviews
}

// WithCorrectAnswers attaches the reference answers to each review entry
func WithCorrectAnswers(reviews []models.QuestionReview, template *models.TestTemplate) []models.QuestionReview {
	for i := range reviews {
		if q, ok := template.QuestionByID(reviews[i].QuestionID); ok {
			reviews[i].CorrectAnswers = append([]string(nil), q.CorrectAnswers...)
		}
	}
	return reviews
}

// Statistics aggregates a built review into the detailed-review statistics block
func Statistics(reviews []models.QuestionReview, totalPoints int) models.ReviewStatistics {
	stats := models.ReviewStatistics{
		TotalQuestions: len(reviews),
		TotalPoints:    totalPoints,
	}

	scores := make(map[uint]float64, len(reviews))
	for _, r := range reviews {
		if r.Answered {
			stats.Answered++
		}
		switch r.Status {
		case models.ReviewCorrect:
			stats.Correct++
		case models.ReviewIncorrect:
			stats.Incorrect++
		case models.ReviewManualRequired:
			stats.ManualReview++
		}
		if r.PointsAwarded != nil {
			scores[r.QuestionID] = *r.PointsAwarded
		}
	}

	summary := Summarize(scores, totalPoints)
	stats.TotalScore = summary.TotalScore
	stats.Percentage = summary.Percentage
	stats.Grade = summary.Grade
	return stats
}

// AutoScore awards full points for a correct auto-gradable answer and zero
// otherwise. It reports false for questions that need manual review.
func AutoScore(q *models.Question, answer string) (points float64, correct bool, graded bool) {
	if !q.Type.AutoGradable() || len(q.CorrectAnswers) == 0 {
		return 0, false, false
	}
	if q.IsCorrectAnswer(answer) {
		return float64(q.Points), true, true
	}
	return 0, false, true
}
