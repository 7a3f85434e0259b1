package models

import "time"

// ===== SUBMISSION DTOs =====

// ResponseItem is one {questionId, answer} pair of a submission batch
type ResponseItem struct {
	QuestionID uint   `json:"questionId" validate:"required"`
	Answer     string `json:"answer"`
}

type SubmitRequest struct {
	Responses []ResponseItem `json:"responses" validate:"dive"`
	TimeSpent *float64       `json:"timeSpent,omitempty" validate:"omitempty,min=0"` // minutes
	Trigger   string         `json:"trigger,omitempty" validate:"omitempty,oneof=manual auto"`
}

type StartResult struct {
	AttemptID      uint      `json:"attemptId"`
	AssignmentID   uint      `json:"assignmentId"`
	StartedAt      time.Time `json:"startedAt"`
	TimeLimit      int       `json:"timeLimit"`
	AlreadyStarted bool      `json:"alreadyStarted"`
}

type SubmitResult struct {
	AttemptID   uint      `json:"attemptId"`
	Status      string    `json:"status"`
	Answered    int       `json:"answered"`
	Skipped     []uint    `json:"skipped,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ===== TEST VIEWS =====

// QuestionView is a question as shown to the test taker; correct answers are never included
type QuestionView struct {
	ID      uint         `json:"id"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Options []string     `json:"options,omitempty"`
	Points  int          `json:"points"`
	Order   int          `json:"order"`
}

// TemplateView is the flat test shape
type TemplateView struct {
	ID          uint           `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Department  string         `json:"department"`
	TimeLimit   int            `json:"timeLimit"`
	TotalPoints int            `json:"totalPoints"`
	Questions   []QuestionView `json:"questions"`
}

// AssignmentView is the nested shape: an assignment carrying its template
type AssignmentView struct {
	ID           uint             `json:"id"`
	UserID       string           `json:"userId"`
	Status       AssignmentStatus `json:"status"`
	AssignedAt   time.Time        `json:"assignedAt"`
	DueDate      *time.Time       `json:"dueDate,omitempty"`
	TestTemplate TemplateView     `json:"testTemplate"`
}

// ===== REVIEW DTOs =====

type ReviewStatus string

const (
	ReviewCorrect        ReviewStatus = "correct"
	ReviewIncorrect      ReviewStatus = "incorrect"
	ReviewManualRequired ReviewStatus = "manual review required"
	ReviewNotGradable    ReviewStatus = "no reference answer"
)

// NoAnswerProvided stands in for the submitted answer of an unanswered question
const NoAnswerProvided = "no answer provided"

type QuestionReview struct {
	QuestionID      uint         `json:"questionId"`
	Type            QuestionType `json:"type"`
	Text            string       `json:"text"`
	Points          int          `json:"points"`
	SubmittedAnswer string       `json:"submittedAnswer"`
	Answered        bool         `json:"answered"`
	Status          ReviewStatus `json:"status"`
	IsCorrect       *bool        `json:"isCorrect"`
	PointsAwarded   *float64     `json:"pointsAwarded,omitempty"`
	CorrectAnswers  []string     `json:"correctAnswers,omitempty"`
}

type ScoreSummary struct {
	TotalScore  float64 `json:"totalScore"`
	TotalPoints int     `json:"totalPoints"`
	Percentage  float64 `json:"percentage"`
	Grade       string  `json:"grade"`
}

// TestReviewData is the frozen record of a submitted attempt. The template
// carries its reference answers so the review can be rebuilt locally.
type TestReviewData struct {
	Attempt      *Attempt         `json:"attempt"`
	TestTemplate *TestTemplate    `json:"testTemplate"`
	Review       []QuestionReview `json:"review"`
	Summary      *ScoreSummary    `json:"summary,omitempty"`
}

type ReviewStatistics struct {
	TotalQuestions int     `json:"totalQuestions"`
	Answered       int     `json:"answered"`
	Correct        int     `json:"correct"`
	Incorrect      int     `json:"incorrect"`
	ManualReview   int     `json:"manualReview"`
	TotalScore     float64 `json:"totalScore"`
	TotalPoints    int     `json:"totalPoints"`
	Percentage     float64 `json:"percentage"`
	Grade          string  `json:"grade"`
}

type ReviewBreakdown struct {
	QuestionResults []QuestionReview `json:"questionResults"`
	Statistics      ReviewStatistics `json:"statistics"`
}

type DetailedReview struct {
	AttemptID uint            `json:"attemptId"`
	Status    AttemptStatus   `json:"status"`
	Feedback  *string         `json:"feedback,omitempty"`
	Breakdown ReviewBreakdown `json:"breakdown"`
}

// ===== ADMIN DTOs =====

type AttemptSummary struct {
	AttemptID    uint          `json:"attemptId"`
	AssignmentID uint          `json:"assignmentId"`
	UserID       string        `json:"userId"`
	TemplateID   uint          `json:"templateId"`
	TemplateName string        `json:"templateName"`
	Status       AttemptStatus `json:"status"`
	StartedAt    time.Time     `json:"startedAt"`
	SubmittedAt  *time.Time    `json:"submittedAt,omitempty"`
	TimeSpent    float64       `json:"timeSpent"`
	Score        *float64      `json:"score,omitempty"`
	TotalPoints  int           `json:"totalPoints"`
	Percentage   *float64      `json:"percentage,omitempty"`
	Grade        string        `json:"grade,omitempty"`
}
