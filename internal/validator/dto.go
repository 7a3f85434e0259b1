package validator

import (
	"time"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
)

// TemplateCreateRequest represents the request structure for creating test templates
type TemplateCreateRequest struct {
	Name        string                  `json:"name" validate:"required,template_name"`
	Description string                  `json:"description" validate:"max=1000"`
	Category    string                  `json:"category" validate:"max=100"`
	Department  string                  `json:"department" validate:"max=100"`
	TimeLimit   int                     `json:"timeLimit" validate:"required,time_limit"`
	Questions   []QuestionCreateRequest `json:"questions" validate:"omitempty,dive"`
}

// TemplateUpdateRequest represents the request structure for updating test templates
type TemplateUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,template_name"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	Department  *string `json:"department" validate:"omitempty,max=100"`
	TimeLimit   *int    `json:"timeLimit" validate:"omitempty,time_limit"`
}

// QuestionCreateRequest represents the request structure for adding a question to a template
type QuestionCreateRequest struct {
	Type           models.QuestionType `json:"type" validate:"required,question_type"`
	Text           string              `json:"text" validate:"required,min=1,max=2000"`
	Options        []string            `json:"options" validate:"omitempty,max=10,dive,required,max=500"`
	CorrectAnswers []string            `json:"correctAnswers" validate:"required,min=1,dive,required"`
	Points         int                 `json:"points" validate:"required,points_range"`
	Order          int                 `json:"order" validate:"min=0"`
}

// AssignmentCreateRequest assigns one template to one or more users
type AssignmentCreateRequest struct {
	TemplateID uint       `json:"templateId" validate:"required"`
	UserIDs    []string   `json:"userIds" validate:"required,min=1,dive,required"`
	DueDate    *time.Time `json:"dueDate" validate:"omitempty,future_date"`
}

// ReassignRequest points a user at a (possibly different) template through a new assignment
type ReassignRequest struct {
	TemplateID uint       `json:"templateId" validate:"required"`
	DueDate    *time.Time `json:"dueDate" validate:"omitempty,future_date"`
}

type QuestionScore struct {
	QuestionID uint    `json:"questionId" validate:"required"`
	Points     float64 `json:"points" validate:"min=0"`
}

// MarkRequest carries per-question scores for manually reviewed questions.
// Auto-graded scores are kept unless overridden here.
type MarkRequest struct {
	Scores   []QuestionScore `json:"scores" validate:"omitempty,dive"`
	Feedback *string         `json:"feedback" validate:"omitempty,max=2000"`
}

type ReviewDecisionRequest struct {
	Feedback *string `json:"feedback" validate:"omitempty,max=2000"`
}
