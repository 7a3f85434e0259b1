package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionSentence       QuestionType = "sentence"
	QuestionBoolean        QuestionType = "boolean"
)

// IsValid reports whether t is one of the supported question types
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionSentence, QuestionBoolean:
		return true
	}
	return false
}

// AutoGradable reports whether answers of this type are scored by exact match
func (t QuestionType) AutoGradable() bool {
	return t == QuestionMultipleChoice || t == QuestionBoolean
}

type Question struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	TemplateID uint         `json:"templateId" gorm:"not null;index"`
	Type       QuestionType `json:"type" gorm:"not null;size:32"`
	Text       string       `json:"text" gorm:"type:text;not null"`
	Points     int          `json:"points" gorm:"not null;default:1"`
	Order      int          `json:"order" gorm:"not null;default:0"`

	// Options is only meaningful for multiple-choice questions
	Options        datatypes.JSONSlice[string] `json:"options,omitempty" gorm:"type:jsonb"`
	CorrectAnswers datatypes.JSONSlice[string] `json:"correctAnswers,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Question) TableName() string {
	return "questions"
}

// IsCorrectAnswer compares answer against every stored correct answer.
// The comparison is case-sensitive and does not trim.
func (q *Question) IsCorrectAnswer(answer string) bool {
	for _, correct := range q.CorrectAnswers {
		if answer == correct {
			return true
		}
	}
	return false
}
