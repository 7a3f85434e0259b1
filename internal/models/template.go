package models

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

type TestTemplate struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"not null;size:200"`
	Description string `json:"description" gorm:"type:text"`
	Category    string `json:"category" gorm:"size:100;index"`
	Department  string `json:"department" gorm:"size:100;index"`
	TimeLimit   int    `json:"timeLimit" gorm:"not null"` // minutes
	CreatedBy   string `json:"createdBy" gorm:"not null;index;size:255"`

	Questions []Question `json:"questions" gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (TestTemplate) TableName() string {
	return "test_templates"
}

// TotalPoints sums the point values of every question
func (t *TestTemplate) TotalPoints() int {
	total := 0
	for _, q := range t.Questions {
		total += q.Points
	}
	return total
}

// SortQuestions orders questions by their Order field, ties broken by id
func (t *TestTemplate) SortQuestions() {
	sort.SliceStable(t.Questions, func(i, j int) bool {
		if t.Questions[i].Order == t.Questions[j].Order {
			return t.Questions[i].ID < t.Questions[j].ID
		}
		return t.Questions[i].Order < t.Questions[j].Order
	})
}

func (t *TestTemplate) QuestionByID(id uint) (*Question, bool) {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return &t.Questions[i], true
		}
	}
	return nil, false
}
