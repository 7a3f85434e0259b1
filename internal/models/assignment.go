package models

import "time"

type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentInProgress AssignmentStatus = "in-progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentExpired    AssignmentStatus = "expired"
)

func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentCompleted || s == AssignmentExpired
}

// Assignment links a user to a test template. Reassignment creates a new
// row pointing back through ReassignedFrom; earlier rows are never rewritten.
type Assignment struct {
	ID             uint             `json:"id" gorm:"primaryKey"`
	UserID         string           `json:"userId" gorm:"not null;index;size:255"`
	TemplateID     uint             `json:"templateId" gorm:"not null;index"`
	AssignedBy     string           `json:"assignedBy" gorm:"not null;size:255"`
	AssignedAt     time.Time        `json:"assignedAt" gorm:"not null"`
	DueDate        *time.Time       `json:"dueDate,omitempty" gorm:"index"`
	Status         AssignmentStatus `json:"status" gorm:"not null;default:assigned;index;size:32"`
	ReassignedFrom *uint            `json:"reassignedFrom,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Template *TestTemplate `json:"testTemplate,omitempty" gorm:"foreignKey:TemplateID"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// IsOverdue reports whether the due date has passed while the assignment is still open
func (a *Assignment) IsOverdue(now time.Time) bool {
	if a.DueDate == nil || a.Status.IsTerminal() {
		return false
	}
	return now.After(*a.DueDate)
}
