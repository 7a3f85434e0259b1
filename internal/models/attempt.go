package models

import "time"

type AttemptStatus string

const (
	AttemptInProgress  AttemptStatus = "in-progress"
	AttemptSubmitted   AttemptStatus = "submitted"
	AttemptUnderReview AttemptStatus = "under-review"
	AttemptMarked      AttemptStatus = "marked"
	AttemptApproved    AttemptStatus = "approved"
	AttemptRejected    AttemptStatus = "rejected"
)

var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptInProgress:  {AttemptSubmitted},
	AttemptSubmitted:   {AttemptUnderReview},
	AttemptUnderReview: {AttemptMarked},
	AttemptMarked:      {AttemptApproved, AttemptRejected},
}

// CanTransitionTo reports whether next is the immediate forward step from s
func (s AttemptStatus) CanTransitionTo(next AttemptStatus) bool {
	for _, allowed := range attemptTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsSubmitted reports whether answers have been persisted for the attempt
func (s AttemptStatus) IsSubmitted() bool {
	return s != AttemptInProgress && s != ""
}

// IsMarked reports whether a reviewer has scored the attempt
func (s AttemptStatus) IsMarked() bool {
	return s == AttemptMarked || s == AttemptApproved || s == AttemptRejected
}

type Attempt struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	AssignmentID uint          `json:"assignmentId" gorm:"not null;uniqueIndex"`
	UserID       string        `json:"userId" gorm:"not null;index;size:255"`
	TemplateID   uint          `json:"templateId" gorm:"not null;index"`
	Status       AttemptStatus `json:"status" gorm:"not null;default:in-progress;index;size:32"`

	StartedAt   time.Time  `json:"startedAt" gorm:"not null"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	TimeSpent   float64    `json:"timeSpent"` // minutes, as reported by the client

	Score      *float64 `json:"score,omitempty"`
	Approved   *bool    `json:"approved,omitempty"`
	ReviewedBy *string  `json:"reviewedBy,omitempty" gorm:"size:255"`
	Feedback   *string  `json:"feedback,omitempty" gorm:"type:text"`

	Answers []AttemptAnswer `json:"answers" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) AnswerFor(questionID uint) (*AttemptAnswer, bool) {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			return &a.Answers[i], true
		}
	}
	return nil, false
}

// AwardedPoints collects the points awarded per question, skipping unscored answers
func (a *Attempt) AwardedPoints() map[uint]float64 {
	scores := make(map[uint]float64, len(a.Answers))
	for _, ans := range a.Answers {
		if ans.PointsAwarded != nil {
			scores[ans.QuestionID] = *ans.PointsAwarded
		}
	}
	return scores
}

// AttemptAnswer holds at most one answer per (attempt, question)
type AttemptAnswer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	AttemptID  uint   `json:"attemptId" gorm:"not null;uniqueIndex:idx_attempt_question"`
	QuestionID uint   `json:"questionId" gorm:"not null;uniqueIndex:idx_attempt_question"`
	Answer     string `json:"answer" gorm:"type:text"`

	PointsAwarded *float64 `json:"pointsAwarded,omitempty"`
	IsCorrect     *bool    `json:"isCorrect,omitempty"` // nil for manually reviewed questions

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
