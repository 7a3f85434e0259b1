package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/aptitude-service/internal/validator"
)

// Template errors
var (
	ErrTemplateNotFound    = errors.New("test template not found")
	ErrTemplateHasAttempts = errors.New("test template has attempts")
	ErrTemplateEmpty       = errors.New("test template has no questions")
)

// Assignment errors
var (
	ErrAssignmentNotFound  = errors.New("assignment not found")
	ErrAssignmentExpired   = errors.New("assignment has expired")
	ErrAssignmentCompleted = errors.New("assignment already completed")
)

// Attempt errors
var (
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptNotStarted       = errors.New("attempt not started")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrAttemptNotSubmitted     = errors.New("attempt not submitted")
	ErrAttemptTimeExpired      = errors.New("attempt time has expired")
	ErrInvalidTransition       = errors.New("invalid attempt status transition")
	ErrScoreExceedsTotal       = errors.New("score exceeds total points")
)

// ValidationErrors is the validator's error list, re-exported for handlers
type ValidationErrors = validator.ValidationErrors

// PermissionError reports that a user may not act on a resource
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}
