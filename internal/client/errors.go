package client

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned after a 401 has invalidated the AuthSession,
// or when a request is attempted without a signed-in session.
var ErrUnauthorized = errors.New("unauthorized: sign in again")

// NetworkError is a transport failure or timeout; the request may be retried.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError reports a test id that resolved on neither test route
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// SubmissionError is a failed answer-batch call
type SubmissionError struct {
	TestID uint
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submitting answers for test %d: %v", e.TestID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// APIError is any other non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether err is worth a manual retry
func IsRetryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 500
}
