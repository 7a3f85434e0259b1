// Package client is a typed client for the test taker's REST routes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
)

const DefaultTimeout = 15 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       *AuthSession
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, auth *AuthSession, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		auth:       auth,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartOutcome is the result of a start call. AlreadyStarted is set when the
// server reported an existing attempt, either as 200 or as a 409 saying so.
type StartOutcome struct {
	Message        string
	AlreadyStarted bool
	Result         *models.StartResult
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
}

// GetTest loads a test by id from the assignment route, falling back to the
// flat test route when the first answers 404.
func (c *Client) GetTest(ctx context.Context, testID uint) (*TestView, error) {
	var lastErr error
	for _, path := range []string{
		fmt.Sprintf("/user/test/%d", testID),
		fmt.Sprintf("/user/tests/%d", testID),
	} {
		status, body, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			lastErr = &NotFoundError{Resource: "test", ID: testID}
			continue
		}
		if err := statusError(status, body); err != nil {
			return nil, err
		}
		view, err := normalizeTest(unwrapData(body))
		if err != nil {
			return nil, err
		}
		if view.ID == 0 {
			view.ID = testID
		}
		return view, nil
	}
	return nil, lastErr
}

// StartTest signals the start of an attempt. An already started attempt is
// reported through StartOutcome, not as an error.
func (c *Client) StartTest(ctx context.Context, testID uint) (*StartOutcome, error) {
	status, body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/user/test/%d/start", testID), nil)
	if err != nil {
		return nil, err
	}

	// Other conflicts, such as an already submitted test, stay errors
	if status == http.StatusConflict && isAlreadyStarted(body) {
		return &StartOutcome{Message: messageOf(body), AlreadyStarted: true}, nil
	}
	if err := statusError(status, body); err != nil {
		return nil, err
	}

	out := &StartOutcome{Message: messageOf(body)}
	var result models.StartResult
	if data := unwrapData(body); len(data) > 0 && json.Unmarshal(data, &result) == nil && result.AttemptID != 0 {
		out.Result = &result
		out.AlreadyStarted = result.AlreadyStarted
	}
	return out, nil
}

// SubmitAnswers sends the answer batch. Every failure is a *SubmissionError.
func (c *Client) SubmitAnswers(ctx context.Context, testID uint, req *models.SubmitRequest) (*models.SubmitResult, error) {
	status, body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/user/test/%d/submit", testID), req)
	if err != nil {
		return nil, &SubmissionError{TestID: testID, Err: err}
	}
	if err := statusError(status, body); err != nil {
		return nil, &SubmissionError{TestID: testID, Err: err}
	}

	var result models.SubmitResult
	if data := unwrapData(body); len(data) > 0 {
		if err := json.Unmarshal(data, &result); err != nil {
			c.logger.Warn("Unreadable submit response", "test_id", testID, "error", err)
		}
	}
	return &result, nil
}

func (c *Client) CompleteTest(ctx context.Context, testID uint) error {
	status, body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/user/test/%d/complete", testID), nil)
	if err != nil {
		return err
	}
	return statusError(status, body)
}

func (c *Client) GetSubmitted(ctx context.Context, testID uint) (*models.TestReviewData, error) {
	var data models.TestReviewData
	if err := c.getJSON(ctx, fmt.Sprintf("/user/test/%d/submitted", testID), "submitted test", testID, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) GetDetailedReview(ctx context.Context, attemptID uint) (*models.DetailedReview, error) {
	var review models.DetailedReview
	if err := c.getJSON(ctx, fmt.Sprintf("/user/results/%d/detailed-review", attemptID), "attempt", attemptID, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (c *Client) ListAssignments(ctx context.Context) ([]models.AssignmentView, error) {
	var assignments []models.AssignmentView
	if err := c.getJSON(ctx, "/user/tests", "assignments", 0, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (c *Client) getJSON(ctx context.Context, path, resource string, id uint, out any) error {
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return &NotFoundError{Resource: resource, ID: id}
	}
	if err := statusError(status, body); err != nil {
		return err
	}
	if err := json.Unmarshal(unwrapData(body), out); err != nil {
		return fmt.Errorf("decoding %s: %w", resource, err)
	}
	return nil
}

// do performs one authenticated request and returns the raw status and body.
// A 401 invalidates the AuthSession and is returned as ErrUnauthorized.
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	token, ok := c.auth.Token()
	if !ok {
		return 0, nil, ErrUnauthorized
	}

	var reqBody io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	op := method + " " + path
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &NetworkError{Op: op, Err: err}
	}

	c.logger.Debug("API call", "op", op, "status", resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized {
		c.auth.Invalidate()
		return resp.StatusCode, body, ErrUnauthorized
	}
	return resp.StatusCode, body, nil
}

func statusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	return &APIError{StatusCode: status, Message: messageOf(body)}
}

// unwrapData returns the data member of an enveloped body, or the body itself
func unwrapData(body []byte) json.RawMessage {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		return env.Data
	}
	return body
}

func isAlreadyStarted(body []byte) bool {
	if strings.Contains(strings.ToLower(messageOf(body)), "already started") {
		return true
	}
	var flag struct {
		AlreadyStarted bool `json:"alreadyStarted"`
	}
	return json.Unmarshal(unwrapData(body), &flag) == nil && flag.AlreadyStarted
}

func messageOf(body []byte) string {
	var e errorBody
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Message
}

// IsUnauthorized reports whether err ended the signed-in session
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
