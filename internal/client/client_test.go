package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
)

const testToken = "token-1"

func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, *AuthSession) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	auth := NewAuthSession()
	auth.Login(testToken, "student-1")
	return New(server.URL, auth), auth
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetTest_NestedShape(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/test/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{
				"id":     3,
				"status": "assigned",
				"testTemplate": map[string]any{
					"id":          7,
					"name":        "Numerical",
					"description": "Numbers",
					"timeLimit":   20,
					"questions": []map[string]any{
						{"id": 2, "type": "sentence", "text": "Why?", "points": 5, "order": 2},
						{"id": 1, "type": "multiple-choice", "text": "2+2", "options": []string{"3", "4"}, "points": 5, "order": 1},
					},
				},
			},
		})
	})
	c, _ := newTestClient(t, mux)

	view, err := c.GetTest(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, ShapeNested, view.Shape)
	assert.Equal(t, uint(3), view.AssignmentID)
	assert.Equal(t, uint(7), view.ID)
	assert.Equal(t, "Numerical", view.Title)
	assert.Equal(t, 20, view.TimeLimitMinutes)
	require.Len(t, view.Questions, 2)
	assert.Equal(t, uint(1), view.Questions[0].ID)
	assert.Equal(t, []string{"3", "4"}, view.Questions[0].Options)
	assert.Equal(t, 10, view.TotalPoints())
}

func TestGetTest_FallsBackToFlatRoute(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/test/9", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Assignment not found"})
	})
	mux.HandleFunc("GET /user/tests/9", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":        9,
			"title":     "Logic",
			"duration":  15,
			"questions": []map[string]any{{"id": 4, "type": "boolean", "text": "True?", "points": 2}},
		})
	})
	c, _ := newTestClient(t, mux)

	view, err := c.GetTest(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, ShapeFlat, view.Shape)
	assert.Equal(t, "Logic", view.Title)
	assert.Equal(t, 15, view.TimeLimitMinutes)
	require.Len(t, view.Questions, 1)
}

func TestGetTest_NotFound(t *testing.T) {
	c, _ := newTestClient(t, http.NewServeMux())

	_, err := c.GetTest(context.Background(), 5)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, uint(5), notFound.ID)
}

func TestGetTest_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	auth := NewAuthSession()
	auth.Login(testToken, "student-1")
	c := New(url, auth)

	_, err := c.GetTest(context.Background(), 1)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, IsRetryable(err))
}

func TestStartTest(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           map[string]any
		alreadyStarted bool
		wantErr        bool
	}{
		{
			name:   "created",
			status: http.StatusCreated,
			body:   map[string]any{"message": "Test started", "data": map[string]any{"attemptId": 1}},
		},
		{
			name:           "already started as 200",
			status:         http.StatusOK,
			body:           map[string]any{"message": "Test already started", "data": map[string]any{"attemptId": 1, "alreadyStarted": true}},
			alreadyStarted: true,
		},
		{
			name:           "already started as 409",
			status:         http.StatusConflict,
			body:           map[string]any{"message": "Test already started"},
			alreadyStarted: true,
		},
		{
			name:    "already submitted as 409",
			status:  http.StatusConflict,
			body:    map[string]any{"message": "Test already submitted"},
			wantErr: true,
		},
		{
			name:    "already completed as 409",
			status:  http.StatusConflict,
			body:    map[string]any{"message": "Test already completed"},
			wantErr: true,
		},
		{
			name:    "expired",
			status:  http.StatusGone,
			body:    map[string]any{"message": "Assignment has expired"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /user/test/1/start", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			c, _ := newTestClient(t, mux)

			out, err := c.StartTest(context.Background(), 1)
			if tt.wantErr {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.status, apiErr.StatusCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.alreadyStarted, out.AlreadyStarted)
		})
	}
}

func TestSubmitAnswers(t *testing.T) {
	var got models.SubmitRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/test/1/submit", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Answers submitted successfully",
			"data":    map[string]any{"attemptId": 11, "status": "submitted", "answered": 2},
		})
	})
	c, _ := newTestClient(t, mux)

	spent := 0.3
	result, err := c.SubmitAnswers(context.Background(), 1, &models.SubmitRequest{
		Responses: []models.ResponseItem{{QuestionID: 1, Answer: "4"}, {QuestionID: 2, Answer: "because"}},
		TimeSpent: &spent,
		Trigger:   "manual",
	})
	require.NoError(t, err)

	assert.Equal(t, uint(11), result.AttemptID)
	assert.Equal(t, 2, result.Answered)
	require.Len(t, got.Responses, 2)
	assert.Equal(t, uint(1), got.Responses[0].QuestionID)
	assert.Equal(t, "manual", got.Trigger)
}

func TestSubmitAnswers_FailureIsSubmissionError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/test/1/submit", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Internal server error"})
	})
	c, _ := newTestClient(t, mux)

	_, err := c.SubmitAnswers(context.Background(), 1, &models.SubmitRequest{})

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Internal server error", apiErr.Message)
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/tests", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	c, auth := newTestClient(t, mux)

	invalidated := 0
	auth.OnInvalidate(func() { invalidated++ })

	_, err := c.ListAssignments(context.Background())
	require.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, auth.Active())
	assert.Equal(t, 1, invalidated)

	// no token left, so the next call never reaches the server
	_, err = c.ListAssignments(context.Background())
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 1, invalidated)
}

func TestGetSubmittedAndDetailedReview(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/test/1/submitted", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{
				"attempt":      map[string]any{"id": 11, "status": "submitted", "answers": []map[string]any{{"questionId": 1, "answer": "4"}}},
				"testTemplate": map[string]any{"id": 1, "name": "Numerical"},
			},
		})
	})
	mux.HandleFunc("GET /user/results/11/detailed-review", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{
				"attemptId": 11,
				"breakdown": map[string]any{
					"questionResults": []map[string]any{{"questionId": 1, "status": "correct"}},
					"statistics":      map[string]any{"totalQuestions": 1, "correct": 1},
				},
			},
		})
	})
	c, _ := newTestClient(t, mux)

	submitted, err := c.GetSubmitted(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint(11), submitted.Attempt.ID)
	require.Len(t, submitted.Attempt.Answers, 1)
	assert.Equal(t, "Numerical", submitted.TestTemplate.Name)

	review, err := c.GetDetailedReview(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, 1, review.Breakdown.Statistics.Correct)
	assert.Equal(t, models.ReviewCorrect, review.Breakdown.QuestionResults[0].Status)

	_, err = c.GetDetailedReview(context.Background(), 12)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
