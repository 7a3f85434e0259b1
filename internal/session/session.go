// Package session drives one test taker's attempt from load to completion.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/aptitude-service/internal/client"
	"github.com/SAP-F-2025/aptitude-service/internal/grading"
	"github.com/SAP-F-2025/aptitude-service/internal/models"
)

type State int

const (
	NotStarted State = iota
	Started
	Submitting
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Started:
		return "started"
	case Submitting:
		return "submitting"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const (
	TriggerManual = "manual"
	TriggerAuto   = "auto"
)

var (
	ErrNotLoaded        = errors.New("test not loaded")
	ErrNotStarted       = errors.New("test not started")
	ErrSessionFinished  = errors.New("session already completed")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrAlreadyLoaded    = errors.New("test already loaded")
)

// API is the part of the backend a session talks to
type API interface {
	GetTest(ctx context.Context, testID uint) (*client.TestView, error)
	StartTest(ctx context.Context, testID uint) (*client.StartOutcome, error)
	SubmitAnswers(ctx context.Context, testID uint, req *models.SubmitRequest) (*models.SubmitResult, error)
	CompleteTest(ctx context.Context, testID uint) error
	GetSubmitted(ctx context.Context, testID uint) (*models.TestReviewData, error)
}

// TimerState is what one tick leaves behind
type TimerState struct {
	Remaining     int
	Expired       bool
	AutoSubmitted bool
	State         State
}

type Config struct {
	Logger       *slog.Logger
	TickInterval time.Duration
	// OnAutoSubmit runs after the timer-driven submission with its outcome
	OnAutoSubmit func(*models.SubmitResult, error)
}

// Session is a single attempt. It is safe for use from the timer goroutine
// and the caller at the same time.
type Session struct {
	api    API
	testID uint
	logger *slog.Logger
	config Config

	mu        sync.Mutex
	state     State
	view      *client.TestView
	draft     *Draft
	countdown Countdown
	inFlight  bool
	result    *models.SubmitResult

	stop      chan struct{}
	closeOnce sync.Once
}

func New(api API, testID uint, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Session{
		api:    api,
		testID: testID,
		logger: cfg.Logger.With("test_id", testID),
		config: cfg,
		state:  NotStarted,
		draft:  NewDraft(),
		stop:   make(chan struct{}),
	}
}

// Load fetches and normalizes the test. Errors are returned unchanged so the
// caller can offer a retry.
func (s *Session) Load(ctx context.Context) (*client.TestView, error) {
	s.mu.Lock()
	if s.state != NotStarted {
		s.mu.Unlock()
		return nil, ErrAlreadyLoaded
	}
	s.mu.Unlock()

	view, err := s.api.GetTest(ctx, s.testID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.view = view
	s.countdown = NewCountdown(view.TimeLimitMinutes)
	s.mu.Unlock()

	s.logger.Info("Test loaded", "title", view.Title, "questions", len(view.Questions), "shape", view.Shape)
	return view, nil
}

// Start tells the backend the attempt has begun. An attempt that was already
// started counts as success.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.view == nil:
		s.mu.Unlock()
		return ErrNotLoaded
	case s.state != NotStarted:
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	outcome, err := s.api.StartTest(ctx, s.testID)
	if err != nil {
		return err
	}
	if outcome.AlreadyStarted {
		s.logger.Info("Attempt was already started", "message", outcome.Message)
	}

	s.mu.Lock()
	if s.state == NotStarted {
		s.state = Started
	}
	s.mu.Unlock()
	return nil
}

// RecordAnswer overwrites the draft answer for questionID
func (s *Session) RecordAnswer(questionID uint, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Completed {
		return ErrSessionFinished
	}
	s.draft.Record(questionID, value)
	return nil
}

// Submit sends the draft as a manual submission. It may be retried after a
// failed answer batch.
func (s *Session) Submit(ctx context.Context) (*models.SubmitResult, error) {
	return s.submit(ctx, TriggerManual)
}

func (s *Session) submit(ctx context.Context, trigger string) (*models.SubmitResult, error) {
	s.mu.Lock()
	switch {
	case s.state == Completed:
		s.mu.Unlock()
		return nil, ErrSessionFinished
	case s.state == NotStarted:
		s.mu.Unlock()
		return nil, ErrNotStarted
	case s.inFlight:
		s.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	s.state = Submitting
	s.inFlight = true
	elapsed := ComputeElapsed(s.view.TimeLimitMinutes, s.countdown.Remaining)
	req := &models.SubmitRequest{
		Responses: s.draft.Responses(),
		TimeSpent: &elapsed,
		Trigger:   trigger,
	}
	s.mu.Unlock()

	s.logger.Info("Submitting answers", "trigger", trigger, "responses", len(req.Responses), "time_spent", elapsed)

	result, err := s.api.SubmitAnswers(ctx, s.testID, req)
	if err != nil {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
		s.logger.Error("Answer batch failed", "trigger", trigger, "error", err)
		return nil, err
	}

	if err := s.api.CompleteTest(ctx, s.testID); err != nil {
		s.logger.Warn("Completing attempt failed", "error", err)
	}

	s.mu.Lock()
	s.state = Completed
	s.inFlight = false
	s.result = result
	s.mu.Unlock()

	s.Close()
	return result, nil
}

// Tick advances the countdown by one second and fires the automatic
// submission the first time the clock reaches zero.
func (s *Session) Tick(ctx context.Context) TimerState {
	s.mu.Lock()
	if s.state != Started && s.state != Submitting {
		st := s.timerStateLocked(false)
		s.mu.Unlock()
		return st
	}
	next, fire := s.countdown.Tick()
	s.countdown = next
	s.mu.Unlock()

	if fire {
		// The single auto-submit is spent even when a manual submit holds the slot
		result, err := s.submit(ctx, TriggerAuto)
		switch {
		case errors.Is(err, ErrSubmitInProgress):
			s.logger.Info("Auto-submit skipped, manual submission in flight")
		case err != nil:
			s.logger.Error("Auto-submit failed", "error", err)
		}
		if s.config.OnAutoSubmit != nil {
			s.config.OnAutoSubmit(result, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timerStateLocked(fire)
}

func (s *Session) timerStateLocked(autoSubmitted bool) TimerState {
	return TimerState{
		Remaining:     s.countdown.Remaining,
		Expired:       s.countdown.Expired(),
		AutoSubmitted: autoSubmitted,
		State:         s.state,
	}
}

// RunTimer calls Tick once per interval until the clock expires, the session
// is closed or ctx is cancelled.
func (s *Session) RunTimer(ctx context.Context) {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			st := s.Tick(ctx)
			if st.Expired || st.State == Completed {
				return
			}
		}
	}
}

// Close stops the timer. The unsent draft is discarded with the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
}

// Review fetches the submitted attempt and builds the grading view locally
func (s *Session) Review(ctx context.Context) ([]models.QuestionReview, *models.ScoreSummary, error) {
	data, err := s.api.GetSubmitted(ctx, s.testID)
	if err != nil {
		return nil, nil, err
	}
	if data.TestTemplate == nil {
		return nil, nil, fmt.Errorf("submitted test %d has no template", s.testID)
	}

	reviews := grading.BuildReview(data.Attempt, data.TestTemplate)
	if data.Summary != nil {
		return reviews, data.Summary, nil
	}
	if data.Attempt == nil || data.Attempt.Score == nil {
		return reviews, nil, nil
	}
	summary := grading.Summarize(map[uint]float64{0: *data.Attempt.Score}, data.TestTemplate.TotalPoints())
	return reviews, &summary, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdown.Remaining
}

func (s *Session) View() *client.TestView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Session) Result() *models.SubmitResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Answered returns the number of non-empty draft answers
func (s *Session) Answered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Len()
}
