package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/SAP-F-2025/aptitude-service/internal/services"
)

// Expirer is the slice of AssignmentService the sweep needs
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (*services.ExpiryReport, error)
}

// ExpiryJob periodically moves overdue assignments to expired
type ExpiryJob struct {
	expirer Expirer
	logger  *slog.Logger
	timeout time.Duration
	cron    *cron.Cron
}

func NewExpiryJob(expirer Expirer, logger *slog.Logger) *ExpiryJob {
	cl := cronLogger{logger: logger}
	return &ExpiryJob{
		expirer: expirer,
		logger:  logger,
		timeout: time.Minute,
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
	}
}

// Start schedules the sweep; schedule uses cron syntax or descriptors such as "@every 1m"
func (j *ExpiryJob) Start(schedule string) error {
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("invalid expiry schedule %q: %w", schedule, err)
	}
	j.cron.Start()
	j.logger.Info("Assignment expiry job started", "schedule", schedule)
	return nil
}

// Stop waits for a running sweep to finish or ctx to end
func (j *ExpiryJob) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce performs a single sweep
func (j *ExpiryJob) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	report, err := j.expirer.ExpireOverdue(ctx, time.Now())
	if err != nil {
		j.logger.Error("Assignment expiry sweep failed", "error", err)
		return
	}
	j.logger.Debug("Assignment expiry sweep finished", "checked", report.Checked, "expired", report.Expired)
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
