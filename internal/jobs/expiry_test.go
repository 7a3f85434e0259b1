package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/aptitude-service/internal/services"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (e *countingExpirer) ExpireOverdue(ctx context.Context, now time.Time) (*services.ExpiryReport, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return &services.ExpiryReport{Checked: 2, Expired: 2}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExpiryJob_RunOnce(t *testing.T) {
	exp := &countingExpirer{}
	job := NewExpiryJob(exp, discardLogger())

	job.RunOnce(context.Background())
	assert.Equal(t, int32(1), exp.calls.Load())

	exp.err = errors.New("db down")
	job.RunOnce(context.Background())
	assert.Equal(t, int32(2), exp.calls.Load())
}

func TestExpiryJob_Schedule(t *testing.T) {
	exp := &countingExpirer{}
	job := NewExpiryJob(exp, discardLogger())

	assert.Error(t, job.Start("not a schedule"))

	require.NoError(t, job.Start("@every 1s"))
	defer job.Stop(context.Background())

	assert.Eventually(t, func() bool { return exp.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
