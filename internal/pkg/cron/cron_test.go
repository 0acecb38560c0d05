package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSchedulerRunsRegisteredJob(t *testing.T) {
	var runs atomic.Int32
	s := New()
	s.Register(Job{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Fn: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	waitFor(t, time.Second, func() bool { return runs.Load() >= 2 })
}

func TestSchedulerManualRun(t *testing.T) {
	var runs atomic.Int32
	s := New()
	s.Register(Job{
		Name:     "manual",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	require.NoError(t, s.Run(context.Background(), "manual"))
	waitFor(t, time.Second, func() bool { return runs.Load() == 1 })

	items := s.List()
	require.Len(t, items, 1)
	assert.Equal(t, StatusFulfill, items[0].Status)
}

func TestSchedulerRecordsJobFailure(t *testing.T) {
	s := New()
	s.Register(Job{
		Name:     "broken",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			return errors.New("boom")
		},
	})

	require.NoError(t, s.Run(context.Background(), "broken"))
	waitFor(t, time.Second, func() bool {
		items := s.List()
		return len(items) == 1 && items[0].Status == StatusReject
	})
	assert.Equal(t, "boom", s.List()[0].Message)
}

func TestSchedulerUnknownJob(t *testing.T) {
	s := New()
	assert.Error(t, s.Run(context.Background(), "nope"))
}
