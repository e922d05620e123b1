package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/stretchr/testify/assert"
)

func TestTaskWithRecover_InjectsRequestID(t *testing.T) {
	var rqID string
	task := taskWithRecover(context.Background(), func(ctx context.Context) error {
		rqID = utils.GetRequestIDFromCtx(ctx)
		return nil
	}, "test")

	task()

	assert.NotEmpty(t, rqID)
}

func TestTaskWithRecover_Panic(t *testing.T) {
	task := taskWithRecover(context.Background(), func(ctx context.Context) error {
		panic("boom")
	}, "panicking")

	assert.NotPanics(t, task)
}

func TestTaskWithRecover_Error(t *testing.T) {
	task := taskWithRecover(context.Background(), func(ctx context.Context) error {
		return errors.New("failed")
	}, "failing")

	assert.NotPanics(t, task)
}

func TestIntervalJob_StartImmediately(t *testing.T) {
	var runs atomic.Int32

	s := New(context.Background())
	s.NewIntervalJob("counter", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, time.Hour, true)
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestCrontabJob_InvalidExpression(t *testing.T) {
	s := New(context.Background())

	assert.Panics(t, func() {
		s.NewCrontabJob("broken", func(ctx context.Context) error { return nil }, "not a crontab", false)
	})
}

func TestStop_CancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool

	s := New(context.Background())
	s.NewIntervalJob("long scan", func(ctx context.Context) error {
		close(started)
		select {
		case <-ctx.Done():
			cancelled.Store(true)
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	}, time.Hour, true)
	s.Start()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not start")
	}

	s.Stop()
	assert.True(t, cancelled.Load())
}

func TestJobContext_FollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	var got error
	task := taskWithRecover(parent, func(ctx context.Context) error {
		got = ctx.Err()
		return nil
	}, "cancelled parent")

	task()

	assert.ErrorIs(t, got, context.Canceled)
}
