package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/go-co-op/gocron/v2"
)

type TaskFn func(ctx context.Context) error

// Scheduler runs jobs under a context derived from the one passed to New.
// Stop cancels it, so in-flight jobs see ctx.Done before shutdown waits on them.
type Scheduler struct {
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(ctx context.Context) *Scheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		panic(err.Error())
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{scheduler: scheduler, ctx: ctx, cancel: cancel}
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		slog.Error("scheduler shutdown failed", slog.String("err", err.Error()))
	}
}

// Jobs run in singleton mode: a run that is still in progress makes the next
// one reschedule instead of overlapping.
func (s *Scheduler) createJob(jobDefinition gocron.JobDefinition, name string, fn TaskFn, startImmediately bool) {
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}

	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err := s.scheduler.NewJob(
		jobDefinition,
		gocron.NewTask(taskWithRecover(s.ctx, fn, name)),
		opts...,
	)

	if err != nil {
		slog.Error("Scheduler creating job error", slog.String("jobName", name), slog.String("err", err.Error()))
		panic(fmt.Sprintf("create job %s: %s", name, err.Error()))
	}
}

func (s *Scheduler) NewIntervalJob(name string, fn TaskFn, interval time.Duration, startImmediately bool) {
	s.createJob(gocron.DurationJob(interval), name, fn, startImmediately)
}

// NewCrontabJob accepts crontab expressions with an optional seconds field.
func (s *Scheduler) NewCrontabJob(name string, fn TaskFn, crontab string, startImmediately bool) {
	s.createJob(gocron.CronJob(crontab, true), name, fn, startImmediately)
}

func taskWithRecover(parent context.Context, fn TaskFn, jobName string) func() {
	return func() {
		ctx := utils.WithRequestID(parent, "")
		rqID := utils.GetRequestIDFromCtx(ctx)
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				slog.Error(
					"Panic recovered in scheduler job",
					slog.String("rqID", rqID),
					slog.String("jobName", jobName),
					slog.Any("panic", r),
					slog.String("stacktrace", string(debug.Stack())),
				)
			}
		}()

		slog.Info("job start", slog.String("rqID", rqID), slog.String("jobName", jobName))

		err := fn(ctx)
		if err != nil {
			slog.Error("job failed", slog.String("rqID", rqID), slog.String("jobName", jobName), slog.String("err", err.Error()))
			return
		}

		slog.Info(
			"job completed",
			slog.String("rqID", rqID),
			slog.String("jobName", jobName),
			slog.String("duration", fmt.Sprintf("%.2fs", time.Since(start).Seconds())),
		)
	}
}
