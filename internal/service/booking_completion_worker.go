package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/eduhire-api/pkg/jobs"
)

const jobTypeCompleteBookings = "bookings.complete_elapsed"

type bookingCompleter interface {
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)
}

// BookingCompletionConfig tunes the completion sweep.
type BookingCompletionConfig struct {
	Schedule   string
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// BookingCompletionWorker completes ended ACCEPTED bookings on a cron
// schedule. Ticks are funnelled through a single-slot queue, so a tick that
// fires while a sweep is still waiting is dropped.
type BookingCompletionWorker struct {
	completer bookingCompleter
	queue     *jobs.Queue
	cron      *cron.Cron
	schedule  string
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookingCompletionWorker constructs the worker.
func NewBookingCompletionWorker(completer bookingCompleter, cfg BookingCompletionConfig) *BookingCompletionWorker {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1m"
	}
	w := &BookingCompletionWorker{
		completer: completer,
		cron:      cron.New(),
		schedule:  cfg.Schedule,
		logger:    logger.With(zap.String("worker", "booking_completion")),
		now:       func() time.Time { return time.Now().UTC() },
	}
	w.queue = jobs.NewQueue("booking-completion", w.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 1,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return w
}

// Start registers the schedule, starts the queue and runs one sweep
// immediately.
func (w *BookingCompletionWorker) Start(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.schedule, w.Trigger); err != nil {
		return fmt.Errorf("schedule booking completion %q: %w", w.schedule, err)
	}
	w.queue.Start(ctx)
	w.cron.Start()
	w.Trigger()
	w.logger.Info("booking completion scheduled", zap.String("schedule", w.schedule))
	return nil
}

// Trigger requests a sweep.
func (w *BookingCompletionWorker) Trigger() {
	if err := w.queue.Enqueue(jobs.Job{Type: jobTypeCompleteBookings}); err != nil {
		w.logger.Debug("completion sweep skipped", zap.Error(err))
	}
}

// Stop halts the schedule, waits for a running tick and drains the queue.
func (w *BookingCompletionWorker) Stop() {
	<-w.cron.Stop().Done()
	w.queue.Stop()
}

func (w *BookingCompletionWorker) handle(ctx context.Context, job jobs.Job) error {
	completed, err := w.completer.CompleteElapsed(ctx, w.now())
	if err != nil {
		return err
	}
	w.logger.Debug("completion sweep finished", zap.String("job_id", job.ID), zap.Int64("completed", completed))
	return nil
}
