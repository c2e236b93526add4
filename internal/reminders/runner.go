package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/starford/haven/internal/models"
)

// Sink receives reminders produced by a scheduled scan.
type Sink func(models.Reminder)

// Runner evaluates pending reminders on a cron schedule and hands each one
// to a sink.
type Runner struct {
	engine *Engine
	sink   Sink
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	started bool
}

// NewRunner creates a runner. spec is a standard five-field cron expression.
func NewRunner(engine *Engine, spec string, sink Sink, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		engine: engine,
		sink:   sink,
		logger: logger,
		now:    time.Now,
		cron:   cron.New(),
	}
	id, err := r.cron.AddFunc(spec, func() { r.RunOnce(context.Background()) })
	if err != nil {
		return nil, fmt.Errorf("reminders: add cron job %q: %w", spec, err)
	}
	r.entryID = id
	return r, nil
}

// RunOnce scans immediately and returns the number of reminders emitted.
func (r *Runner) RunOnce(ctx context.Context) int {
	due, err := r.engine.Pending(ctx, r.now())
	if err != nil {
		r.logger.Warn("reminders: scan failed", slog.String("error", err.Error()))
		return 0
	}
	for _, rem := range due {
		r.logger.Info("reminders: due",
			slog.String("id", rem.ArticleID),
			slog.String("title", rem.Title),
			slog.String("date", rem.Date.String()))
		if r.sink != nil {
			r.sink(rem)
		}
	}
	return len(due)
}

// Next returns the next scheduled scan time, or zero before Start.
func (r *Runner) Next() time.Time {
	return r.cron.Entry(r.entryID).Next
}

// Start begins the cron loop.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		r.cron.Start()
		r.started = true
	}
}

// Stop halts the cron loop and waits for a running scan to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		<-r.cron.Stop().Done()
		r.started = false
	}
}

// Run starts the runner and blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.Start()
	r.logger.Info("reminders: started", slog.Time("next", r.Next()))
	<-ctx.Done()
	r.Stop()
	r.logger.Info("reminders: stopped")
}
