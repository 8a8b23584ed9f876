// Package scheduler triggers job runs on a cron schedule and on demand, one
// run at a time.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/notifyhub/pricewatch/internal/job"
)

// Runner performs one job run.
type Runner interface {
	Run(ctx context.Context) job.Report
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCronExpr reports whether expr is a valid five-field cron expression
// or descriptor such as "@hourly".
func ValidateCronExpr(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Scheduler owns the cron loop. A tick or a manual trigger that arrives
// while a run is in flight is dropped, never queued.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	logger  *zap.Logger
	running atomic.Bool

	mu      sync.RWMutex
	base    context.Context
	stopped bool
	last    job.Report
	hasLast bool
	wg      sync.WaitGroup
}

func New(expr string, runner Runner, logger *zap.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger.Named("cron")}
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		logger: logger,
		base:   context.Background(),
	}
	if _, err := s.cron.AddFunc(expr, func() { s.runGuarded("cron") }); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return s, nil
}

// Run starts the cron loop and blocks until ctx is cancelled. When
// runOnStart is set one run is triggered immediately. On return any in-flight
// run has finished.
func (s *Scheduler) Run(ctx context.Context, runOnStart bool) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("entries", len(s.cron.Entries())))

	if runOnStart {
		s.Trigger()
	}

	<-ctx.Done()
	s.logger.Info("scheduler stopping")
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// Trigger starts a run in the background. It returns false when a run is
// already in flight or shutdown has begun.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		s.logger.Info("scheduler stopped, trigger ignored")
		return false
	}
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("run already in flight, trigger ignored")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.run("manual")
	}()
	return true
}

// Running reports whether a run is in flight.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Last returns the report of the most recent completed run.
func (s *Scheduler) Last() (job.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.hasLast
}

// Next returns when the cron entry fires next; zero before Run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) runGuarded(trigger string) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("run already in flight, tick skipped")
		return
	}
	defer s.running.Store(false)
	s.run(trigger)
}

func (s *Scheduler) run(trigger string) {
	s.mu.RLock()
	ctx := s.base
	s.mu.RUnlock()

	s.logger.Info("run triggered", zap.String("trigger", trigger))
	rep := s.runner.Run(ctx)

	s.mu.Lock()
	s.last, s.hasLast = rep, true
	s.mu.Unlock()
}
