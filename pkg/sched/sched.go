// Package sched runs cron-scheduled maintenance jobs: the nightly
// context reset and the periodic status log. Expressions use standard
// five-field cron syntax, validated at registration.
package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/moekyun/mika/pkg/logger"
)

type job struct {
	name string
	expr string
	run  func()
}

type Scheduler struct {
	gron     *gronx.Gronx
	jobs     []job
	interval time.Duration
	now      func() time.Time
}

type Option func(*Scheduler)

// WithInterval overrides the tick interval, for tests.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		gron:     gronx.New(),
		interval: time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a job. The cron expression is validated here so a bad
// config entry fails at startup, not silently at runtime.
func (s *Scheduler) Add(name, expr string, run func()) error {
	if !s.gron.IsValid(expr) {
		return fmt.Errorf("invalid cron expression for job %s: %q", name, expr)
	}
	s.jobs = append(s.jobs, job{name: name, expr: expr, run: run})
	logger.InfoCF("sched", "Job registered", map[string]any{"job": name, "cron": expr})
	return nil
}

// Len reports the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.jobs)
}

// Start blocks, firing due jobs once per tick, until ctx is cancelled.
// A panicking job must not take the scheduler down with it.
func (s *Scheduler) Start(ctx context.Context) {
	if len(s.jobs) == 0 {
		logger.DebugC("sched", "No jobs registered, scheduler idle")
		<-ctx.Done()
		return
	}

	logger.InfoCF("sched", "Scheduler started", map[string]any{"jobs": len(s.jobs)})
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoC("sched", "Scheduler stopped")
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	now := s.now()
	for _, j := range s.jobs {
		due, err := s.gron.IsDue(j.expr, now)
		if err != nil {
			logger.WarnCF("sched", "Cron evaluation failed", map[string]any{
				"job":   j.name,
				"error": err.Error(),
			})
			continue
		}
		if !due {
			continue
		}

		logger.InfoCF("sched", "Running job", map[string]any{"job": j.name})
		s.runJob(j)
	}
}

func (s *Scheduler) runJob(j job) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("sched", "Job panicked", map[string]any{
				"job":   j.name,
				"panic": fmt.Sprintf("%v", r),
			})
		}
	}()
	j.run()
}
