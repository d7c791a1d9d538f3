// Package scheduler runs the periodic waitlist priority recompute on an RRULE schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"
)

// Recomputer refreshes waitlist priority scores and reports how many were raised.
type Recomputer interface {
	RecomputePriorities(ctx context.Context) (int, error)
}

// Scheduler fires a Recomputer at every occurrence of an RRULE.
type Scheduler struct {
	rule *rrule.RRule
	task Recomputer
	log  *zap.Logger

	Now   func() time.Time
	After func(d time.Duration) <-chan time.Time
}

// New parses expr (for example "FREQ=DAILY;BYHOUR=3;BYMINUTE=0;BYSECOND=0").
// Occurrences are anchored at midnight UTC of the current day.
func New(expr string, task Recomputer, log *zap.Logger) (*Scheduler, error) {
	rule, err := rrule.StrToRRule(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recompute rrule: %w", err)
	}
	s := &Scheduler{
		rule:  rule,
		task:  task,
		log:   log,
		Now:   time.Now,
		After: time.After,
	}
	rule.DTStart(s.Now().UTC().Truncate(24 * time.Hour))
	return s, nil
}

// Next returns the first occurrence strictly after t, or the zero time when the rule
// has no more occurrences.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.rule.After(t, false)
}

// Run blocks until ctx is done or the rule is exhausted, recomputing at each occurrence.
// A failed run is logged and the schedule continues.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		now := s.Now()
		next := s.Next(now)
		if next.IsZero() {
			s.log.Info("recompute schedule exhausted")
			return
		}
		s.log.Debug("next priority recompute scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			return
		case <-s.After(next.Sub(now)):
		}

		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("priority recompute failed", zap.Error(err))
		}
	}
}

// RunOnce recomputes immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	raised, err := s.task.RecomputePriorities(ctx)
	if err != nil {
		return 0, err
	}
	s.log.Info("priority recompute finished",
		zap.Int("raised", raised),
		zap.Duration("elapsed", time.Since(start)))
	return raised, nil
}
