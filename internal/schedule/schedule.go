// Package schedule drives the engine's daily metrics reset from a cron
// expression. The engine itself has no calendar awareness.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/metrics"
)

// Resetter is implemented by engine.Engine.
type Resetter interface {
	ResetDaily() metrics.Snapshot
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Parse parses a standard 5-field cron expression or a descriptor such as
// "@midnight".
func Parse(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return sched, nil
}

// DayStart returns midnight of t's calendar day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DailyReset calls ResetDaily on its target at every scheduled time.
type DailyReset struct {
	expr   string
	sched  cron.Schedule
	loc    *time.Location
	target Resetter
	logger *slog.Logger
	now    func() time.Time
	after  func(time.Duration) <-chan time.Time
}

// Option configures a DailyReset.
type Option func(*DailyReset)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *DailyReset) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock replaces the wall clock and timer, for tests.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(r *DailyReset) {
		if now != nil {
			r.now = now
		}
		if after != nil {
			r.after = after
		}
	}
}

// NewDailyReset parses expr and binds it to target. Times are evaluated in
// loc (time.Local when nil).
func NewDailyReset(expr string, loc *time.Location, target Resetter, opts ...Option) (*DailyReset, error) {
	sched, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	r := &DailyReset{
		expr:   expr,
		sched:  sched,
		loc:    loc,
		target: target,
		logger: slog.Default(),
		now:    time.Now,
		after:  time.After,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Next returns the first reset strictly after from.
func (r *DailyReset) Next(from time.Time) time.Time {
	return r.sched.Next(from.In(r.loc))
}

// Run blocks, resetting at every scheduled time, until ctx is done.
func (r *DailyReset) Run(ctx context.Context) error {
	r.logger.Info("daily reset scheduled", "cron", r.expr, "timezone", r.loc.String())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := r.now().In(r.loc)
		next := r.sched.Next(now)
		wait := next.Sub(now)
		r.logger.Debug("next daily reset", "at", next.Format(time.RFC3339), "in", wait.Round(time.Second))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(wait):
		}

		before := r.target.ResetDaily()
		r.logger.Info("daily reset fired", "decisions_today", before.DecisionsToday)
	}
}
