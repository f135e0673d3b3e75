package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultPurgeSchedule runs the retention sweep once a day.
const DefaultPurgeSchedule = "@daily"

// Purger deletes records older than a cutoff.
type Purger interface {
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// Retention periodically purges records older than a number of days.
type Retention struct {
	purger   Purger
	days     int
	schedule string
	logger   zerolog.Logger
	onPurge  func(n int64)
	now      func() time.Time
	cron     *cron.Cron
}

// NewRetention creates a sweep keeping days of history on schedule (a cron
// expression or descriptor; empty means DefaultPurgeSchedule). days <= 0
// disables the sweep. onPurge, if set, receives every non-zero purge count.
func NewRetention(p Purger, days int, schedule string, logger zerolog.Logger, onPurge func(int64)) (*Retention, error) {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}

	r := &Retention{
		purger:   p,
		days:     days,
		schedule: schedule,
		logger:   logger.With().Str("component", "retention").Logger(),
		onPurge:  onPurge,
		now:      time.Now,
	}

	if !r.Enabled() {
		return r, nil
	}

	r.cron = cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))
	if _, err := r.cron.AddFunc(schedule, r.sweep); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}

	return r, nil
}

// Enabled reports whether the sweep will run.
func (r *Retention) Enabled() bool {
	return r.days > 0
}

// Start starts the schedule. It is a no-op when disabled.
func (r *Retention) Start() {
	if r.cron == nil {
		return
	}
	r.logger.Info().Int("days", r.days).Str("schedule", r.schedule).Msg("Retention sweep scheduled")
	r.cron.Start()
}

// Stop stops the schedule and waits for a running sweep.
func (r *Retention) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// RunOnce purges everything older than the retention window now.
func (r *Retention) RunOnce(ctx context.Context) (int64, error) {
	if !r.Enabled() {
		return 0, nil
	}

	cutoff := r.now().Add(-time.Duration(r.days) * 24 * time.Hour)
	n, err := r.purger.Purge(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		r.logger.Info().Int64("purged", n).Time("cutoff", cutoff).Msg("Old records purged")
		if r.onPurge != nil {
			r.onPurge(n)
		}
	}
	return n, nil
}

func (r *Retention) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error().Err(err).Msg("Retention sweep failed")
	}
}
