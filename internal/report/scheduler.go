package report

import (
	"context"
	"log/slog"
	"time"

	"dayplan/internal/clock"
	"dayplan/internal/settings"
	"dayplan/internal/storage"
)

const (
	// timerHorizon bounds any single wait; host timers misbehave over
	// very long durations, and a shorter arm lets changed settings take
	// effect without restarting.
	timerHorizon = 24 * time.Hour

	resyncInterval = 15 * time.Minute
)

// Scheduler arms the weekly and monthly digest triggers, re-deriving
// them from settings on every resync and generating missed periods on
// startup.
type Scheduler struct {
	gen      *Generator
	settings *settings.Service
	clk      clock.Clock
	log      *slog.Logger

	nextWeekly  time.Time
	nextMonthly time.Time
}

func NewScheduler(gen *Generator, svc *settings.Service, clk clock.Clock, log *slog.Logger) *Scheduler {
	return &Scheduler{gen: gen, settings: svc, clk: clk, log: log}
}

// NextWeekly computes the first instant at or after now when the weekly
// digest should run: the configured weekday of the current week at the
// configured time, rolled a week forward if already past.
func NextWeekly(now time.Time, st settings.Settings) time.Time {
	day := isoWeekday(st.SummaryWeeklyDay)
	candidate := clock.At(startOfWeek(now).AddDate(0, 0, day-1), st.SummaryTime, 8)
	if !candidate.After(now) {
		candidate = clock.At(candidate.AddDate(0, 0, 7), st.SummaryTime, 8)
	}
	return candidate
}

// NextMonthly computes the first instant at or after now when the
// monthly digest should run.
func NextMonthly(now time.Time, st settings.Settings) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	candidate := monthlyTrigger(first, st)
	if !candidate.After(now) {
		candidate = monthlyTrigger(first.AddDate(0, 1, 0), st)
	}
	return candidate
}

// monthlyTrigger places the configured day-of-month (or last day) of the
// month starting at first, at the configured time.
func monthlyTrigger(first time.Time, st settings.Settings) time.Time {
	var day time.Time
	if st.SummaryMonthlyDay == storage.MonthlyLastDay {
		day = first.AddDate(0, 1, -1)
	} else {
		day = first.AddDate(0, 0, st.SummaryMonthlyDay-1)
	}
	return clock.At(day, st.SummaryTime, 8)
}

// weeklyCatchUpID returns the previous week's period id when this week's
// trigger has already passed.
func weeklyCatchUpID(now time.Time, st settings.Settings) (string, bool) {
	day := isoWeekday(st.SummaryWeeklyDay)
	trigger := clock.At(startOfWeek(now).AddDate(0, 0, day-1), st.SummaryTime, 8)
	if now.Before(trigger) {
		return "", false
	}
	return weekID(startOfWeek(trigger).AddDate(0, 0, -7)), true
}

// monthlyCatchUpID returns the previous month's period id when this
// month's trigger has already passed.
func monthlyCatchUpID(now time.Time, st settings.Settings) (string, bool) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	trigger := monthlyTrigger(first, st)
	if now.Before(trigger) {
		return "", false
	}
	return monthID(first.AddDate(0, -1, 0)), true
}

// CatchUp generates any digest whose trigger passed while the process
// was down, keyed on the previous period's artifact not existing yet.
func (s *Scheduler) CatchUp(ctx context.Context) error {
	st, err := s.settings.Load(ctx)
	if err != nil {
		return err
	}
	now := s.clk.Now()

	if st.SummaryWeeklyEnabled {
		if id, due := weeklyCatchUpID(now, st); due && !s.gen.Exists(ctx, PeriodWeekly, id) {
			s.log.Info("generating missed weekly digest", "period", id)
			if _, err := s.gen.Weekly(ctx, now); err != nil {
				s.log.Error("weekly catch-up failed", "error", err)
			}
		}
	}
	if st.SummaryMonthlyEnabled {
		if id, due := monthlyCatchUpID(now, st); due && !s.gen.Exists(ctx, PeriodMonthly, id) {
			s.log.Info("generating missed monthly digest", "period", id)
			if _, err := s.gen.Monthly(ctx, now); err != nil {
				s.log.Error("monthly catch-up failed", "error", err)
			}
		}
	}
	return nil
}

// Run drives both digest timers until ctx ends. Waits beyond the horizon
// are clamped and recomputed when the clamped timer fires; a resync
// every 15 minutes re-reads settings and repeats the catch-up check.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.CatchUp(ctx); err != nil {
		s.log.Warn("digest catch-up failed", "error", err)
	}

	weekly := time.NewTimer(0)
	monthly := time.NewTimer(0)
	drainTimer(weekly)
	drainTimer(monthly)
	s.rearm(ctx, weekly, monthly)

	resync := time.NewTicker(resyncInterval)
	defer func() {
		weekly.Stop()
		monthly.Stop()
		resync.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-weekly.C:
			now := s.clk.Now()
			if !s.nextWeekly.IsZero() && !now.Before(s.nextWeekly) {
				if _, err := s.gen.Weekly(ctx, now); err != nil {
					s.log.Error("weekly digest failed", "error", err)
				}
			}
			s.rearm(ctx, weekly, monthly)

		case <-monthly.C:
			now := s.clk.Now()
			if !s.nextMonthly.IsZero() && !now.Before(s.nextMonthly) {
				if _, err := s.gen.Monthly(ctx, now); err != nil {
					s.log.Error("monthly digest failed", "error", err)
				}
			}
			s.rearm(ctx, weekly, monthly)

		case <-resync.C:
			if err := s.CatchUp(ctx); err != nil {
				s.log.Warn("digest catch-up failed", "error", err)
			}
			s.rearm(ctx, weekly, monthly)
		}
	}
}

// rearm recomputes both triggers from current settings and resets the
// timers, clamping each wait to the horizon. A disabled digest parks its
// timer on the horizon so enabling it takes effect within one recheck.
func (s *Scheduler) rearm(ctx context.Context, weekly, monthly *time.Timer) {
	st, err := s.settings.Load(ctx)
	if err != nil {
		s.log.Warn("settings unavailable, rechecking later", "error", err)
		st = settings.Defaults()
	}
	now := s.clk.Now()

	s.nextWeekly = time.Time{}
	if st.SummaryWeeklyEnabled {
		s.nextWeekly = NextWeekly(now, st)
	}
	resetTimer(weekly, clampWait(now, s.nextWeekly))

	s.nextMonthly = time.Time{}
	if st.SummaryMonthlyEnabled {
		s.nextMonthly = NextMonthly(now, st)
	}
	resetTimer(monthly, clampWait(now, s.nextMonthly))
}

func clampWait(now, next time.Time) time.Duration {
	if next.IsZero() {
		return timerHorizon
	}
	wait := next.Sub(now)
	if wait > timerHorizon {
		return timerHorizon
	}
	if wait < 0 {
		return 0
	}
	return wait
}

func isoWeekday(stored int) int {
	// Settings store Sunday as 0; ISO uses 1=Monday..7=Sunday.
	if stored == 0 {
		return 7
	}
	return stored
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		drainTimer(t)
	}
	t.Reset(d)
}

func drainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
