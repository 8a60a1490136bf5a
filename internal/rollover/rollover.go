// Package rollover performs the once-per-day transition that archives
// completed tasks into history, carries incomplete ones forward and
// materializes the next day's recurring tasks.
package rollover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dayplan/internal/clock"
	"dayplan/internal/notify"
	"dayplan/internal/rules"
	"dayplan/internal/settings"
	"dayplan/internal/storage"
)

// defaultRetryDelay is how long a failed rollover waits before the next
// attempt. The archival date is derived from "now" on every attempt, so
// retrying later the same day is harmless.
const defaultRetryDelay = 15 * time.Minute

type Engine struct {
	store      *storage.Store
	settings   *settings.Service
	eval       *rules.Evaluator
	clk        clock.Clock
	sink       notify.Sink
	log        *slog.Logger
	retryDelay time.Duration
}

func NewEngine(store *storage.Store, svc *settings.Service, clk clock.Clock, sink notify.Sink, log *slog.Logger) *Engine {
	return &Engine{
		store:      store,
		settings:   svc,
		eval:       rules.NewEvaluator(log),
		clk:        clk,
		sink:       sink,
		log:        log,
		retryDelay: defaultRetryDelay,
	}
}

// Outcome reports what a single rollover pass did.
type Outcome struct {
	ArchiveDate string
	Archived    int
	CarriedOver int
	Recurring   rules.Result
}

// Perform runs one rollover closing yesterday relative to the engine
// clock. Archival, carry-over counting and recurring generation happen
// in one transaction; nothing outside it ever sees a half-archived
// store. Only after the commit is the day marked cleared, so a failure
// leaves the whole condition retryable.
func (e *Engine) Perform(ctx context.Context) (Outcome, error) {
	now := e.clk.Now()
	today := clock.StartOfDay(now)
	archiveDay := today.AddDate(0, 0, -1)
	out := Outcome{ArchiveDate: clock.DateOf(archiveDay)}

	err := e.store.RunInTx(ctx, func(tx *storage.Tx) error {
		completed, err := tx.CompletedTasks(ctx)
		if err != nil {
			return fmt.Errorf("select completed tasks: %w", err)
		}
		for _, task := range completed {
			clearedOn := out.ArchiveDate
			if task.CompletedAt.Valid {
				// File under the day the task was actually finished, which
				// may be earlier than the archival day after downtime.
				clearedOn = clock.DateOf(task.CompletedAt.Time.In(now.Location()))
			}
			item := storage.HistoryItem{
				SourceList:  task.List,
				Title:       task.Title,
				CompletedAt: task.CompletedAt,
				ClearedOn:   clearedOn,
			}
			if err := tx.InsertHistory(ctx, item); err != nil {
				return err
			}
			if err := tx.DeleteTask(ctx, task.ID); err != nil {
				return fmt.Errorf("delete archived task: %w", err)
			}
		}
		out.Archived = len(completed)

		// Incomplete TODAY tasks stay where they are; no index rewrite.
		out.CarriedOver, err = tx.CountIncomplete(ctx, storage.ListToday)
		if err != nil {
			return err
		}

		out.Recurring, err = e.eval.GenerateForDate(ctx, tx, today)
		return err
	})
	if err != nil {
		e.log.Error("rollover failed", "date", out.ArchiveDate, "error", err)
		e.sink.Notify("Daily Rollover Failed",
			"There was an error archiving completed tasks. It will be retried.")
		return out, err
	}

	if err := e.settings.SetLastRollover(ctx, archiveDay); err != nil {
		return out, fmt.Errorf("record rollover date: %w", err)
	}

	e.log.Info("rollover complete", "date", out.ArchiveDate,
		"archived", out.Archived, "carried_over", out.CarriedOver,
		"recurring_created", out.Recurring.Created, "recurring_skipped", out.Recurring.Skipped)
	e.sink.Notify("Daily Rollover Complete",
		fmt.Sprintf("%d archived, %d carried over, %d recurring created",
			out.Archived, out.CarriedOver, out.Recurring.Created))
	return out, nil
}

// CatchUp compares the recorded last rollover to today and repairs any
// gap with a single consolidated pass. Completions from missed days keep
// their own cleared-on dates and the title dedup guard stops double
// materialization, so one pass is enough no matter how long the process
// was down. Returns whether a rollover ran.
func (e *Engine) CatchUp(ctx context.Context) (Outcome, bool, error) {
	today := clock.StartOfDay(e.clk.Now())

	last, ok, err := e.settings.LastRollover(ctx)
	if err != nil {
		return Outcome{}, false, err
	}
	if !ok {
		// First launch: assume yesterday was handled so the next midnight
		// runs a normal single-day rollover.
		yesterday := today.AddDate(0, 0, -1)
		e.log.Info("no rollover recorded, assuming yesterday", "date", clock.DateOf(yesterday))
		return Outcome{}, false, e.settings.SetLastRollover(ctx, yesterday)
	}

	gap := daysBetween(clock.StartOfDay(last), today)
	if gap <= 1 {
		return Outcome{}, false, nil
	}

	e.log.Info("missed rollovers detected", "last", clock.DateOf(last), "days", gap)
	out, err := e.Perform(ctx)
	return out, err == nil, err
}

// Run arms a timer for each local midnight and performs the rollover
// when it fires. A failed pass re-arms after retryDelay instead of
// waiting for the next midnight.
func (e *Engine) Run(ctx context.Context) error {
	retry := false
	for {
		now := e.clk.Now()
		wake := clock.NextMidnight(now)
		if retry {
			wake = now.Add(e.retryDelay)
		}
		timer := time.NewTimer(wake.Sub(now))
		e.log.Debug("rollover armed", "at", wake)

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			_, err := e.Perform(ctx)
			retry = err != nil
		}
	}
}

func daysBetween(from, to time.Time) int {
	// Both arguments sit at local midnight; rounding absorbs DST jitter.
	return int(to.Sub(from).Round(24*time.Hour) / (24 * time.Hour))
}
