// Package rules decides when recurring rules fire and materializes the
// tasks they produce.
package rules

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"dayplan/internal/clock"
	"dayplan/internal/storage"
)

// Queries is the slice of the store API the evaluator needs. Both
// *storage.Store and *storage.Tx satisfy it, so generation can run
// standalone or inside the rollover transaction.
type Queries interface {
	EnabledRules(ctx context.Context) ([]storage.RecurringRule, error)
	TaskExistsByTitle(ctx context.Context, list storage.TaskList, title string) (bool, error)
	CreateTask(ctx context.Context, in storage.TaskInput) (storage.Task, error)
}

// Result counts one generation pass.
type Result struct {
	Created int
	Skipped int
}

type Evaluator struct {
	log *slog.Logger
}

func NewEvaluator(log *slog.Logger) *Evaluator {
	return &Evaluator{log: log}
}

// Fires reports whether rule is due on date. Disabled rules never fire.
func Fires(rule storage.RecurringRule, date time.Time) bool {
	if !rule.Enabled {
		return false
	}
	switch rule.Cadence {
	case storage.CadenceWeekly:
		// Mask bit 0 is Monday, bit 6 is Sunday.
		bit := (int(date.Weekday()) + 6) % 7
		return rule.WeekdaysMask&(1<<bit) != 0
	case storage.CadenceMonthly:
		if rule.MonthlyDay == storage.MonthlyLastDay {
			return date.AddDate(0, 0, 1).Month() != date.Month()
		}
		return date.Day() == rule.MonthlyDay
	}
	return false
}

// GenerateForDate materializes every enabled rule due on date into a
// TODAY task. A rule whose title already matches a TODAY task
// (case-insensitively, completed or not) is skipped, which keeps repeat
// passes over the same date idempotent.
func (e *Evaluator) GenerateForDate(ctx context.Context, q Queries, date time.Time) (Result, error) {
	var res Result

	enabled, err := q.EnabledRules(ctx)
	if err != nil {
		return res, fmt.Errorf("list rules: %w", err)
	}

	for _, rule := range enabled {
		if !Fires(rule, date) {
			continue
		}
		exists, err := q.TaskExistsByTitle(ctx, storage.ListToday, rule.Title)
		if err != nil {
			return res, fmt.Errorf("dedup check for %q: %w", rule.Title, err)
		}
		if exists {
			e.log.Debug("recurring task already present", "title", rule.Title)
			res.Skipped++
			continue
		}

		in := storage.TaskInput{
			Title: rule.Title,
			Notes: rule.Notes,
			List:  storage.ListToday,
		}
		if rule.TimeOfDay != "" {
			hour, minute, err := clock.ParseClock(rule.TimeOfDay)
			if err != nil {
				e.log.Warn("unparsable rule time, creating without schedule",
					"title", rule.Title, "time", rule.TimeOfDay)
			} else {
				at := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
				in.ScheduledAt = sql.NullTime{Time: at, Valid: true}
			}
		}
		if _, err := q.CreateTask(ctx, in); err != nil {
			return res, fmt.Errorf("create recurring task %q: %w", rule.Title, err)
		}
		e.log.Info("created recurring task", "title", rule.Title, "date", clock.DateOf(date))
		res.Created++
	}
	return res, nil
}
