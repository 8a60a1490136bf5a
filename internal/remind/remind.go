// Package remind scans scheduled tasks and raises upcoming/overdue
// alerts, each task at most once per active lifecycle.
package remind

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"dayplan/internal/clock"
	"dayplan/internal/notify"
	"dayplan/internal/settings"
	"dayplan/internal/storage"
)

const defaultScanInterval = time.Minute

type Notifier struct {
	store    *storage.Store
	settings *settings.Service
	clk      clock.Clock
	sink     notify.Sink
	log      *slog.Logger

	// notified holds task IDs already alerted. It is owned by this
	// notifier alone and never persisted.
	notified map[string]struct{}
}

func NewNotifier(store *storage.Store, svc *settings.Service, clk clock.Clock, sink notify.Sink, log *slog.Logger) *Notifier {
	return &Notifier{
		store:    store,
		settings: svc,
		clk:      clk,
		sink:     sink,
		log:      log,
		notified: make(map[string]struct{}),
	}
}

// Scan performs one pass over active, incomplete, time-scheduled tasks.
// It reads the store but never writes to it.
func (n *Notifier) Scan(ctx context.Context) error {
	st, err := n.settings.Load(ctx)
	if err != nil {
		return err
	}

	tasks, err := n.store.ScheduledIncomplete(ctx)
	if err != nil {
		return fmt.Errorf("scan scheduled tasks: %w", err)
	}

	// Drop dedup entries for tasks that left the active set; a task that
	// reappears later is eligible again.
	active := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		active[t.ID] = struct{}{}
	}
	for id := range n.notified {
		if _, ok := active[id]; !ok {
			delete(n.notified, id)
		}
	}

	now := n.clk.Now()
	for _, t := range tasks {
		if _, done := n.notified[t.ID]; done {
			continue
		}
		minutes := t.ScheduledAt.Time.Sub(now).Minutes()

		switch {
		case st.RemindersEnabled && minutes > 0 && minutes <= float64(st.ReminderLeadMinutes):
			n.sink.Notify("Task Reminder",
				fmt.Sprintf("%q is due in %d minutes", t.Title, int(math.Round(minutes))))
			n.notified[t.ID] = struct{}{}
		case st.OverdueEnabled && minutes < 0 && minutes >= -float64(st.OverdueWindowMinutes):
			n.sink.Notify("Task Overdue",
				fmt.Sprintf("%q was due %d minutes ago", t.Title, int(math.Round(-minutes))))
			n.notified[t.ID] = struct{}{}
		}
	}
	return nil
}

// Run scans immediately, then on a fixed interval until ctx ends.
func (n *Notifier) Run(ctx context.Context) error {
	if err := n.Scan(ctx); err != nil {
		n.log.Warn("reminder scan failed", "error", err)
	}

	ticker := time.NewTicker(defaultScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := n.Scan(ctx); err != nil {
				n.log.Warn("reminder scan failed", "error", err)
			}
		}
	}
}
