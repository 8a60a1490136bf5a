package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// busyRetryDelay is the fixed pause before the single retry of a
// transaction that lost the write lock.
const busyRetryDelay = 250 * time.Millisecond

// Tx exposes the full query API on a dedicated connection with an open
// transaction.
type Tx struct {
	queries
}

// RunInTx executes fn inside BEGIN IMMEDIATE .. COMMIT on a dedicated
// connection. The write lock is taken up front so concurrent readers
// never observe fn's writes half-applied. A busy error aborts the
// attempt and the whole transaction is retried once after a short delay;
// any other error rolls back and is returned as-is.
func (s *Store) RunInTx(ctx context.Context, fn func(tx *Tx) error) error {
	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(busyRetryDelay), 1)
	return backoff.Retry(func() error {
		err := s.attemptTx(ctx, fn)
		if err != nil && !IsBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
}

func (s *Store) attemptTx(ctx context.Context, fn func(tx *Tx) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Rollback must run even when ctx is already cancelled.
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(&Tx{queries: queries{db: conn}}); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// IsBusy reports whether err is sqlite lock contention.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// Reorder moves a task to newIndex within targetList (its own list when
// targetList is empty) and rewrites the list's sort indices so they stay
// a contiguous zero-based sequence.
func (s *Store) Reorder(ctx context.Context, id string, newIndex int, targetList TaskList) error {
	return s.RunInTx(ctx, func(tx *Tx) error {
		task, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		list := task.List
		if targetList != "" {
			list = targetList
		}

		rest, err := tx.ListTasks(ctx, list)
		if err != nil {
			return err
		}
		ordered := make([]string, 0, len(rest)+1)
		for _, t := range rest {
			if t.ID == id {
				continue
			}
			ordered = append(ordered, t.ID)
		}
		if newIndex < 0 {
			newIndex = 0
		}
		if newIndex > len(ordered) {
			newIndex = len(ordered)
		}
		ordered = append(ordered[:newIndex], append([]string{id}, ordered[newIndex:]...)...)

		for i, taskID := range ordered {
			if _, err := tx.db.ExecContext(ctx,
				`UPDATE tasks SET sort_index = ? WHERE id = ?;`, i, taskID); err != nil {
				return err
			}
		}
		if list != task.List {
			if _, err := tx.db.ExecContext(ctx,
				`UPDATE tasks SET list = ?, updated_at = ? WHERE id = ?;`,
				string(list), fmtTime(time.Now().UTC()), id); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteTaskWithHistory removes a task and, when it had been completed,
// the history row that archived the same completion.
func (s *Store) DeleteTaskWithHistory(ctx context.Context, id string) error {
	return s.RunInTx(ctx, func(tx *Tx) error {
		task, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteTask(ctx, id); err != nil {
			return err
		}
		if task.CompletedAt.Valid {
			return tx.DeleteHistoryMatching(ctx, task.Title, task.List, task.CompletedAt.Time)
		}
		return nil
	})
}
