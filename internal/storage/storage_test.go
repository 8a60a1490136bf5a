package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateTaskAssignsDenseSortIndices(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := s.CreateTask(ctx, TaskInput{Title: title, List: ListToday})
		require.NoError(t, err)
	}
	_, err := s.CreateTask(ctx, TaskInput{Title: "other list", List: ListFuture})
	require.NoError(t, err)

	today, err := s.ListTasks(ctx, ListToday)
	require.NoError(t, err)
	require.Len(t, today, 3)
	for i, task := range today {
		require.Equal(t, i, task.SortIndex)
	}

	future, err := s.ListTasks(ctx, ListFuture)
	require.NoError(t, err)
	require.Len(t, future, 1)
	require.Equal(t, 0, future[0].SortIndex)
}

func TestReorderKeepsIndicesContiguous(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"a", "b", "c", "d"} {
		task, err := s.CreateTask(ctx, TaskInput{Title: title, List: ListToday})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	require.NoError(t, s.Reorder(ctx, ids[3], 0, ""))

	tasks, err := s.ListTasks(ctx, ListToday)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	require.Equal(t, "d", tasks[0].Title)
	for i, task := range tasks {
		require.Equal(t, i, task.SortIndex)
	}
}

func TestReorderAcrossLists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, TaskInput{Title: "mover", List: ListFuture})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, TaskInput{Title: "resident", List: ListToday})
	require.NoError(t, err)

	require.NoError(t, s.Reorder(ctx, task.ID, 0, ListToday))

	today, err := s.ListTasks(ctx, ListToday)
	require.NoError(t, err)
	require.Len(t, today, 2)
	require.Equal(t, "mover", today[0].Title)
	require.Equal(t, []int{0, 1}, []int{today[0].SortIndex, today[1].SortIndex})

	future, err := s.ListTasks(ctx, ListFuture)
	require.NoError(t, err)
	require.Empty(t, future)
}

func TestTaskExistsByTitleIsCaseInsensitive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, TaskInput{Title: "Water The Plants", List: ListToday})
	require.NoError(t, err)

	exists, err := s.TaskExistsByTitle(ctx, ListToday, "water the plants")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = s.TaskExistsByTitle(ctx, ListFuture, "water the plants")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestSetCompletedRecordsInstant(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, TaskInput{Title: "t", List: ListToday})
	require.NoError(t, err)

	at := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	require.NoError(t, s.SetCompleted(ctx, task.ID, true, at))

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, got.Completed)
	require.True(t, got.CompletedAt.Valid)
	require.True(t, got.CompletedAt.Time.Equal(at))

	require.NoError(t, s.SetCompleted(ctx, task.ID, false, at.Add(time.Hour)))
	got, err = s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.False(t, got.Completed)
	require.False(t, got.CompletedAt.Valid)
}

func TestDeleteTaskWithHistoryRemovesMatchingRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	task, err := s.CreateTask(ctx, TaskInput{Title: "done thing", List: ListToday})
	require.NoError(t, err)
	require.NoError(t, s.SetCompleted(ctx, task.ID, true, at))

	require.NoError(t, s.InsertHistory(ctx, HistoryItem{
		SourceList:  ListToday,
		Title:       "done thing",
		CompletedAt: sql.NullTime{Time: at, Valid: true},
		ClearedOn:   "2026-03-10",
	}))
	require.NoError(t, s.InsertHistory(ctx, HistoryItem{
		SourceList: ListToday,
		Title:      "unrelated",
		ClearedOn:  "2026-03-10",
	}))

	require.NoError(t, s.DeleteTaskWithHistory(ctx, task.ID))

	_, err = s.GetTask(ctx, task.ID)
	require.ErrorIs(t, err, ErrNotFound)

	n, err := s.HistoryCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(tx *Tx) error {
		_, err := tx.CreateTask(ctx, TaskInput{Title: "ghost", List: ListToday})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	tasks, err := s.ListTasks(ctx, ListToday)
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestHistoryRangeAndDistinctDays(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, row := range []struct {
		title string
		day   string
	}{
		{"a", "2026-03-01"},
		{"b", "2026-03-01"},
		{"c", "2026-03-05"},
		{"d", "2026-04-01"},
	} {
		require.NoError(t, s.InsertHistory(ctx, HistoryItem{
			SourceList: ListToday,
			Title:      row.title,
			ClearedOn:  row.day,
		}))
	}

	items, err := s.HistoryRange(ctx, "2026-03-01", "2026-03-31")
	require.NoError(t, err)
	require.Len(t, items, 3)

	days, err := s.DistinctHistoryDays(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, days, 3)
	require.Equal(t, "2026-04-01", days[0].Date)
	require.Equal(t, 2, days[2].Count)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, found, err := s.GetSetting(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.SetSetting(ctx, "k", "v1"))
	require.NoError(t, s.SetSetting(ctx, "k", "v2"))

	v, found, err := s.GetSetting(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v2", v)
}

func TestRuleRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rule, err := s.CreateRule(ctx, RuleInput{
		Title:        "standup notes",
		Cadence:      CadenceWeekly,
		WeekdaysMask: 0b0000100,
		TimeOfDay:    "09:30",
		Enabled:      true,
	})
	require.NoError(t, err)

	rules, err := s.EnabledRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Equal(t, rule.ID, rules[0].ID)
	require.Equal(t, "09:30", rules[0].TimeOfDay)

	disabled := RuleInput{
		Title:        rule.Title,
		Cadence:      rule.Cadence,
		WeekdaysMask: rule.WeekdaysMask,
		TimeOfDay:    rule.TimeOfDay,
		Enabled:      false,
	}
	require.NoError(t, s.UpdateRule(ctx, rule.ID, disabled))

	rules, err = s.EnabledRules(ctx)
	require.NoError(t, err)
	require.Empty(t, rules)

	require.NoError(t, s.DeleteRule(ctx, rule.ID))
	all, err := s.ListRules(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}
