package report

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dayplan/internal/clock"
	"dayplan/internal/notify"
	"dayplan/internal/settings"
	"dayplan/internal/storage"
)

func testGenerator(t *testing.T, now time.Time) (*Generator, *storage.Store, string, *notify.Memory) {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := settings.NewService(s, log)
	dir := t.TempDir()
	sink := &notify.Memory{}
	gen := NewGenerator(s, svc, clock.NewFake(now), sink, log, dir)
	return gen, s, dir, sink
}

func insertCleared(t *testing.T, s *storage.Store, day string, titles ...string) {
	t.Helper()
	for _, title := range titles {
		require.NoError(t, s.InsertHistory(context.Background(), storage.HistoryItem{
			SourceList: storage.ListToday,
			Title:      title,
			ClearedOn:  day,
		}))
	}
}

func TestWeeklyCoversPrecedingIsoWeek(t *testing.T) {
	// Wednesday 2026-03-11; the preceding week is Mar 2 to Mar 8, ISO week 10.
	now := time.Date(2026, time.March, 11, 8, 0, 0, 0, time.Local)
	gen, s, dir, sink := testGenerator(t, now)
	ctx := context.Background()

	insertCleared(t, s, "2026-03-03", "a", "b")
	insertCleared(t, s, "2026-03-05", "c", "d", "e")
	// Outside the period on both sides.
	insertCleared(t, s, "2026-03-01", "before")
	insertCleared(t, s, "2026-03-09", "after")

	art, err := gen.Weekly(ctx, now)
	require.NoError(t, err)
	require.Equal(t, "2026-10", art.PeriodID)
	require.Equal(t, "weekly-2026-10.md", art.Name)

	require.Contains(t, art.Markdown, "# Weekly Summary")
	require.Contains(t, art.Markdown, "5 tasks completed")
	require.Contains(t, art.Markdown, "Most productive: Thursday, March 5 with 3 tasks")
	require.Contains(t, art.Markdown, "### Tuesday, March 3 — 2 tasks")
	require.NotContains(t, art.Markdown, "before")
	require.NotContains(t, art.Markdown, "after")

	onDisk, err := os.ReadFile(filepath.Join(dir, art.Name))
	require.NoError(t, err)
	require.Equal(t, art.Markdown, string(onDisk))

	items := sink.Items()
	require.Len(t, items, 1)
	require.Equal(t, "Weekly Summary Generated", items[0].Title)
}

func TestMonthlyCoversPrecedingMonth(t *testing.T) {
	now := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.Local)
	gen, s, _, _ := testGenerator(t, now)
	ctx := context.Background()

	insertCleared(t, s, "2026-02-14", "feb task")
	insertCleared(t, s, "2026-03-01", "march task")

	art, err := gen.Monthly(ctx, now)
	require.NoError(t, err)
	require.Equal(t, "2026-02", art.PeriodID)
	require.Equal(t, "monthly-2026-02.md", art.Name)
	require.Contains(t, art.Markdown, "February 2026")
	require.Contains(t, art.Markdown, "1 tasks completed")
	require.NotContains(t, art.Markdown, "march task")
}

func TestWeeklyEmptyPeriod(t *testing.T) {
	now := time.Date(2026, time.March, 11, 8, 0, 0, 0, time.Local)
	gen, _, _, _ := testGenerator(t, now)

	art, err := gen.Weekly(context.Background(), now)
	require.NoError(t, err)
	require.Contains(t, art.Markdown, "*No tasks completed during this period.*")
}

func TestRegenerationOverwrites(t *testing.T) {
	now := time.Date(2026, time.March, 11, 8, 0, 0, 0, time.Local)
	gen, s, _, _ := testGenerator(t, now)
	ctx := context.Background()

	first, err := gen.Weekly(ctx, now)
	require.NoError(t, err)

	insertCleared(t, s, "2026-03-04", "late arrival")
	second, err := gen.Weekly(ctx, now)
	require.NoError(t, err)
	require.Equal(t, first.Name, second.Name)

	list, err := gen.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	onDisk, err := os.ReadFile(list[0].Path)
	require.NoError(t, err)
	require.Contains(t, string(onDisk), "late arrival")
}

func TestExistsTracksWrittenArtifacts(t *testing.T) {
	now := time.Date(2026, time.March, 11, 8, 0, 0, 0, time.Local)
	gen, _, _, _ := testGenerator(t, now)
	ctx := context.Background()

	require.False(t, gen.Exists(ctx, PeriodWeekly, "2026-10"))

	_, err := gen.Weekly(ctx, now)
	require.NoError(t, err)
	require.True(t, gen.Exists(ctx, PeriodWeekly, "2026-10"))
	require.False(t, gen.Exists(ctx, PeriodMonthly, "2026-02"))
}

func TestFolderOverrideFromSettings(t *testing.T) {
	now := time.Date(2026, time.March, 11, 8, 0, 0, 0, time.Local)
	gen, s, defaultDir, _ := testGenerator(t, now)
	ctx := context.Background()

	override := filepath.Join(t.TempDir(), "vault", "summaries")
	require.NoError(t, s.SetSetting(ctx, "summaryDestinationFolder", override))

	art, err := gen.Weekly(ctx, now)
	require.NoError(t, err)
	require.Equal(t, override, filepath.Dir(art.Path))

	_, err = os.Stat(filepath.Join(defaultDir, art.Name))
	require.True(t, os.IsNotExist(err))
}

func TestNextWeekly(t *testing.T) {
	st := settings.Defaults() // Monday at 08:00

	// Wednesday rolls to next week's Monday.
	now := time.Date(2026, time.March, 11, 12, 0, 0, 0, time.Local)
	want := time.Date(2026, time.March, 16, 8, 0, 0, 0, time.Local)
	require.Equal(t, want, NextWeekly(now, st))

	// Monday before the trigger stays on the same day.
	now = time.Date(2026, time.March, 9, 7, 0, 0, 0, time.Local)
	want = time.Date(2026, time.March, 9, 8, 0, 0, 0, time.Local)
	require.Equal(t, want, NextWeekly(now, st))

	// Monday after the trigger rolls a full week.
	now = time.Date(2026, time.March, 9, 9, 0, 0, 0, time.Local)
	want = time.Date(2026, time.March, 16, 8, 0, 0, 0, time.Local)
	require.Equal(t, want, NextWeekly(now, st))

	// Stored 0 means Sunday.
	st.SummaryWeeklyDay = 0
	now = time.Date(2026, time.March, 11, 12, 0, 0, 0, time.Local)
	want = time.Date(2026, time.March, 15, 8, 0, 0, 0, time.Local)
	require.Equal(t, want, NextWeekly(now, st))
}

func TestNextMonthly(t *testing.T) {
	st := settings.Defaults() // day 1 at 08:00

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)
	want := time.Date(2026, time.April, 1, 8, 0, 0, 0, time.Local)
	require.Equal(t, want, NextMonthly(now, st))

	now = time.Date(2026, time.March, 1, 7, 0, 0, 0, time.Local)
	want = time.Date(2026, time.March, 1, 8, 0, 0, 0, time.Local)
	require.Equal(t, want, NextMonthly(now, st))

	st.SummaryMonthlyDay = storage.MonthlyLastDay
	now = time.Date(2026, time.February, 10, 12, 0, 0, 0, time.Local)
	want = time.Date(2026, time.February, 28, 8, 0, 0, 0, time.Local)
	require.Equal(t, want, NextMonthly(now, st))
}

func TestCatchUpIDs(t *testing.T) {
	st := settings.Defaults()

	// Wednesday, past Monday's trigger; the due period is the week before.
	now := time.Date(2026, time.March, 11, 12, 0, 0, 0, time.Local)
	id, due := weeklyCatchUpID(now, st)
	require.True(t, due)
	require.Equal(t, "2026-10", id)

	// Monday before 08:00, nothing due yet.
	now = time.Date(2026, time.March, 9, 7, 0, 0, 0, time.Local)
	_, due = weeklyCatchUpID(now, st)
	require.False(t, due)

	now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.Local)
	id, due = monthlyCatchUpID(now, st)
	require.True(t, due)
	require.Equal(t, "2026-02", id)

	now = time.Date(2026, time.March, 1, 7, 0, 0, 0, time.Local)
	_, due = monthlyCatchUpID(now, st)
	require.False(t, due)
}

func TestSchedulerCatchUpGeneratesMissedWeekly(t *testing.T) {
	now := time.Date(2026, time.March, 11, 12, 0, 0, 0, time.Local)
	gen, s, _, _ := testGenerator(t, now)
	ctx := context.Background()

	insertCleared(t, s, "2026-03-04", "missed while down")

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := settings.NewService(s, log)
	sched := NewScheduler(gen, svc, clock.NewFake(now), log)

	require.NoError(t, sched.CatchUp(ctx))
	require.True(t, gen.Exists(ctx, PeriodWeekly, "2026-10"))
	require.True(t, gen.Exists(ctx, PeriodMonthly, "2026-02"))

	// A second pass finds both artifacts present and regenerates nothing.
	list, err := gen.List(ctx)
	require.NoError(t, err)
	before := len(list)
	require.NoError(t, sched.CatchUp(ctx))
	list, err = gen.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, before)
}

func TestClampWait(t *testing.T) {
	now := time.Date(2026, time.March, 11, 12, 0, 0, 0, time.Local)

	require.Equal(t, timerHorizon, clampWait(now, time.Time{}))
	require.Equal(t, timerHorizon, clampWait(now, now.AddDate(0, 0, 3)))
	require.Equal(t, time.Hour, clampWait(now, now.Add(time.Hour)))
	require.Equal(t, time.Duration(0), clampWait(now, now.Add(-time.Minute)))
}
