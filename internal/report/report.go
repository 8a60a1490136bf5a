// Package report builds the weekly and monthly digest artifacts from
// task history and schedules their generation.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dayplan/internal/clock"
	"dayplan/internal/notify"
	"dayplan/internal/settings"
	"dayplan/internal/storage"
)

type PeriodType string

const (
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// Artifact is one generated digest. Name is deterministic per period, so
// regenerating the same period overwrites instead of duplicating.
type Artifact struct {
	Name        string
	Path        string
	Type        PeriodType
	PeriodID    string
	Markdown    string
	GeneratedAt time.Time
}

type Generator struct {
	store      *storage.Store
	settings   *settings.Service
	clk        clock.Clock
	sink       notify.Sink
	log        *slog.Logger
	defaultDir string
}

func NewGenerator(store *storage.Store, svc *settings.Service, clk clock.Clock, sink notify.Sink, log *slog.Logger, defaultDir string) *Generator {
	return &Generator{
		store:      store,
		settings:   svc,
		clk:        clk,
		sink:       sink,
		log:        log,
		defaultDir: defaultDir,
	}
}

// Weekly generates the digest for the week (Mon-Sun) preceding ref.
func (g *Generator) Weekly(ctx context.Context, ref time.Time) (Artifact, error) {
	start := startOfWeek(ref).AddDate(0, 0, -7)
	end := start.AddDate(0, 0, 6)
	id := weekID(start)
	label := fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))

	art, err := g.generate(ctx, PeriodWeekly, id, "Weekly Summary", label, start, end)
	if err != nil {
		return art, err
	}
	g.sink.Notify("Weekly Summary Generated",
		fmt.Sprintf("Your weekly summary for %s has been saved.", label))
	return art, nil
}

// Monthly generates the digest for the calendar month preceding ref.
func (g *Generator) Monthly(ctx context.Context, ref time.Time) (Artifact, error) {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	start := first.AddDate(0, -1, 0)
	end := first.AddDate(0, 0, -1)
	id := monthID(start)
	label := start.Format("January 2006")

	art, err := g.generate(ctx, PeriodMonthly, id, "Monthly Summary", label, start, end)
	if err != nil {
		return art, err
	}
	g.sink.Notify("Monthly Summary Generated",
		fmt.Sprintf("Your monthly summary for %s has been saved.", label))
	return art, nil
}

// WeeklyNow and MonthlyNow are the manual triggers exposed to the CLI.
func (g *Generator) WeeklyNow(ctx context.Context) (Artifact, error) {
	return g.Weekly(ctx, g.clk.Now())
}

func (g *Generator) MonthlyNow(ctx context.Context) (Artifact, error) {
	return g.Monthly(ctx, g.clk.Now())
}

func (g *Generator) generate(ctx context.Context, typ PeriodType, id, heading, label string, start, end time.Time) (Artifact, error) {
	items, err := g.store.HistoryRange(ctx, clock.DateOf(start), clock.DateOf(end))
	if err != nil {
		return Artifact{}, fmt.Errorf("history range: %w", err)
	}

	now := g.clk.Now()
	markdown := render(heading, label, items, now)

	dir, err := g.folder(ctx)
	if err != nil {
		return Artifact{}, err
	}
	name := fmt.Sprintf("%s-%s.md", typ, id)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write artifact: %w", err)
	}

	g.log.Info("digest generated", "type", string(typ), "period", id, "tasks", len(items), "path", path)
	return Artifact{
		Name:        name,
		Path:        path,
		Type:        typ,
		PeriodID:    id,
		Markdown:    markdown,
		GeneratedAt: now,
	}, nil
}

// Exists reports whether the artifact for a period has been written.
// Artifact presence is the idempotency witness for catch-up.
func (g *Generator) Exists(ctx context.Context, typ PeriodType, id string) bool {
	dir, err := g.folder(ctx)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(dir, fmt.Sprintf("%s-%s.md", typ, id)))
	return err == nil
}

// List returns the artifacts on disk, newest name first.
func (g *Generator) List(ctx context.Context) ([]Artifact, error) {
	dir, err := g.folder(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []Artifact
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".md") {
			continue
		}
		var typ PeriodType
		switch {
		case strings.HasPrefix(name, string(PeriodWeekly)+"-"):
			typ = PeriodWeekly
		case strings.HasPrefix(name, string(PeriodMonthly)+"-"):
			typ = PeriodMonthly
		default:
			continue
		}
		out = append(out, Artifact{
			Name:     name,
			Path:     filepath.Join(dir, name),
			Type:     typ,
			PeriodID: strings.TrimSuffix(strings.TrimPrefix(name, string(typ)+"-"), ".md"),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

func (g *Generator) folder(ctx context.Context) (string, error) {
	dir := g.defaultDir
	st, err := g.settings.Load(ctx)
	if err == nil && st.SummaryFolder != "" {
		dir = st.SummaryFolder
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create summaries folder: %w", err)
	}
	return dir, nil
}

func render(heading, label string, items []storage.HistoryItem, generatedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", heading)
	fmt.Fprintf(&b, "%s\n", label)
	fmt.Fprintf(&b, "Generated %s\n\n", generatedAt.Format("Monday, January 2 at 3:04 pm"))

	if len(items) == 0 {
		b.WriteString("*No tasks completed during this period.*\n")
		return b.String()
	}

	byDay := make(map[string][]storage.HistoryItem)
	for _, item := range items {
		byDay[item.ClearedOn] = append(byDay[item.ClearedOn], item)
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(&b, "%d tasks completed\n\n", len(items))

	best, bestCount := "", 0
	for _, day := range days {
		if n := len(byDay[day]); n > bestCount {
			best, bestCount = day, n
		}
	}
	fmt.Fprintf(&b, "Most productive: %s with %d tasks\n", dayLabel(best), bestCount)

	b.WriteString("\n## Completed Tasks\n\n")
	for _, day := range days {
		tasks := byDay[day]
		noun := "tasks"
		if len(tasks) == 1 {
			noun = "task"
		}
		fmt.Fprintf(&b, "### %s — %d %s\n\n", dayLabel(day), len(tasks), noun)
		for i, task := range tasks {
			fmt.Fprintf(&b, "%d. %s\n", i+1, task.Title)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func dayLabel(day string) string {
	d, err := clock.ParseDate(day)
	if err != nil {
		return day
	}
	return d.Format("Monday, January 2")
}

// startOfWeek returns the local midnight of t's ISO week Monday.
func startOfWeek(t time.Time) time.Time {
	d := clock.StartOfDay(t)
	shift := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -shift)
}

func weekID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-%02d", year, week)
}

func monthID(t time.Time) string {
	return t.Format("2006-01")
}
