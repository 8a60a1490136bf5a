package storage

import (
	"database/sql"
	"time"
)

type TaskList string

const (
	ListToday  TaskList = "TODAY"
	ListFuture TaskList = "FUTURE"
)

type Cadence string

const (
	CadenceWeekly  Cadence = "WEEKLY"
	CadenceMonthly Cadence = "MONTHLY"
)

// MonthlyLastDay is the monthly_day sentinel for "last day of the month".
const MonthlyLastDay = -1

type Task struct {
	ID          string
	Title       string
	Notes       string
	List        TaskList
	SortIndex   int
	ScheduledAt sql.NullTime
	Completed   bool
	CompletedAt sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TaskInput struct {
	Title       string
	Notes       string
	List        TaskList
	ScheduledAt sql.NullTime
}

// HistoryItem is an archived task. Rows are append-only; ClearedOn is the
// local calendar date the row is filed under.
type HistoryItem struct {
	ID          string
	SourceList  TaskList
	Title       string
	CompletedAt sql.NullTime
	ClearedOn   string
	CreatedAt   time.Time
}

type DayCount struct {
	Date  string
	Count int
}

type RecurringRule struct {
	ID           string
	Title        string
	Notes        string
	Cadence      Cadence
	WeekdaysMask int
	MonthlyDay   int
	TimeOfDay    string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type RuleInput struct {
	Title        string
	Notes        string
	Cadence      Cadence
	WeekdaysMask int
	MonthlyDay   int
	TimeOfDay    string
	Enabled      bool
}
