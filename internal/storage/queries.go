package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// dbtx is satisfied by *sql.DB and by the dedicated *sql.Conn a
// transaction runs on.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every statement. It is embedded in both Store and Tx so
// the same API is available inside and outside a transaction.
type queries struct {
	db dbtx
}

const taskColumns = `id, title, notes, list, sort_index, scheduled_at, completed, completed_at, created_at, updated_at`

func (q queries) CreateTask(ctx context.Context, in TaskInput) (Task, error) {
	now := time.Now().UTC()
	t := Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Notes:       in.Notes,
		List:        in.List,
		ScheduledAt: in.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var maxIndex sql.NullInt64
	row := q.db.QueryRowContext(ctx, `SELECT MAX(sort_index) FROM tasks WHERE list = ?;`, string(in.List))
	if err := row.Scan(&maxIndex); err != nil {
		return Task{}, fmt.Errorf("next sort index: %w", err)
	}
	if maxIndex.Valid {
		t.SortIndex = int(maxIndex.Int64) + 1
	}

	hasTime := 0
	if t.ScheduledAt.Valid {
		hasTime = 1
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, notes, list, sort_index, has_time, scheduled_at, completed, completed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?);`,
		t.ID, t.Title, nullString(t.Notes), string(t.List), t.SortIndex, hasTime,
		nullTimeString(t.ScheduledAt), fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt))
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (q queries) GetTask(ctx context.Context, id string) (Task, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?;`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (q queries) ListTasks(ctx context.Context, list TaskList) ([]Task, error) {
	return q.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE list = ? ORDER BY sort_index;`, string(list))
}

func (q queries) AllTasks(ctx context.Context) ([]Task, error) {
	return q.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY list, sort_index;`)
}

// CompletedTasks returns completed tasks from both lists.
func (q queries) CompletedTasks(ctx context.Context) ([]Task, error) {
	return q.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE completed = 1 ORDER BY list, sort_index;`)
}

// ScheduledIncomplete returns active tasks that carry a scheduled instant.
func (q queries) ScheduledIncomplete(ctx context.Context) ([]Task, error) {
	return q.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE completed = 0 AND scheduled_at IS NOT NULL ORDER BY scheduled_at;`)
}

func (q queries) CountIncomplete(ctx context.Context, list TaskList) (int, error) {
	var n int
	row := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE list = ? AND completed = 0;`, string(list))
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// TaskExistsByTitle reports whether any task in list has the given title,
// compared case-insensitively. Completed tasks count.
func (q queries) TaskExistsByTitle(ctx context.Context, list TaskList, title string) (bool, error) {
	var one int
	row := q.db.QueryRowContext(ctx,
		`SELECT 1 FROM tasks WHERE list = ? AND upper(title) = upper(?) LIMIT 1;`,
		string(list), title)
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (q queries) SetCompleted(ctx context.Context, id string, done bool, at time.Time) error {
	completedAt := sql.NullString{}
	val := 0
	if done {
		val = 1
		completedAt = sql.NullString{String: fmtTime(at), Valid: true}
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE tasks SET completed = ?, completed_at = ?, updated_at = ? WHERE id = ?;`,
		val, completedAt, fmtTime(at), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (q queries) UpdateTaskDetails(ctx context.Context, id, title, notes string, scheduledAt sql.NullTime) error {
	hasTime := 0
	if scheduledAt.Valid {
		hasTime = 1
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, notes = ?, scheduled_at = ?, has_time = ?, updated_at = ? WHERE id = ?;`,
		title, nullString(notes), nullTimeString(scheduledAt), hasTime, fmtTime(time.Now().UTC()), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MoveTask transfers a task to the other list, appending it at the end.
func (q queries) MoveTask(ctx context.Context, id string, list TaskList) error {
	var maxIndex sql.NullInt64
	row := q.db.QueryRowContext(ctx, `SELECT MAX(sort_index) FROM tasks WHERE list = ?;`, string(list))
	if err := row.Scan(&maxIndex); err != nil {
		return err
	}
	next := 0
	if maxIndex.Valid {
		next = int(maxIndex.Int64) + 1
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE tasks SET list = ?, sort_index = ?, updated_at = ? WHERE id = ?;`,
		string(list), next, fmtTime(time.Now().UTC()), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (q queries) DeleteTask(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?;`, id)
	return err
}

func (q queries) InsertHistory(ctx context.Context, h HistoryItem) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO task_history (id, source_list, title, completed_at, cleared_on, created_at)
		 VALUES (?, ?, ?, ?, ?, ?);`,
		h.ID, string(h.SourceList), h.Title, nullTimeString(h.CompletedAt), h.ClearedOn, fmtTime(h.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (q queries) HistoryByDay(ctx context.Context, day, search string) ([]HistoryItem, error) {
	query := `SELECT id, source_list, title, completed_at, cleared_on, created_at FROM task_history WHERE cleared_on = ?`
	args := []any{day}
	if search != "" {
		query += ` AND title LIKE ?`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY created_at DESC;`
	return q.queryHistory(ctx, query, args...)
}

func (q queries) HistoryRange(ctx context.Context, start, end string) ([]HistoryItem, error) {
	return q.queryHistory(ctx,
		`SELECT id, source_list, title, completed_at, cleared_on, created_at FROM task_history
		 WHERE cleared_on >= ? AND cleared_on <= ? ORDER BY cleared_on, created_at;`,
		start, end)
}

func (q queries) DistinctHistoryDays(ctx context.Context, limit, offset int) ([]DayCount, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT cleared_on, COUNT(*) FROM task_history GROUP BY cleared_on ORDER BY cleared_on DESC LIMIT ? OFFSET ?;`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []DayCount
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (q queries) HistoryCount(ctx context.Context) (int, error) {
	var n int
	row := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM task_history;`)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (q queries) DeleteHistoryMatching(ctx context.Context, title string, list TaskList, completedAt time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM task_history WHERE title = ? AND source_list = ? AND completed_at = ?;`,
		title, string(list), fmtTime(completedAt))
	return err
}

func (q queries) ListRules(ctx context.Context) ([]RecurringRule, error) {
	return q.queryRules(ctx, `SELECT id, title, notes, cadence_type, weekdays_mask, monthly_day, time_hhmm, enabled, created_at, updated_at FROM recurring_rules ORDER BY title;`)
}

func (q queries) EnabledRules(ctx context.Context) ([]RecurringRule, error) {
	return q.queryRules(ctx, `SELECT id, title, notes, cadence_type, weekdays_mask, monthly_day, time_hhmm, enabled, created_at, updated_at FROM recurring_rules WHERE enabled = 1 ORDER BY title;`)
}

func (q queries) CreateRule(ctx context.Context, in RuleInput) (RecurringRule, error) {
	now := time.Now().UTC()
	r := RecurringRule{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Notes:        in.Notes,
		Cadence:      in.Cadence,
		WeekdaysMask: in.WeekdaysMask,
		MonthlyDay:   in.MonthlyDay,
		TimeOfDay:    in.TimeOfDay,
		Enabled:      in.Enabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	enabled := 0
	if r.Enabled {
		enabled = 1
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO recurring_rules (id, title, notes, cadence_type, weekdays_mask, monthly_day, time_hhmm, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		r.ID, r.Title, nullString(r.Notes), string(r.Cadence), r.WeekdaysMask, r.MonthlyDay,
		nullString(r.TimeOfDay), enabled, fmtTime(r.CreatedAt), fmtTime(r.UpdatedAt))
	if err != nil {
		return RecurringRule{}, fmt.Errorf("insert rule: %w", err)
	}
	return r, nil
}

func (q queries) UpdateRule(ctx context.Context, id string, in RuleInput) error {
	enabled := 0
	if in.Enabled {
		enabled = 1
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_rules SET title = ?, notes = ?, cadence_type = ?, weekdays_mask = ?, monthly_day = ?, time_hhmm = ?, enabled = ?, updated_at = ? WHERE id = ?;`,
		in.Title, nullString(in.Notes), string(in.Cadence), in.WeekdaysMask, in.MonthlyDay,
		nullString(in.TimeOfDay), enabled, fmtTime(time.Now().UTC()), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (q queries) DeleteRule(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = ?;`, id)
	return err
}

func (q queries) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	row := q.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?;`, key)
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (q queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value;`,
		key, value)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (q queries) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var notes, scheduledStr, completedStr sql.NullString
	var list, createdStr, updatedStr string
	var completedInt int

	err := row.Scan(&t.ID, &t.Title, &notes, &list, &t.SortIndex, &scheduledStr,
		&completedInt, &completedStr, &createdStr, &updatedStr)
	if err != nil {
		return Task{}, err
	}
	t.Notes = notes.String
	t.List = TaskList(list)
	t.Completed = completedInt == 1
	t.ScheduledAt = parseNullTime(scheduledStr)
	t.CompletedAt = parseNullTime(completedStr)
	t.CreatedAt = parseTime(createdStr)
	t.UpdatedAt = parseTime(updatedStr)
	return t, nil
}

func (q queries) queryHistory(ctx context.Context, query string, args ...any) ([]HistoryItem, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []HistoryItem
	for rows.Next() {
		var h HistoryItem
		var list, createdStr string
		var completedStr sql.NullString
		if err := rows.Scan(&h.ID, &list, &h.Title, &completedStr, &h.ClearedOn, &createdStr); err != nil {
			return nil, err
		}
		h.SourceList = TaskList(list)
		h.CompletedAt = parseNullTime(completedStr)
		h.CreatedAt = parseTime(createdStr)
		items = append(items, h)
	}
	return items, rows.Err()
}

func (q queries) queryRules(ctx context.Context, query string, args ...any) ([]RecurringRule, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []RecurringRule
	for rows.Next() {
		var r RecurringRule
		var notes, timeOfDay sql.NullString
		var mask, monthlyDay sql.NullInt64
		var cadence, createdStr, updatedStr string
		var enabled int
		err := rows.Scan(&r.ID, &r.Title, &notes, &cadence, &mask, &monthlyDay,
			&timeOfDay, &enabled, &createdStr, &updatedStr)
		if err != nil {
			return nil, err
		}
		r.Notes = notes.String
		r.Cadence = Cadence(cadence)
		r.WeekdaysMask = int(mask.Int64)
		r.MonthlyDay = int(monthlyDay.Int64)
		r.TimeOfDay = timeOfDay.String
		r.Enabled = enabled == 1
		r.CreatedAt = parseTime(createdStr)
		r.UpdatedAt = parseTime(updatedStr)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullTimeString(t sql.NullTime) sql.NullString {
	if !t.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(t.Time), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseNullTime(s sql.NullString) sql.NullTime {
	if !s.Valid {
		return sql.NullTime{}
	}
	parsed, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: parsed, Valid: true}
}

func parseTime(s string) time.Time {
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
