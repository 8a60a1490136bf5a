// Package settings exposes the runtime preferences stored in the
// settings table as a typed structure with per-key defaults.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"dayplan/internal/clock"
	"dayplan/internal/storage"
)

const (
	keyReminderLeadMinutes   = "reminderLeadMinutes"
	keyOverdueWindowMinutes  = "overdueWindowMinutes"
	keyRemindersEnabled      = "remindersEnabled"
	keyOverdueEnabled        = "overdueEnabled"
	keySummaryWeeklyEnabled  = "summaryWeeklyEnabled"
	keySummaryMonthlyEnabled = "summaryMonthlyEnabled"
	keySummaryWeeklyDay      = "summaryWeeklyDay"
	keySummaryMonthlyDay     = "summaryMonthlyDay"
	keySummaryTime           = "summaryTime"
	keySummaryFolder         = "summaryDestinationFolder"
	keyLastRolloverDate      = "lastRolloverDate"
)

// Settings carries every tunable the engines read. Zero values are never
// used directly; Load substitutes defaults for missing or invalid rows.
type Settings struct {
	ReminderLeadMinutes  int
	OverdueWindowMinutes int
	RemindersEnabled     bool
	OverdueEnabled       bool

	SummaryWeeklyEnabled  bool
	SummaryMonthlyEnabled bool
	// SummaryWeeklyDay uses the stored convention: 0=Sunday, 1=Monday ..
	// 6=Saturday.
	SummaryWeeklyDay int
	// SummaryMonthlyDay is 1..28 or storage.MonthlyLastDay.
	SummaryMonthlyDay int
	SummaryTime       string
	SummaryFolder     string
}

func Defaults() Settings {
	return Settings{
		ReminderLeadMinutes:   15,
		OverdueWindowMinutes:  60,
		RemindersEnabled:      true,
		OverdueEnabled:        true,
		SummaryWeeklyEnabled:  true,
		SummaryMonthlyEnabled: true,
		SummaryWeeklyDay:      1,
		SummaryMonthlyDay:     1,
		SummaryTime:           "08:00",
		SummaryFolder:         "",
	}
}

// Service reads and writes settings through the store.
type Service struct {
	store *storage.Store
	log   *slog.Logger
}

func NewService(store *storage.Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Load returns the current settings. Missing keys take their defaults;
// unparsable or out-of-range values are clamped to defaults rather than
// surfaced as errors.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	out := Defaults()

	var err error
	out.ReminderLeadMinutes, err = s.intSetting(ctx, keyReminderLeadMinutes, out.ReminderLeadMinutes)
	if err != nil {
		return out, err
	}
	out.OverdueWindowMinutes, err = s.intSetting(ctx, keyOverdueWindowMinutes, out.OverdueWindowMinutes)
	if err != nil {
		return out, err
	}
	out.RemindersEnabled, err = s.boolSetting(ctx, keyRemindersEnabled, out.RemindersEnabled)
	if err != nil {
		return out, err
	}
	out.OverdueEnabled, err = s.boolSetting(ctx, keyOverdueEnabled, out.OverdueEnabled)
	if err != nil {
		return out, err
	}
	out.SummaryWeeklyEnabled, err = s.boolSetting(ctx, keySummaryWeeklyEnabled, out.SummaryWeeklyEnabled)
	if err != nil {
		return out, err
	}
	out.SummaryMonthlyEnabled, err = s.boolSetting(ctx, keySummaryMonthlyEnabled, out.SummaryMonthlyEnabled)
	if err != nil {
		return out, err
	}
	out.SummaryWeeklyDay, err = s.intSetting(ctx, keySummaryWeeklyDay, out.SummaryWeeklyDay)
	if err != nil {
		return out, err
	}
	out.SummaryMonthlyDay, err = s.intSetting(ctx, keySummaryMonthlyDay, out.SummaryMonthlyDay)
	if err != nil {
		return out, err
	}
	out.SummaryTime, err = s.stringSetting(ctx, keySummaryTime, out.SummaryTime)
	if err != nil {
		return out, err
	}
	out.SummaryFolder, err = s.stringSetting(ctx, keySummaryFolder, out.SummaryFolder)
	if err != nil {
		return out, err
	}

	s.sanitize(&out)
	return out, nil
}

// sanitize clamps misconfigured values to safe defaults. Scheduling must
// never fail to arm because a row holds garbage.
func (s *Service) sanitize(st *Settings) {
	def := Defaults()
	if st.ReminderLeadMinutes <= 0 {
		st.ReminderLeadMinutes = def.ReminderLeadMinutes
	}
	if st.OverdueWindowMinutes <= 0 {
		st.OverdueWindowMinutes = def.OverdueWindowMinutes
	}
	if st.SummaryWeeklyDay < 0 || st.SummaryWeeklyDay > 6 {
		s.log.Warn("invalid weekly summary day, using default", "value", st.SummaryWeeklyDay)
		st.SummaryWeeklyDay = def.SummaryWeeklyDay
	}
	if st.SummaryMonthlyDay != storage.MonthlyLastDay && (st.SummaryMonthlyDay < 1 || st.SummaryMonthlyDay > 28) {
		s.log.Warn("invalid monthly summary day, using default", "value", st.SummaryMonthlyDay)
		st.SummaryMonthlyDay = def.SummaryMonthlyDay
	}
	if _, _, err := clock.ParseClock(st.SummaryTime); err != nil {
		s.log.Warn("invalid summary time, using default", "value", st.SummaryTime)
		st.SummaryTime = def.SummaryTime
	}
}

func (s *Service) SetReminderLeadMinutes(ctx context.Context, v int) error {
	return s.store.SetSetting(ctx, keyReminderLeadMinutes, strconv.Itoa(v))
}

func (s *Service) SetOverdueWindowMinutes(ctx context.Context, v int) error {
	return s.store.SetSetting(ctx, keyOverdueWindowMinutes, strconv.Itoa(v))
}

func (s *Service) SetSummaryTime(ctx context.Context, hhmm string) error {
	if _, _, err := clock.ParseClock(hhmm); err != nil {
		return fmt.Errorf("invalid summary time %q: %w", hhmm, err)
	}
	return s.store.SetSetting(ctx, keySummaryTime, hhmm)
}

func (s *Service) SetSummaryFolder(ctx context.Context, dir string) error {
	return s.store.SetSetting(ctx, keySummaryFolder, dir)
}

// LastRollover returns the date of the last completed rollover, reported
// at local midnight. ok is false when no rollover has been recorded.
func (s *Service) LastRollover(ctx context.Context) (time.Time, bool, error) {
	raw, found, err := s.store.GetSetting(ctx, keyLastRolloverDate)
	if err != nil || !found {
		return time.Time{}, false, err
	}
	d, err := clock.ParseDate(raw)
	if err != nil {
		s.log.Warn("unreadable last rollover date, treating as unset", "value", raw)
		return time.Time{}, false, nil
	}
	return d, true, nil
}

func (s *Service) SetLastRollover(ctx context.Context, day time.Time) error {
	return s.store.SetSetting(ctx, keyLastRolloverDate, clock.DateOf(day))
}

func (s *Service) intSetting(ctx context.Context, key string, def int) (int, error) {
	raw, found, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return def, err
	}
	if !found {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		s.log.Warn("unparsable setting, using default", "key", key, "value", raw)
		return def, nil
	}
	return v, nil
}

func (s *Service) boolSetting(ctx context.Context, key string, def bool) (bool, error) {
	raw, found, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return def, err
	}
	if !found {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		s.log.Warn("unparsable setting, using default", "key", key, "value", raw)
		return def, nil
	}
	return v, nil
}

func (s *Service) stringSetting(ctx context.Context, key, def string) (string, error) {
	raw, found, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return def, err
	}
	if !found {
		return def, nil
	}
	return raw, nil
}
