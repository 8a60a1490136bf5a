package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dayplan/internal/storage"
)

var weekdayBits = map[string]int{
	"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
}

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage recurring task rules",
	}
	cmd.AddCommand(newRulesListCmd())
	cmd.AddCommand(newRulesAddCmd())
	cmd.AddCommand(newRulesEnableCmd("enable", true))
	cmd.AddCommand(newRulesEnableCmd("disable", false))
	cmd.AddCommand(newRulesDeleteCmd())
	return cmd
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rules, err := a.store.ListRules(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range rules {
				state := "enabled"
				if !r.Enabled {
					state = "disabled"
				}
				fmt.Printf("%s  %-8s %-8s %-12s %s\n",
					r.ID, state, r.Cadence, cadenceLabel(r), r.Title)
			}
			return nil
		},
	}
}

func newRulesAddCmd() *cobra.Command {
	var weekly string
	var monthly int
	var timeOfDay string
	var notes string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a recurring rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (weekly == "") == (monthly == 0) {
				return fmt.Errorf("exactly one of --weekly or --monthly is required")
			}

			in := storage.RuleInput{
				Title:     args[0],
				Notes:     notes,
				TimeOfDay: timeOfDay,
				Enabled:   true,
			}
			if weekly != "" {
				mask, err := parseWeekdays(weekly)
				if err != nil {
					return err
				}
				in.Cadence = storage.CadenceWeekly
				in.WeekdaysMask = mask
			} else {
				if monthly != storage.MonthlyLastDay && (monthly < 1 || monthly > 28) {
					return fmt.Errorf("--monthly must be 1..28 or -1 for the last day")
				}
				in.Cadence = storage.CadenceMonthly
				in.MonthlyDay = monthly
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rule, err := a.store.CreateRule(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Println(rule.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&weekly, "weekly", "", "comma-separated weekdays, e.g. mon,wed,fri")
	cmd.Flags().IntVar(&monthly, "monthly", 0, "day of month (1..28) or -1 for the last day")
	cmd.Flags().StringVar(&timeOfDay, "time", "", "fixed time of day (HH:MM)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes carried onto generated tasks")
	return cmd
}

func newRulesEnableCmd(use string, enabled bool) *cobra.Command {
	short := "Enable a rule"
	if !enabled {
		short = "Disable a rule"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rules, err := a.store.ListRules(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range rules {
				if r.ID != args[0] {
					continue
				}
				in := storage.RuleInput{
					Title:        r.Title,
					Notes:        r.Notes,
					Cadence:      r.Cadence,
					WeekdaysMask: r.WeekdaysMask,
					MonthlyDay:   r.MonthlyDay,
					TimeOfDay:    r.TimeOfDay,
					Enabled:      enabled,
				}
				return a.store.UpdateRule(cmd.Context(), r.ID, in)
			}
			return storage.ErrNotFound
		},
	}
}

func newRulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.store.DeleteRule(cmd.Context(), args[0])
		},
	}
}

func parseWeekdays(s string) (int, error) {
	mask := 0
	for _, part := range strings.Split(s, ",") {
		bit, ok := weekdayBits[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return 0, fmt.Errorf("unknown weekday %q", part)
		}
		mask |= 1 << bit
	}
	return mask, nil
}

func cadenceLabel(r storage.RecurringRule) string {
	if r.Cadence == storage.CadenceMonthly {
		if r.MonthlyDay == storage.MonthlyLastDay {
			return "last day"
		}
		return fmt.Sprintf("day %d", r.MonthlyDay)
	}
	var days []string
	order := []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}
	for _, name := range order {
		if r.WeekdaysMask&(1<<weekdayBits[name]) != 0 {
			days = append(days, name)
		}
	}
	return strings.Join(days, ",")
}
