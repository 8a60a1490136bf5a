package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dayplan/internal/clock"
	"dayplan/internal/rules"
)

func newGenerateCmd() *cobra.Command {
	var dateStr string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Materialize recurring tasks for a date (default today)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			date := clock.StartOfDay(a.clk.Now())
			if dateStr != "" {
				date, err = clock.ParseDate(dateStr)
				if err != nil {
					return fmt.Errorf("invalid date %q: %w", dateStr, err)
				}
			}

			eval := rules.NewEvaluator(a.log)
			res, err := eval.GenerateForDate(cmd.Context(), a.store, date)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d created, %d skipped\n", clock.DateOf(date), res.Created, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&dateStr, "date", "", "date to evaluate (YYYY-MM-DD)")
	return cmd
}
