package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var day string
	var search string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse archived tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if day == "" {
				days, err := a.store.DistinctHistoryDays(cmd.Context(), 90, 0)
				if err != nil {
					return err
				}
				for _, d := range days {
					fmt.Printf("%s  %d cleared\n", d.Date, d.Count)
				}
				return nil
			}

			items, err := a.store.HistoryByDay(cmd.Context(), day, search)
			if err != nil {
				return err
			}
			for _, item := range items {
				done := ""
				if item.CompletedAt.Valid {
					done = item.CompletedAt.Time.Local().Format("15:04")
				}
				fmt.Printf("%-6s %-5s  %s\n", item.SourceList, done, item.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "show tasks cleared on a date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&search, "search", "", "filter titles (with --day)")
	return cmd
}
