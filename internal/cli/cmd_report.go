package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dayplan/internal/report"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate or list digest reports",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "weekly",
		Short: "Write the digest for the previous week now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateReport(cmd, report.PeriodWeekly)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "monthly",
		Short: "Write the digest for the previous month now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateReport(cmd, report.PeriodMonthly)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List generated digests",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			gen := report.NewGenerator(a.store, a.settings, a.clk, a.sink, a.log, a.cfg.SummariesDir)
			artifacts, err := gen.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, art := range artifacts {
				fmt.Printf("%-8s %-10s %s\n", art.Type, art.PeriodID, art.Path)
			}
			return nil
		},
	})
	return cmd
}

func generateReport(cmd *cobra.Command, typ report.PeriodType) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	gen := report.NewGenerator(a.store, a.settings, a.clk, a.sink, a.log, a.cfg.SummariesDir)

	var art report.Artifact
	if typ == report.PeriodWeekly {
		art, err = gen.WeeklyNow(cmd.Context())
	} else {
		art, err = gen.MonthlyNow(cmd.Context())
	}
	if err != nil {
		return err
	}
	fmt.Println(art.Path)
	return nil
}
