package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dayplan/internal/rollover"
)

func newRolloverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollover",
		Short: "Archive completed tasks and materialize today's recurring tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			engine := rollover.NewEngine(a.store, a.settings, a.clk, a.sink, a.log)
			out, err := engine.Perform(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("rollover for %s: %d archived, %d carried over, %d recurring created (%d skipped)\n",
				out.ArchiveDate, out.Archived, out.CarriedOver, out.Recurring.Created, out.Recurring.Skipped)
			return nil
		},
	}
}
