// Package cli implements the dayplan command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dayplan",
	Short: "Time-driven lifecycle engine for a personal task planner",
	Long: `dayplan keeps a task planner moving as real time passes: it archives
completed tasks at midnight, materializes recurring tasks on schedule,
raises due-time reminders and writes weekly/monthly digests.

Quick start:
  dayplan run               Run the daemon (rollover, reminders, digests)
  dayplan rollover          Trigger a rollover by hand
  dayplan generate          Materialize today's recurring tasks
  dayplan report weekly     Write last week's digest now`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the per-user config dir)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newRolloverCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newRulesCmd())
}
