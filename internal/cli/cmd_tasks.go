package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dayplan/internal/storage"
)

func newTasksCmd() *cobra.Command {
	var listName string

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List active tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var tasks []storage.Task
			switch listName {
			case "":
				tasks, err = a.store.AllTasks(cmd.Context())
			case "today":
				tasks, err = a.store.ListTasks(cmd.Context(), storage.ListToday)
			case "future":
				tasks, err = a.store.ListTasks(cmd.Context(), storage.ListFuture)
			default:
				return fmt.Errorf("unknown list %q (want today or future)", listName)
			}
			if err != nil {
				return err
			}

			for _, t := range tasks {
				mark := " "
				if t.Completed {
					mark = "x"
				}
				when := ""
				if t.ScheduledAt.Valid {
					when = t.ScheduledAt.Time.Local().Format("15:04")
				}
				fmt.Printf("[%s] %-6s %2d  %-5s  %s\n", mark, t.List, t.SortIndex, when, t.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listName, "list", "", "restrict to one list: today or future")
	return cmd
}
