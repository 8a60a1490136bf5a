package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dayplan/internal/remind"
	"dayplan/internal/report"
	"dayplan/internal/rollover"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the planner daemon until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			engine := rollover.NewEngine(a.store, a.settings, a.clk, a.sink, a.log)
			notifier := remind.NewNotifier(a.store, a.settings, a.clk, a.sink, a.log)
			generator := report.NewGenerator(a.store, a.settings, a.clk, a.sink, a.log, a.cfg.SummariesDir)
			scheduler := report.NewScheduler(generator, a.settings, a.clk, a.log)

			a.log.Info("daemon starting", "db", a.cfg.DBPath)

			// Repair any rollover gap before arming the timers.
			if out, ran, err := engine.CatchUp(ctx); err != nil {
				a.log.Error("rollover catch-up failed", "error", err)
			} else if ran {
				a.log.Info("rollover caught up", "date", out.ArchiveDate, "archived", out.Archived)
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return engine.Run(ctx) })
			g.Go(func() error { return notifier.Run(ctx) })
			g.Go(func() error { return scheduler.Run(ctx) })

			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				a.log.Info("daemon stopped")
				return nil
			}
			return err
		},
	}
}
