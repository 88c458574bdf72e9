package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
)

func remindCommand() *cli.Command {
	return &cli.Command{
		Name:  "remind",
		Usage: "Push reminder notifications for events starting soon.",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "lead", Usage: "Look-ahead window. Defaults to reminders.lead from the config."},
			&cli.BoolFlag{Name: "watch", Usage: "Keep running and check on the reminders.schedule cron expression."},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			lead, err := e.cfg.ReminderLead()
			if err != nil {
				return err
			}
			if c.IsSet("lead") {
				lead = c.Duration("lead")
			}

			if !c.Bool("watch") {
				e.logger.Info("Running a single reminder cycle.")
				n, err := remindOnce(c.Context, e, lead)
				if err != nil {
					return err
				}
				fmt.Printf("Pushed %d reminder(s).\n", n)
				return nil
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			scheduler := cron.New()
			_, err = scheduler.AddFunc(e.cfg.Reminders.Schedule, func() {
				if _, err := remindOnce(ctx, e, lead); err != nil {
					e.logger.Error("Reminder cycle failed", "error", err)
				}
			})
			if err != nil {
				return fmt.Errorf("invalid reminder schedule %q: %w", e.cfg.Reminders.Schedule, err)
			}

			e.logger.Info("Starting reminder watcher.", "schedule", e.cfg.Reminders.Schedule, "lead", lead)
			scheduler.Start()
			<-ctx.Done()
			<-scheduler.Stop().Done()
			e.logger.Info("Reminder watcher stopped.")
			return nil
		}),
	}
}

// remindOnce reloads the workspace so each cycle sees changes made by
// other processes since the last one.
func remindOnce(ctx context.Context, e *env, lead time.Duration) (int, error) {
	w, err := e.workspace(ctx)
	if err != nil {
		return 0, err
	}
	return w.events.Remind(ctx, time.Now(), lead)
}
