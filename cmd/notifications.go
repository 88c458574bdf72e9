package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"agenda/internal/models"
)

func notificationsCommand() *cli.Command {
	return &cli.Command{
		Name:    "notifications",
		Aliases: []string{"n"},
		Usage:   "List and acknowledge notifications.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List notifications, newest first.",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "unread", Usage: "Only unread notifications."},
					&cli.StringFlag{Name: "type", Usage: "Only notifications of this type: info, success, warning or error."},
				},
				Action: withWorkspace(func(c *cli.Context, e *env, w *workspace) error {
					var only models.NotificationType
					if c.IsSet("type") {
						t, err := models.ParseNotificationType(c.String("type"))
						if err != nil {
							return err
						}
						only = t
					}

					tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tTYPE\tREAD\tCREATED\tTITLE\tMESSAGE")
					for _, n := range w.notes.List() {
						if c.Bool("unread") && n.Read {
							continue
						}
						if only != "" && n.Type != only {
							continue
						}
						fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n", n.ID, n.Type, n.Read,
							n.CreatedAt.In(e.loc).Format(time.DateTime), n.Title, n.Message)
					}
					if err := tw.Flush(); err != nil {
						return err
					}
					fmt.Printf("%d unread.\n", w.notes.UnreadCount())
					return nil
				}),
			},
			{
				Name:      "read",
				Usage:     "Mark notifications as read.",
				ArgsUsage: "<id>...",
				Action: withWorkspace(func(c *cli.Context, _ *env, w *workspace) error {
					if c.NArg() == 0 {
						return cli.Exit("usage: agenda notifications read <id>...", 2)
					}
					for _, id := range c.Args().Slice() {
						if err := w.notes.MarkRead(c.Context, id); err != nil {
							return err
						}
					}
					fmt.Printf("%d unread.\n", w.notes.UnreadCount())
					return nil
				}),
			},
			{
				Name:  "read-all",
				Usage: "Mark every notification as read.",
				Action: withWorkspace(func(c *cli.Context, _ *env, w *workspace) error {
					n, err := w.notes.MarkAllRead(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Marked %d notification(s) as read.\n", n)
					return nil
				}),
			},
		},
	}
}
