package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "Log in with the email of a known account.",
		ArgsUsage: "<email>",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: agenda login <email>", 2)
			}
			user, err := e.auth.Login(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s <%s>.\n", user.DisplayName, user.Email)
			if e.policy().IsReadOnly(user.ID) {
				fmt.Println("This is a demo account: events cannot be modified.")
			}
			return nil
		}),
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:      "register",
		Usage:     "Create an account and log in.",
		ArgsUsage: "<email>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Display name. Defaults to the email's local part."},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: agenda register [--name NAME] <email>", 2)
			}
			user, err := e.auth.Register(c.Context, c.Args().First(), c.String("name"))
			if err != nil {
				return err
			}
			fmt.Printf("Account %s created for %s <%s>.\n", user.ID, user.DisplayName, user.Email)
			return nil
		}),
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the current user.",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if err := e.auth.Logout(c.Context); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the current user and unread notification count.",
		Action: withEnv(func(c *cli.Context, e *env) error {
			user, err := e.auth.Current(c.Context)
			if err != nil {
				return err
			}
			if user == nil {
				fmt.Println("Not logged in.")
				return nil
			}

			w, err := e.workspace(c.Context)
			if err != nil {
				return err
			}
			fmt.Printf("%s <%s> (%s)\n", user.DisplayName, user.Email, user.ID)
			if w.session.ReadOnly() {
				fmt.Println("Read-only account.")
			}
			fmt.Printf("%d unread notification(s), %d event(s) created, %d attending.\n",
				w.notes.UnreadCount(), len(w.events.Created()), len(w.events.Attending()))
			return nil
		}),
	}
}
