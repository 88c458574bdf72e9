package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"agenda/internal/google"
	"agenda/internal/models"
)

func googleAuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "google-auth",
		Usage: "Authenticate with a Google account to import its events.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Account name used for the token file, e.g. 'personal' or 'work'."},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			e.logger.Info("Starting Google authentication flow.")

			config, err := google.GetOAuthConfigForAuthFlow(e.cfg.Google.ClientID, e.cfg.Google.ClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			accountName := c.String("name")
			if accountName == "" {
				fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
				accountName, _ = reader.ReadString('\n')
				accountName = strings.TrimSpace(accountName)
			}
			if accountName == "" {
				return cli.Exit("account name must not be empty", 2)
			}

			if err := os.MkdirAll(e.cfg.Google.TokenDir, 0o700); err != nil {
				return fmt.Errorf("failed to create token directory: %w", err)
			}
			tokenFile := google.TokenPath(e.cfg.Google.TokenDir, accountName)
			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			e.logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		}),
	}
}

func importGoogleCommand() *cli.Command {
	return &cli.Command{
		Name:  "import-google",
		Usage: "Create events from the upcoming events of every authenticated Google account.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Usage: "How far ahead to import. Defaults to google.days from the config."},
			&cli.BoolFlag{Name: "discover", Usage: "List the calendars of each account instead of importing."},
		},
		Action: withWorkspace(func(c *cli.Context, e *env, w *workspace) error {
			accounts, err := google.TokenAccounts(e.cfg.Google.TokenDir)
			if err != nil {
				return fmt.Errorf("could not find any google accounts, did you run google-auth? %w", err)
			}
			if len(accounts) == 0 {
				return fmt.Errorf("no google accounts found. Run the 'google-auth' command first")
			}

			days := e.cfg.Google.Days
			if c.IsSet("days") {
				days = c.Int("days")
			}

			var drafts []models.EventDraft
			for _, acc := range accounts {
				client, err := google.NewClient(c.Context, e.logger, e.cfg.Google.ClientID, e.cfg.Google.ClientSecret, e.cfg.Google.TokenDir, acc)
				if err != nil {
					return fmt.Errorf("failed to create google client for account %s: %w", acc, err)
				}

				if c.Bool("discover") {
					ids, err := client.Calendars(c.Context)
					if err != nil {
						return err
					}
					for _, id := range ids {
						fmt.Printf("%s\t%s\n", acc, id)
					}
					continue
				}

				for _, calID := range e.cfg.Google.CalendarIDs {
					got, err := client.UpcomingDrafts(c.Context, calID, days, time.Now(), e.loc)
					if err != nil {
						e.logger.Error("Failed to fetch google events", "account", acc, "calendar", calID, "error", err)
						continue
					}
					drafts = append(drafts, got...)
				}
			}
			if c.Bool("discover") {
				return nil
			}
			e.logger.Info("Fetched google events.", "accounts", len(accounts), "count", len(drafts))
			return createAll(c.Context, e, w, drafts)
		}),
	}
}
