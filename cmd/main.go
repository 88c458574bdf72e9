package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "agenda",
		Usage: "Manage calendar events and notifications from the command line.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "agenda.yaml",
				Usage:   "Path to the YAML config file. Created with defaults on first run.",
				EnvVars: []string{"AGENDA_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "ephemeral",
				Usage: "Keep all data in memory for this run only. Combine with --as.",
			},
			&cli.StringFlag{
				Name:    "as",
				Usage:   "Log in with this email before running the command.",
				EnvVars: []string{"AGENDA_AS"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error).",
			},
		},
		Commands: []*cli.Command{
			loginCommand(),
			registerCommand(),
			logoutCommand(),
			whoamiCommand(),
			eventsCommand(),
			notificationsCommand(),
			remindCommand(),
			googleAuthCommand(),
		},
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
