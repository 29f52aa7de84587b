package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"postwmt/internal/google"
	"postwmt/internal/icloud"
	"postwmt/internal/ics"
	"postwmt/internal/models"
	"postwmt/internal/schedule"
	"postwmt/internal/syncer"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "postwmt",
		Usage: "Turn a pasted work-schedule text block into calendar events.",
		Commands: []*cli.Command{
			authCommand(),
			icsCommand(),
			syncCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			config, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
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

			token, err := google.TokenFromWeb(config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := "token-" + accountName + ".json"

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func icsCommand() *cli.Command {
	return &cli.Command{
		Name:  "ics",
		Usage: "Parse schedule text and write a standalone .ics file.",
		Flags: append(pipelineFlags(),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "schedule.ics", Usage: "Path of the .ics file to write."},
		),
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			events, batch, err := runPipeline(c, logger)
			if err != nil {
				return err
			}

			content, err := ics.Encode(events)
			if err != nil {
				return fmt.Errorf("failed to encode calendar file: %w", err)
			}
			if err := os.WriteFile(c.String("output"), []byte(content), 0644); err != nil {
				return fmt.Errorf("failed to write calendar file: %w", err)
			}

			fmt.Printf("Parsed %d entries (%d lines ignored), wrote %d events to %s\n",
				len(batch.Entries), batch.Ignored, len(events), c.String("output"))
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Parse schedule text and reconcile the events into a remote calendar.",
		Flags: append(pipelineFlags(),
			&cli.StringFlag{Name: "provider", Value: "google", Usage: "Remote calendar provider: google or icloud."},
			&cli.StringFlag{Name: "account", Usage: "Google account name used during 'auth'; auto-detected when only one token exists."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be synced without making changes."},
		),
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			events, batch, err := runPipeline(c, logger)
			if err != nil {
				return err
			}

			loc, err := scheduleLocation(c)
			if err != nil {
				return err
			}

			var remote syncer.RemoteCalendar
			switch c.String("provider") {
			case "google":
				var account string
				account, err = google.ResolveAccount(c.String("account"))
				if err != nil {
					return err
				}
				remote, err = google.NewClient(c.Context, logger,
					os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"),
					account, os.Getenv("GOOGLE_CALENDAR_ID"))
			case "icloud":
				remote, err = icloud.NewClient(logger,
					os.Getenv("ICLOUD_USERNAME"), os.Getenv("ICLOUD_APP_SPECIFIC_PASSWORD"),
					os.Getenv("ICLOUD_CALENDAR_NAME"))
			default:
				return fmt.Errorf("unknown provider %q", c.String("provider"))
			}
			if err != nil {
				return fmt.Errorf("failed to create %s client: %w", c.String("provider"), err)
			}

			r := syncer.New(logger, remote, loc, c.Bool("dry-run"))
			report, err := r.Reconcile(c.Context, events)
			if err != nil {
				return fmt.Errorf("reconciliation failed: %w", err)
			}

			fmt.Printf("Parsed %d entries (%d lines ignored), synthesized %d events: %s\n",
				len(batch.Entries), batch.Ignored, len(events), report.Summary())
			for _, f := range report.Failures {
				fmt.Printf("  %s %s: %v\n", f.Op, f.Target, f.Err)
			}
			return nil
		},
	}
}

func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Schedule text file to read; stdin when omitted."},
		&cli.IntFlag{Name: "year", Usage: "Reference year for dates without one; defaults to the current year."},
		&cli.StringFlag{Name: "tz", Usage: "Schedule timezone.", Value: schedule.DefaultTimezone, EnvVars: []string{"SCHEDULE_TZ"}},
	}
}

// runPipeline reads the schedule text and runs it through parsing,
// interpretation and synthesis, logging per-line warnings as it goes.
func runPipeline(c *cli.Context, logger *slog.Logger) ([]models.Event, *schedule.Batch, error) {
	text, err := readScheduleText(c.String("input"))
	if err != nil {
		return nil, nil, err
	}

	loc, err := scheduleLocation(c)
	if err != nil {
		return nil, nil, err
	}

	batch, err := schedule.Parse(text, schedule.Options{ReferenceYear: c.Int("year")})
	if err != nil {
		return nil, nil, fmt.Errorf("could not parse any valid entries from the text provided: %w", err)
	}

	events := schedule.SynthesizeBatch(batch, loc)
	for _, w := range batch.Warnings {
		logger.Warn("Schedule line skipped.", "line", w.Line, "reason", w.Message)
	}
	for _, ev := range events {
		for _, w := range ev.Warnings {
			logger.Warn("Event has a timezone edge case.", "title", ev.Title, "warning", w)
		}
	}

	logger.Info("Schedule parsed.",
		"entries", len(batch.Entries), "ignored", batch.Ignored, "events", len(events))
	return events, batch, nil
}

func scheduleLocation(c *cli.Context) (*time.Location, error) {
	loc, err := time.LoadLocation(c.String("tz"))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.String("tz"), err)
	}
	return loc, nil
}

func readScheduleText(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read schedule text from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read schedule text: %w", err)
	}
	return string(data), nil
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
