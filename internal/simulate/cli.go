package simulate

import (
	"fmt"
	"runtime"

	"github.com/okian/rulcast/pkg/logger"

	"github.com/urfave/cli/v2"
)

const envPrefix = "RULCAST_SIM_"

// NewApp builds the simulate command line.
func NewApp() *cli.App {
	def := DefaultConfig()
	return &cli.App{
		Name:  "simulate",
		Usage: "drive prediction sessions through the HTTP API and verify their histories",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: def.BaseURL, Usage: "base URL of the service", EnvVars: []string{envPrefix + "URL"}},
			&cli.IntFlag{Name: "sessions", Value: def.Sessions, Usage: "sessions to open"},
			&cli.IntFlag{Name: "submissions", Value: def.Submissions, Usage: "submissions per session"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU(), Usage: "sessions driven concurrently"},
			&cli.DurationFlag{Name: "timeout", Value: def.Timeout, Usage: "HTTP request timeout"},
			&cli.DurationFlag{Name: "poll", Value: def.PollInterval, Usage: "snapshot poll interval while a submission is pending"},
			&cli.Uint64Flag{Name: "seed", Usage: "reading generator seed (0 picks one)"},
			&cli.BoolFlag{Name: "embedded", Usage: "run the service in-process against a fake prediction endpoint"},
			&cli.IntFlag{Name: "fail-every", Usage: "with --embedded, answer every Nth prediction with 503"},
			&cli.StringFlag{Name: "log-format", Value: logger.FormatText, Usage: "text or json", EnvVars: []string{envPrefix + "LOG_FORMAT"}},
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{envPrefix + "LOG_LEVEL"}},
			&cli.BoolFlag{Name: "verbose", Usage: "log every submission outcome"},
		},
		Action: func(c *cli.Context) error {
			if err := logger.Init(logger.WithFormat(c.String("log-format")), logger.WithOutput(c.App.ErrWriter)); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			if err := logger.SetLevelString(c.String("log-level")); err != nil {
				return err
			}

			cfg := Config{
				BaseURL:      c.String("url"),
				Sessions:     c.Int("sessions"),
				Submissions:  c.Int("submissions"),
				Workers:      c.Int("workers"),
				Timeout:      c.Duration("timeout"),
				PollInterval: c.Duration("poll"),
				Seed:         c.Uint64("seed"),
				Embedded:     c.Bool("embedded"),
				FailEvery:    c.Int("fail-every"),
				Verbose:      c.Bool("verbose"),
			}
			stats, err := Run(c.Context, cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.App.Writer, "sessions=%d submitted=%d succeeded=%d failed=%d history=%d duration=%s\n",
				stats.SessionsOpened, stats.Submitted, stats.Succeeded, stats.Failed, stats.HistoryEntries, stats.Duration)
			return err
		},
	}
}
