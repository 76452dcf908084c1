// Package simulate drives prediction sessions through the HTTP API and checks
// that every session's history and aggregates stay consistent.
package simulate

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL      string        // Base URL of the service; ignored when Embedded
	Sessions     int           // Number of sessions to open
	Submissions  int           // Submissions per session
	Workers      int           // Sessions driven concurrently
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between snapshot polls while pending
	Seed         uint64        // Reading generator seed; 0 picks one from the clock
	Embedded     bool          // Run the service in-process against a fake predictor
	FailEvery    int           // Embedded fake predictor answers 503 on every Nth request
	Verbose      bool          // Log every submission outcome
}

// DefaultConfig returns the values the CLI starts from.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:9080",
		Sessions:     10,
		Submissions:  5,
		Workers:      4,
		Timeout:      10 * time.Second,
		PollInterval: 50 * time.Millisecond,
	}
}

// Validate rejects configurations that cannot run.
func (c Config) Validate() error {
	switch {
	case !c.Embedded && c.BaseURL == "":
		return fmt.Errorf("%w: url must be set unless embedded", ErrInvalidConfig)
	case c.Sessions < 1:
		return fmt.Errorf("%w: sessions must be positive", ErrInvalidConfig)
	case c.Submissions < 1:
		return fmt.Errorf("%w: submissions must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	case c.FailEvery < 0:
		return fmt.Errorf("%w: fail-every must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	SessionsOpened int
	SessionsClosed int
	Submitted      int
	Succeeded      int
	Failed         int
	FailuresByKind map[string]int
	HistoryEntries int
	Distribution   map[string]int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
