// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and RULCAST_* environment variables on top.
// - Validation failures wrap ErrInvalidConfig, source failures wrap ErrLoadConfig.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// PredictorURL is the prediction service endpoint receiving POSTed readings.
	PredictorURL string `koanf:"predictor_url"`

	// PredictorTimeoutMS bounds one prediction round trip. Zero leaves the
	// request unbounded and a session may then stay pending indefinitely.
	PredictorTimeoutMS int `koanf:"predictor_timeout_ms"`

	// DispatchQueueSize bounds the number of prediction jobs waiting for a worker.
	DispatchQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of dispatch workers calling the prediction service.
	WorkerCount int `koanf:"worker_count"`

	// MaxSessions caps concurrently held sessions; the least recently used one is evicted.
	MaxSessions int `koanf:"max_sessions"`

	// SessionIdleTTLSec closes sessions untouched for this long. Zero disables expiry.
	SessionIdleTTLSec int `koanf:"session_idle_ttl_s"`

	// NotificationBuffer bounds each session's undelivered notifications.
	NotificationBuffer int `koanf:"notification_buffer"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		PredictorURL:       "http://127.0.0.1:5000/predict",
		PredictorTimeoutMS: 0,
		DispatchQueueSize:  1024,
		WorkerCount:        runtime.NumCPU() * 2,
		MaxSessions:        1000,
		SessionIdleTTLSec:  1800,
		NotificationBuffer: 32,
	}
}

// PredictorTimeout returns PredictorTimeoutMS as a duration.
func (c *Config) PredictorTimeout() time.Duration {
	return time.Duration(c.PredictorTimeoutMS) * time.Millisecond
}

// SessionIdleTTL returns SessionIdleTTLSec as a duration.
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleTTLSec) * time.Second
}
