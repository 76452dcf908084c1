package service

import (
	"time"

	workerpool "github.com/okian/rulcast/internal/adapters/mq/worker"
	"github.com/okian/rulcast/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of dispatch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of waiting prediction jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxSessions caps the number of live sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithSessionIdleTTL closes sessions untouched for d. Zero disables expiry.
func WithSessionIdleTTL(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.idleTTL = d
		}
	}
}

// WithNotificationBuffer bounds each session's undelivered notifications.
func WithNotificationBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.notificationBuffer = n
		}
	}
}

// WithPredictorURL sets the prediction service endpoint.
func WithPredictorURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.predictorURL = url
		}
	}
}

// WithPredictorTimeout bounds each prediction round trip. Zero means no bound.
func WithPredictorTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.predictorTimeout = d
		}
	}
}

// WithPredictor replaces the HTTP prediction client, mainly for tests.
func WithPredictor(p workerpool.Predictor) Option {
	return func(s *Service) {
		if p != nil {
			s.predictor = p
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
