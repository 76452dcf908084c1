package submission

import (
	"time"

	"github.com/okian/rulcast/pkg/logger"
)

// Option configures a Controller.
type Option func(*Controller)

// WithSessionID tags dispatched jobs and log lines with the owning session.
func WithSessionID(id string) Option {
	return func(c *Controller) { c.sessionID = id }
}

// WithNotifier registers the callback receiving success and failure notifications.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notify = n
		}
	}
}

// WithIDGenerator overrides request and notification id generation.
func WithIDGenerator(gen func() string) Option {
	return func(c *Controller) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// WithClock overrides the notification timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}
