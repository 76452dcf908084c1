package repository

import (
	"time"

	model "github.com/okian/rulcast/internal/domain/model"
)

// Option applies a configuration option to the InMemoryHistory.
type Option func(*InMemoryHistory)

// WithCapacityHint preallocates room for n entries.
func WithCapacityHint(n int) Option {
	return func(h *InMemoryHistory) {
		if n > 0 {
			h.entries = make([]model.HistoryEntry, 0, n)
		}
	}
}

// WithClock overrides the timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(h *InMemoryHistory) {
		if now != nil {
			h.now = now
		}
	}
}
