package repository

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	model "github.com/okian/rulcast/internal/domain/model"
	"github.com/okian/rulcast/pkg/metrics"
)

// InMemoryHistory is a slice-backed HistoryStore.
//
// Readers get copies, so entries handed out are never changed by later appends.
type InMemoryHistory struct {
	mu      sync.RWMutex
	entries []model.HistoryEntry
	closed  bool
	now     func() time.Time
}

// NewInMemoryHistory constructs an empty history.
func NewInMemoryHistory(opts ...Option) *InMemoryHistory {
	h := &InMemoryHistory{now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Append implements HistoryStore.
func (h *InMemoryHistory) Append(_ context.Context, requestID string, result model.PredictionResult) (model.HistoryEntry, error) {
	if math.IsNaN(result.PredictedRUL) || math.IsInf(result.PredictedRUL, 0) {
		metrics.RecordErrorByComponent("repository", "invalid_result")
		return model.HistoryEntry{}, fmt.Errorf("%w: predicted_rul is not finite", ErrInvalidResult)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return model.HistoryEntry{}, ErrClosed
	}
	e := model.HistoryEntry{
		Index:            len(h.entries) + 1,
		RequestID:        requestID,
		At:               h.now().UTC(),
		PredictionResult: result,
	}
	h.entries = append(h.entries, e)
	metrics.AddHistoryEntries(1)
	return e, nil
}

// All implements HistoryStore.
func (h *InMemoryHistory) All(_ context.Context) []model.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]model.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len implements HistoryStore.
func (h *InMemoryHistory) Len(_ context.Context) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Close implements HistoryStore. The gauge is reduced by the dropped entries.
func (h *InMemoryHistory) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	metrics.AddHistoryEntries(-len(h.entries))
	return nil
}
