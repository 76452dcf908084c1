// Package repository holds the per-session prediction history.
package repository

import (
	"context"

	model "github.com/okian/rulcast/internal/domain/model"
)

// HistoryStore is an append-only, arrival-ordered log of successful predictions.
type HistoryStore interface {
	// Append stores result at the end of the log and returns the stored entry.
	Append(ctx context.Context, requestID string, result model.PredictionResult) (model.HistoryEntry, error)

	// All returns a copy of every entry in arrival order.
	All(ctx context.Context) []model.HistoryEntry

	// Len returns the number of stored entries.
	Len(ctx context.Context) int

	// Close releases the store; further appends fail with ErrClosed.
	Close() error
}
