// Package model contains domain models passed between layers.
package model

import (
	"context"
	"time"
)

// NoFailureLabel stands in for an absent or empty failure type.
const NoFailureLabel = "None"

// PredictionResult is the diagnosis returned by the prediction service.
type PredictionResult struct {
	FailureType  string  `json:"failure_type"`
	PredictedRUL float64 `json:"predicted_rul"`
}

// FailureLabel returns the failure type used for grouping, "None" when empty.
func (r PredictionResult) FailureLabel() string {
	if r.FailureType == "" {
		return NoFailureLabel
	}
	return r.FailureType
}

// HistoryEntry is a stored result tagged with its 1-based arrival index.
type HistoryEntry struct {
	Index     int       `json:"index"`
	RequestID string    `json:"request_id,omitempty"`
	At        time.Time `json:"at"`
	PredictionResult
}

// CompletionFunc receives the outcome of a dispatched job.
type CompletionFunc func(ctx context.Context, result PredictionResult, err error)

// Job is one prediction request handed to the dispatch workers.
type Job struct {
	ID        string             // request id, also sent as X-Request-ID
	SessionID string             // owning session
	Seq       uint64             // controller generation that issued the job
	Payload   map[string]float64 // serialized form, captured at submit time
	Done      CompletionFunc
}

// NotificationKind distinguishes toast styles.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationFailure NotificationKind = "failure"
)

// Notification is a one-shot message for the toast collaborator.
type Notification struct {
	ID      string           `json:"id"`
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	Seq     uint64           `json:"seq"`
	At      time.Time        `json:"at"`
}
