package submission

import model "github.com/okian/rulcast/internal/domain/model"

// Phase is the submission lifecycle position.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// FailureKind classifies why a submission failed.
type FailureKind string

const (
	FailureValidation FailureKind = "validation"
	FailureBusy       FailureKind = "busy"
	FailureService    FailureKind = "service"
	FailureMalformed  FailureKind = "malformed"
	FailureCancelled  FailureKind = "cancelled"
	FailureInternal   FailureKind = "internal"
)

// Failure describes a Failed submission.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Keys    []string    `json:"keys,omitempty"`
}

// State is a copy of the controller's current state.
// Result is set only in PhaseSucceeded and Failure only in PhaseFailed.
type State struct {
	Phase     Phase                   `json:"phase"`
	Seq       uint64                  `json:"seq"`
	RequestID string                  `json:"request_id,omitempty"`
	Result    *model.PredictionResult `json:"result,omitempty"`
	Failure   *Failure                `json:"failure,omitempty"`
}

// Pending reports whether a request is in flight.
func (s State) Pending() bool { return s.Phase == PhasePending }
