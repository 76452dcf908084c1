package predictor

import (
	"fmt"

	model "github.com/okian/rulcast/internal/domain/model"
)

// Sentinel kinds for prediction failures; aliases of the model sentinels.
var (
	ErrService           = model.ErrPredictionService
	ErrMalformedResponse = model.ErrMalformedResponse
)

// ServiceError reports a transport failure (StatusCode 0) or a non-2xx status.
type ServiceError struct {
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("prediction service unreachable: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("prediction service returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("prediction service returned status %d", e.StatusCode)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func (e *ServiceError) Is(target error) bool { return target == ErrService }

// Network reports whether the request never produced an HTTP status.
func (e *ServiceError) Network() bool { return e.StatusCode == 0 }

// MalformedResponseError reports a 2xx response that is not a prediction result.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed prediction response: " + e.Reason
}

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }
