package model

import "errors"

// Failure classes reported by a prediction service adapter.
var (
	ErrPredictionService = errors.New("prediction service error")
	ErrMalformedResponse = errors.New("malformed prediction response")
)
