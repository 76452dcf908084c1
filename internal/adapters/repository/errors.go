package repository

import "errors"

// Sentinel kinds for history errors.
var (
	ErrClosed        = errors.New("history store closed")
	ErrInvalidResult = errors.New("invalid prediction result")
)
