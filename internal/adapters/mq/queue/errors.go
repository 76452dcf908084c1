package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrClosed = errors.New("dispatch queue closed")
	ErrFull   = errors.New("dispatch queue full")
)
