package submission

import "errors"

// Sentinel kinds returned by Submit.
var (
	// ErrInFlight means a request is already pending; nothing was dispatched.
	ErrInFlight = errors.New("submission already in flight")
	// ErrBusy means the dispatch queue refused the job.
	ErrBusy = errors.New("prediction dispatch busy")
	// ErrClosed means the controller was closed; nothing was dispatched.
	ErrClosed = errors.New("submission controller closed")
)
