package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("incident queue full")
	ErrClosed = errors.New("incident queue closed")
)
