package rest

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for vendor calls.
var (
	ErrTransport   = errors.New("vendor transport failed")
	ErrCircuitOpen = errors.New("vendor circuit open")
	ErrBadStatus   = errors.New("vendor returned unexpected status")
	ErrDecode      = errors.New("vendor response decode failed")

	errServerStatus = errors.New("vendor server error")
)

// StatusError reports a non-2xx vendor response. It matches ErrBadStatus.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d", ErrBadStatus, e.StatusCode)
	}
	return fmt.Sprintf("%s: %d: %s", ErrBadStatus, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrBadStatus }
