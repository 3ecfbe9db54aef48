package types

import "errors"

// Sentinel error kinds shared by command implementations.
var (
	// ErrInvalidArgument marks bad or missing command arguments.
	ErrInvalidArgument = errors.New("invalid argument")
)
