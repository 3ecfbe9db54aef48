package scim

import "errors"

// Sentinel error kinds for SCIM handling.
var (
	ErrInvalidSCIM   = errors.New("SCIM data is not a valid JSON")
	ErrInvalidFilter = errors.New("invalid scim filter")
)
