package clarizen

import "errors"

// Sentinel error kinds for the Clarizen client.
var (
	ErrLogin = errors.New("clarizen login failed")
)
