package ratings

import "errors"

// Sentinel error kinds for the SecurityScorecard commands.
var (
	ErrAuthorization = errors.New("authorization error")
)
