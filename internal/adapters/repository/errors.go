package repository

import "errors"

// Sentinel kinds for checkpoint errors.
var (
	ErrNotFound = errors.New("checkpoint not found")
	ErrCorrupt  = errors.New("checkpoint corrupt")
	ErrBackend  = errors.New("checkpoint backend failed")
)
