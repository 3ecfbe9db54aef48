package service

import "errors"

// Sentinel kinds for command dispatch.
var (
	ErrUnknownIntegration = errors.New("unknown integration")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrCommandPanic       = errors.New("command panicked")
)
