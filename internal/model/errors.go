package model

import "errors"

var (
	// ErrInvalidConfig reports a grid size, time limit or order mode out of range.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidState reports an operation on a session that is not running.
	ErrInvalidState = errors.New("invalid session state")
)
