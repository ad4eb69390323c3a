package repository

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrNotFound     = errors.New("model run not found")
	ErrNotApproved  = errors.New("model run not approved")
	ErrDuplicateRun = errors.New("model run already registered")
	ErrInvalidRun   = errors.New("invalid model run")
)
