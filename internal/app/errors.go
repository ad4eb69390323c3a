package service

import "errors"

var (
	// ErrInvalidRequest is returned for malformed operation inputs.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotLatest is returned when deploying a run that is not the newest one.
	ErrNotLatest = errors.New("run not latest or missing")
	// ErrNotApproved is returned when deploying a run that has not been approved.
	ErrNotApproved = errors.New("model not approved")
	// ErrSignatureInvalid is returned when the artifact no longer matches its signature.
	ErrSignatureInvalid = errors.New("signature invalid")
	// ErrNoRollbackTarget is returned when no earlier approved, verified run exists.
	ErrNoRollbackTarget = errors.New("no previous model")
	// ErrNoDeployedModel is returned when nothing has been deployed yet.
	ErrNoDeployedModel = errors.New("no deployed model")
	// ErrNoModels is returned when the registry is empty.
	ErrNoModels = errors.New("no models")
	// ErrRunNotFound is returned for unknown run ids.
	ErrRunNotFound = errors.New("run not found")
)
