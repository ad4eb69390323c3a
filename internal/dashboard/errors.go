package dashboard

import (
	"errors"
	"fmt"
)

var (
	// ErrRegionNotFound is returned when a display region id is missing from the page.
	ErrRegionNotFound = errors.New("display region not found")
	// ErrLoadInFlight is returned when Load is called while another load is running.
	ErrLoadInFlight = errors.New("dashboard load already in flight")
	// ErrInvalidSnapshot is returned when the payload is not a JSON object.
	ErrInvalidSnapshot = errors.New("invalid dashboard payload")
	// ErrUnexpectedStatus is returned by a status-checking fetcher for HTTP >= 400.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// RegionNotFoundError names the region that could not be located.
type RegionNotFoundError struct {
	ID string
}

func (e *RegionNotFoundError) Error() string {
	return fmt.Sprintf("%s: #%s", ErrRegionNotFound, e.ID)
}

// Unwrap allows errors.Is(err, ErrRegionNotFound).
func (e *RegionNotFoundError) Unwrap() error { return ErrRegionNotFound }

// StatusError carries the status code of a rejected response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnexpectedStatus, e.Status)
}

// Unwrap allows errors.Is(err, ErrUnexpectedStatus).
func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }
