package router

import (
	"errors"
	"fmt"
)

// ErrNoProvidersRegistered is returned when no available model exists at any
// reachable tier. It indicates a configuration problem, not a transient one,
// and is never conflated with a per-candidate failure.
var ErrNoProvidersRegistered = errors.New("no providers registered")

// ExhaustedError is returned when every candidate at the floor tier failed.
// It carries the last underlying per-candidate error so callers can
// distinguish "everything is down" from "nothing is configured".
type ExhaustedError struct {
	// Tier at which the final trial sequence ran
	Tier int

	// Last is the error from the last candidate attempted
	Last error
}

// Error implements the error interface
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all candidates failed at tier %d: %v", e.Tier, e.Last)
}

// Unwrap implements error unwrapping
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
