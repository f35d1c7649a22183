package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when no transition is configured for (state, trigger)
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a stored status is not a known state
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every guarded transition for a trigger was refused
	ErrGuardFailed = errors.New("guard condition failed")
)
