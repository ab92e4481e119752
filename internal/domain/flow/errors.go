package flow

import "errors"

var (
	// ErrInvalidTransition is returned when a phase transition is not allowed
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrInvalidState is returned when a state is not a known phase
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")
)
