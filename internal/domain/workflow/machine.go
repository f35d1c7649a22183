package workflow

import "context"

// StateMachine tracks the current state of one request and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire reports whether any transition is configured for the trigger in the current state.
	// Guards are not evaluated.
	CanFire(trigger Trigger) bool

	// Peek resolves the destination of a trigger without moving the machine
	Peek(ctx context.Context, trigger Trigger) (State, error)

	// Fire executes the trigger, moving to the resolved destination
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns the triggers configured for the current state, sorted
	PermittedTriggers() []Trigger
}
