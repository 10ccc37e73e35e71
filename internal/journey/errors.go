package journey

import "errors"

var (
	// ErrUnknownSignal is returned when a name is not in the registry.
	ErrUnknownSignal = errors.New("journey: unknown signal")
	// ErrSignalType is returned when Set receives a value of the wrong type.
	ErrSignalType = errors.New("journey: wrong value type for signal")
	// ErrReadOnly is returned when Set targets a derived signal.
	ErrReadOnly = errors.New("journey: signal is read-only")
	// ErrGated is returned when an action's precondition does not hold.
	ErrGated = errors.New("journey: action not available yet")
	// ErrNotReturnable is returned when a detour's return screen is not a tab.
	ErrNotReturnable = errors.New("journey: detour must return to a tab")
	// ErrDetourPending is returned when a second detour is requested while one is live.
	ErrDetourPending = errors.New("journey: a detour is already pending")
)
