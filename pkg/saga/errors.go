package saga

import "errors"

var (
	// ErrUnknownState means a source state is not in the definition.
	ErrUnknownState = errors.New("unknown workflow state")

	// ErrUnknownTransition means a transition does not leave the given state.
	ErrUnknownTransition = errors.New("unknown workflow transition")
)
