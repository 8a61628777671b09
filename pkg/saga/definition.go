// Package saga coordinates long-running workflows as explicit state
// machines persisted in an item store. A workflow instance is created in
// its initial state and advanced by named transitions; every applied or
// skipped transition is recorded in the instance history.
package saga

import (
	"fmt"
	"sort"
)

// Start is the sentinel source state for transitions that create the
// initial state of a workflow.
const Start = ""

// Definition is a workflow state machine: for each source state, the
// transitions that leave it and the state each one lands in. The Start
// source defines the entry transitions.
type Definition struct {
	Name   string
	States map[string]map[string]string
}

// InitialState returns the state entered by the given entry transition.
func (d *Definition) InitialState(transition string) (string, error) {
	return d.Next(Start, transition)
}

// Next returns the state reached by taking transition from the given state.
func (d *Definition) Next(state, transition string) (string, error) {
	outgoing, ok := d.States[state]
	if !ok {
		return "", fmt.Errorf("%w: state %q", ErrUnknownState, state)
	}
	next, ok := outgoing[transition]
	if !ok {
		return "", fmt.Errorf("%w: %q from state %q", ErrUnknownTransition, transition, state)
	}
	return next, nil
}

// Terminal reports whether the given state has no outgoing transitions.
func (d *Definition) Terminal(state string) bool {
	return len(d.States[state]) == 0
}

// Validate checks the machine is well formed: it has a name, at least one
// entry transition, and no transition loops back to the start sentinel. A
// target state absent from the state table is terminal.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("workflow definition has no name")
	}
	if len(d.States[Start]) == 0 {
		return fmt.Errorf("workflow %s has no entry transitions", d.Name)
	}
	for _, state := range d.stateNames() {
		for transition, target := range d.States[state] {
			if target == Start {
				return fmt.Errorf("workflow %s: transition %q targets the start sentinel", d.Name, transition)
			}
		}
	}
	return nil
}

func (d *Definition) stateNames() []string {
	names := make([]string, 0, len(d.States))
	for s := range d.States {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}
