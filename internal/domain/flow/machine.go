package flow

import (
	"context"
	"fmt"
)

// GuardFunc is a predicate that decides whether a transition may proceed
type GuardFunc func(ctx context.Context) bool

// transition is a target state with an optional guard
type transition struct {
	toState State
	guard   GuardFunc
}

// Builder assembles the legal transition table before any Machine is created.
// All phase transitions are declared here so the conversation lifecycle stays
// auditable in one place instead of being scattered across conditionals.
type Builder struct {
	transitions map[State]map[Trigger][]transition
}

// NewBuilder creates an empty transition-table builder
func NewBuilder() *Builder {
	return &Builder{
		transitions: make(map[State]map[Trigger][]transition),
	}
}

// Permit allows trigger to move the machine from state to toState
func (b *Builder) Permit(from State, trigger Trigger, to State) *Builder {
	return b.PermitIf(from, trigger, to, nil)
}

// PermitIf allows the transition only while the guard passes
func (b *Builder) PermitIf(from State, trigger Trigger, to State, guard GuardFunc) *Builder {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid source state: %s", from))
	}
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}

	byTrigger, ok := b.transitions[from]
	if !ok {
		byTrigger = make(map[Trigger][]transition)
		b.transitions[from] = byTrigger
	}
	byTrigger[trigger] = append(byTrigger[trigger], transition{toState: to, guard: guard})
	return b
}

// Build creates an independent machine starting at initial. Machines built
// from the same builder share no mutable state.
func (b *Builder) Build(initial State) *Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}

	table := make(map[State]map[Trigger][]transition, len(b.transitions))
	for state, byTrigger := range b.transitions {
		copied := make(map[Trigger][]transition, len(byTrigger))
		for trigger, ts := range byTrigger {
			copied[trigger] = append([]transition{}, ts...)
		}
		table[state] = copied
	}

	return &Machine{current: initial, transitions: table}
}

// Machine tracks the current phase and validates transitions. It is not
// safe for concurrent use; the owning session serializes access.
type Machine struct {
	current     State
	transitions map[State]map[Trigger][]transition
}

// State returns the current phase
func (m *Machine) State() State {
	return m.current
}

// CanFire returns true if the trigger has at least one transition configured
// for the current phase
func (m *Machine) CanFire(trigger Trigger) bool {
	byTrigger, ok := m.transitions[m.current]
	if !ok {
		return false
	}
	return len(byTrigger[trigger]) > 0
}

// Fire executes the trigger, moving to the first permitted target state.
// The current phase is left untouched if no transition is permitted.
func (m *Machine) Fire(ctx context.Context, trigger Trigger) error {
	byTrigger, ok := m.transitions[m.current]
	if !ok {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	ts := byTrigger[trigger]
	if len(ts) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range ts {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from %s", ErrGuardFailed, trigger, m.current)
}

// PermittedTriggers returns the triggers that can fire in the current phase
func (m *Machine) PermittedTriggers() []Trigger {
	byTrigger, ok := m.transitions[m.current]
	if !ok {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(byTrigger))
	for trigger := range byTrigger {
		triggers = append(triggers, trigger)
	}
	return triggers
}
