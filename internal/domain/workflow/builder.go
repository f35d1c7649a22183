package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a guarded transition may be taken
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder collects the transition table and builds machines from it
type StateMachineBuilder interface {
	// Configure returns the configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a machine positioned at initialState
	Build(initialState State) StateMachine
}

// StateConfiguration configures the outgoing transitions of one state
type StateConfiguration interface {
	// Permit allows a trigger to move to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows a trigger to move to the target state when guard passes.
	// Transitions for the same trigger are tried in registration order.
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type transition struct {
	toState State
	guard   GuardFunc
}

type stateConfig struct {
	fromState   State
	transitions map[Trigger][]transition
}

type stateMachineBuilder struct {
	configurations map[State]*stateConfig
}

type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[State]*stateConfig),
	}
}

// Configure panics on an unknown state so a bad table fails at construction
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if state.IsTerminal() {
		panic(fmt.Sprintf("terminal state cannot have transitions: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState:   state,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[state] = config
	}

	return config
}

// Build copies the table so later Configure calls cannot mutate built machines
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition, len(config.transitions))
		for trigger, transitions := range config.transitions {
			transitionsCopy[trigger] = append([]transition{}, transitions...)
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// Permit allows a trigger to move to the target state
func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows a trigger to move to the target state when guard passes
func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{
		toState: toState,
		guard:   guard,
	})

	return c
}

func (m *stateMachine) State() State {
	return m.currentState
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}
	return len(config.transitions[trigger]) > 0
}

func (m *stateMachine) Peek(ctx context.Context, trigger Trigger) (State, error) {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return "", fmt.Errorf("%w: cannot fire trigger %s from state %s (no configuration)", ErrInvalidTransition, trigger, m.currentState)
	}

	transitions := config.transitions[trigger]
	if len(transitions) == 0 {
		return "", fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}

	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			return t.toState, nil
		}
	}

	return "", fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.currentState)
}

func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	next, err := m.Peek(ctx, trigger)
	if err != nil {
		return err
	}
	m.currentState = next
	return nil
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })

	return triggers
}
