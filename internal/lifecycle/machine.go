// Package lifecycle is a small flat state machine with entry/exit actions
// and guarded transitions. The runtime uses it to track its phase.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type StateID int
type EventID int

type Event struct {
	ID EventID
}

type Action func(ctx context.Context, evt *Event, from StateID, to StateID) error
type Guard func(ctx context.Context, evt *Event, from StateID, to StateID) (bool, error)

// ---

type State struct {
	ID          StateID
	Name        string
	Transitions []*Transition
	EntryAction Action
	ExitAction  Action
	Initial     bool
	Final       bool
}

type Transition struct {
	Event  EventID
	Label  string
	Source *State
	Target *State
	Guard  Guard  // nil --> always taken
	Action Action // nil --> do nothing
}

// Machine holds a set of states and the current one. Safe for concurrent use;
// actions run with the machine locked and must not call back into it.
type Machine struct {
	mu      sync.Mutex
	states  []*State
	byID    map[StateID]*State
	initial *State
	current *State
	started bool
}

var (
	ErrNotStarted = errors.New("machine not started")
	ErrStarted    = errors.New("machine already started")
)

//
// Public API
//

func (s *State) OnEntry(action Action) {
	s.EntryAction = action
}

func (s *State) OnExit(action Action) {
	s.ExitAction = action
}

// On adds a transition from s to target on event e.
func (s *State) On(e EventID, label string, target *State, guard Guard, action Action) {
	s.Transitions = append(s.Transitions, &Transition{
		Event:  e,
		Label:  label,
		Source: s,
		Target: target,
		Guard:  guard,
		Action: action,
	})
}

func NewMachine(states ...*State) (*Machine, error) {
	if len(states) == 0 {
		return nil, errors.New("no states provided")
	}
	m := &Machine{
		states: states,
		byID:   map[StateID]*State{},
	}

	for _, s := range states {
		if s == nil {
			return nil, errors.New("nil state")
		}
		if _, exists := m.byID[s.ID]; exists {
			return nil, fmt.Errorf("duplicate state ID %d", s.ID)
		}
		m.byID[s.ID] = s
		if s.Initial {
			if m.initial != nil {
				return nil, errors.New("more than one initial state")
			}
			m.initial = s
		}
	}
	if m.initial == nil {
		m.initial = states[0] // First state is assigned as initial.
	}

	for _, s := range states {
		for _, t := range s.Transitions {
			if t == nil {
				continue
			}
			if t.Source == nil {
				t.Source = s
			}
			if t.Target == nil {
				return nil, fmt.Errorf("state %d: transition on event %d has no target", s.ID, t.Event)
			}
			if _, ok := m.byID[t.Target.ID]; !ok {
				return nil, fmt.Errorf("state %d: transition target %d not in machine", s.ID, t.Target.ID)
			}
		}
	}

	return m, nil
}

// Start enters the initial state.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrStarted
	}
	if err := m.initial.enterState(ctx, nil, m.initial.ID, m.initial.ID); err != nil {
		return err
	}
	m.current = m.initial
	m.started = true
	return nil
}

// Send delivers evt. Events with no matching transition are ignored; the
// returned bool reports whether a transition was taken.
func (m *Machine) Send(ctx context.Context, evt Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return false, ErrNotStarted
	}

	t := m.pickTransition(m.current, &evt)
	if t == nil {
		return false, nil
	}

	next, err := t.doTransition(ctx, &evt)
	moved := next != m.current
	m.current = next
	return moved, err
}

// Current returns the current state, or nil before Start.
func (m *Machine) Current() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Is reports whether the machine is in state id.
func (m *Machine) Is(id StateID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.ID == id
}

// Can reports whether evt would match a transition from the current state.
// Guards are not evaluated.
func (m *Machine) Can(id EventID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return false
	}
	return m.pickTransition(m.current, &Event{ID: id}) != nil
}

// Done reports whether the machine sits in a final state.
func (m *Machine) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.Final
}

//
// Helper Functions (internal API)
//

func (s *State) enterState(ctx context.Context, evt *Event, from StateID, to StateID) error {
	if s.EntryAction != nil {
		return s.EntryAction(ctx, evt, from, to)
	}
	return nil
}

func (s *State) exitState(ctx context.Context, evt *Event, from StateID, to StateID) error {
	if s.ExitAction != nil {
		return s.ExitAction(ctx, evt, from, to)
	}
	return nil
}

// pickTransition grabs the first matching transition in declaration order.
func (m *Machine) pickTransition(s *State, evt *Event) *Transition {
	for _, t := range s.Transitions {
		if t == nil {
			continue
		}
		if t.Event != evt.ID {
			continue
		}
		return t
	}
	return nil
}

// doTransition evaluates a transition and returns the resulting state.
func (t *Transition) doTransition(ctx context.Context, evt *Event) (*State, error) {
	from, to := t.Source.ID, t.Target.ID

	if t.Guard != nil {
		pass, err := t.Guard(ctx, evt, from, to)
		// If error OR guard returns False, stay in source state.
		if err != nil || !pass {
			return t.Source, err
		}
	}

	if err := t.Source.exitState(ctx, evt, from, to); err != nil {
		return t.Source, err
	}

	if t.Action != nil {
		if err := t.Action(ctx, evt, from, to); err != nil {
			// Rewind: re-enter the source without an event.
			if rerr := t.Source.enterState(ctx, nil, from, to); rerr != nil {
				return t.Source, errors.Join(err, rerr)
			}
			return t.Source, err
		}
	}

	// The target is entered even if its entry action fails; the error is
	// still reported.
	if err := t.Target.enterState(ctx, evt, from, to); err != nil {
		return t.Target, err
	}

	return t.Target, nil
}
