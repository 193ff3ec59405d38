package algorithm

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTransition = errors.New("invalid state transition")

type State string

const (
	StateNew         State = "new"
	StateInitialized State = "initialized"
	StateRunning     State = "running"
	StateEnded       State = "ended"
	StateFailed      State = "failed"
)

func (s State) IsTerminal() bool {
	return s == StateEnded || s == StateFailed
}

type StateTransition struct {
	From        State
	To          State
	Description string
}

var ValidTransitions = []StateTransition{
	{StateNew, StateInitialized, "initialize returned"},
	{StateInitialized, StateRunning, "feed opened and router started"},
	{StateRunning, StateEnded, "end of algorithm passed"},

	{StateNew, StateFailed, "initialize failed"},
	{StateInitialized, StateFailed, "feed could not be opened"},
	{StateRunning, StateFailed, "callback or feed error"},
}

// StateMachine tracks the lifecycle of one run. Ended and Failed are terminal.
type StateMachine struct {
	current        State
	previous       State
	transitionTime time.Time
	transitions    int
}

func NewStateMachine() *StateMachine {
	return &StateMachine{
		current:        StateNew,
		previous:       StateNew,
		transitionTime: time.Now().UTC(),
	}
}

func (sm *StateMachine) Current() State {
	return sm.current
}

func (sm *StateMachine) Previous() State {
	return sm.previous
}

func (sm *StateMachine) TransitionTime() time.Time {
	return sm.transitionTime
}

func (sm *StateMachine) Transitions() int {
	return sm.transitions
}

func (sm *StateMachine) IsValidTransition(to State) error {
	for _, t := range ValidTransitions {
		if t.From == sm.current && t.To == to {
			return nil
		}
	}
	return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, sm.current, to)
}

func (sm *StateMachine) Transition(to State) error {
	if err := sm.IsValidTransition(to); err != nil {
		return err
	}
	sm.previous = sm.current
	sm.current = to
	sm.transitionTime = time.Now().UTC()
	sm.transitions++
	return nil
}

// Fail moves a live machine to Failed. A terminal machine is left as it is.
func (sm *StateMachine) Fail() {
	if sm.current.IsTerminal() {
		return
	}
	_ = sm.Transition(StateFailed)
}
