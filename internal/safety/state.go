// Package safety decides whether a conversation turn may be sent to the
// external model. It owns the turn state machine: every state change a turn
// goes through is one of the transitions declared here.
package safety

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of a turn.
type State string

const (
	StateDraft               State = "draft"
	StateBlocked             State = "blocked"
	StatePendingConfirmation State = "pending_confirmation"
	StateReady               State = "ready"
	StateWithheld            State = "withheld"
	StateCompleted           State = "completed"
	StateErrored             State = "errored"
)

// Event triggers a transition.
type Event string

const (
	EventModerationFlagged     Event = "moderation_flagged"
	EventSensitivityFlagged    Event = "sensitivity_flagged"
	EventCleared               Event = "cleared"
	EventConfirmedNotSensitive Event = "confirmed_not_sensitive"
	EventConfirmedSensitive    Event = "confirmed_sensitive"
	EventCallSucceeded         Event = "call_succeeded"
	EventCallFailed            Event = "call_failed"
	// EventCheckFailed is a transport failure talking to the moderation or
	// sensitivity collaborator before the turn was cleared.
	EventCheckFailed Event = "check_failed"
)

// ErrIllegalTransition is returned for an event that is not valid in a state.
var ErrIllegalTransition = errors.New("illegal transition")

type edge struct {
	from State
	on   Event
}

var transitions = map[edge]State{
	{StateDraft, EventModerationFlagged}:                   StateBlocked,
	{StateDraft, EventSensitivityFlagged}:                  StatePendingConfirmation,
	{StateDraft, EventCleared}:                             StateReady,
	{StateDraft, EventCheckFailed}:                         StateErrored,
	{StatePendingConfirmation, EventConfirmedNotSensitive}: StateReady,
	{StatePendingConfirmation, EventConfirmedSensitive}:    StateWithheld,
	{StateReady, EventCallSucceeded}:                       StateCompleted,
	{StateReady, EventCallFailed}:                          StateErrored,
}

// Transition returns the state reached from s on ev.
func Transition(s State, ev Event) (State, error) {
	next, ok := transitions[edge{s, ev}]
	if !ok {
		return s, fmt.Errorf("safety: %w: %s on %s", ErrIllegalTransition, ev, s)
	}
	return next, nil
}

// Terminal reports whether no further event is accepted in s.
func (s State) Terminal() bool {
	switch s {
	case StateBlocked, StateWithheld, StateCompleted, StateErrored:
		return true
	}
	return false
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateDraft, StateBlocked, StatePendingConfirmation, StateReady,
		StateWithheld, StateCompleted, StateErrored:
		return true
	}
	return false
}
