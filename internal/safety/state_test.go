package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_LegalPaths(t *testing.T) {
	tests := []struct {
		name   string
		from   State
		events []Event
		want   State
	}{
		{"blocked", StateDraft, []Event{EventModerationFlagged}, StateBlocked},
		{"clean and answered", StateDraft, []Event{EventCleared, EventCallSucceeded}, StateCompleted},
		{"confirmed not sensitive", StateDraft, []Event{EventSensitivityFlagged, EventConfirmedNotSensitive, EventCallSucceeded}, StateCompleted},
		{"withheld", StateDraft, []Event{EventSensitivityFlagged, EventConfirmedSensitive}, StateWithheld},
		{"call failed", StateDraft, []Event{EventCleared, EventCallFailed}, StateErrored},
		{"check failed", StateDraft, []Event{EventCheckFailed}, StateErrored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.from
			for _, ev := range tt.events {
				var err error
				s, err = Transition(s, ev)
				require.NoError(t, err, "event %s", ev)
			}
			assert.Equal(t, tt.want, s)
			assert.True(t, s.Terminal())
		})
	}
}

func TestTransition_TerminalStatesAcceptNothing(t *testing.T) {
	events := []Event{
		EventModerationFlagged, EventSensitivityFlagged, EventCleared,
		EventConfirmedNotSensitive, EventConfirmedSensitive,
		EventCallSucceeded, EventCallFailed, EventCheckFailed,
	}
	for _, s := range []State{StateBlocked, StateWithheld, StateCompleted, StateErrored} {
		for _, ev := range events {
			got, err := Transition(s, ev)
			assert.ErrorIs(t, err, ErrIllegalTransition, "%s on %s", ev, s)
			assert.Equal(t, s, got)
		}
	}
}

func TestTransition_NoSkippingConfirmation(t *testing.T) {
	_, err := Transition(StatePendingConfirmation, EventCallSucceeded)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = Transition(StateDraft, EventCallSucceeded)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = Transition(StateReady, EventConfirmedNotSensitive)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestState_Valid(t *testing.T) {
	assert.True(t, StateReady.Valid())
	assert.False(t, State("moderated").Valid())
	assert.False(t, StateDraft.Terminal())
	assert.False(t, StatePendingConfirmation.Terminal())
}
