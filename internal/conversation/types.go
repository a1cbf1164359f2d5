// Package conversation defines conversations and turns and stores them in
// SQLite.
package conversation

import (
	"errors"
	"fmt"
	"time"

	"github.com/askai/askai/internal/safety"
	"github.com/askai/askai/internal/scanner"
)

// ErrNotFound is returned when a conversation or turn does not exist.
var ErrNotFound = errors.New("not found")

// Sensitivity records what the sensitivity scan and the user said about a
// turn's input. It only changes as a side effect of a state transition.
type Sensitivity string

const (
	SensitivityUnknown               Sensitivity = "unknown" // not scanned
	SensitivityClear                 Sensitivity = "clear"   // scanned, nothing cleared a threshold
	SensitivityPotentiallySensitive  Sensitivity = "potentially_sensitive"
	SensitivityConfirmedNotSensitive Sensitivity = "confirmed_not_sensitive"
	SensitivityConfirmedSensitive    Sensitivity = "confirmed_sensitive"
)

// Conversation is an ordered, append-only sequence of turns owned by one identity.
type Conversation struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Summary is a conversation plus its display name, for listings.
type Summary struct {
	Conversation
	Name string `json:"name"`
}

// Usage is the token usage and dollar cost reported for one external call.
type Usage struct {
	TokensInput       int
	TokensOutput      int
	CostInputDollars  float64
	CostOutputDollars float64
}

// Turn is one user input and its optional model output.
type Turn struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	Position       int          `json:"position"`
	Model          string       `json:"model"`
	UserText       string       `json:"user_text"`
	AssistantText  string       `json:"assistant_text,omitempty"`
	State          safety.State `json:"state"`
	Sensitivity    Sensitivity  `json:"sensitivity"`
	// Entities are the findings that put the turn into pending confirmation.
	Entities          []scanner.Entity `json:"entities,omitempty"`
	OutputModerated   bool             `json:"output_moderated"`
	TransientError    bool             `json:"transient_error,omitempty"`
	TokensInput       *int             `json:"tokens_input,omitempty"`
	TokensOutput      *int             `json:"tokens_output,omitempty"`
	CostInputDollars  float64          `json:"cost_input_dollars"`
	CostOutputDollars float64          `json:"cost_output_dollars"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// NewTurn returns a draft turn.
func NewTurn(conversationID, model, userText string) Turn {
	return Turn{
		ConversationID: conversationID,
		Model:          model,
		UserText:       userText,
		State:          safety.StateDraft,
		Sensitivity:    SensitivityUnknown,
	}
}

// InputModerated reports whether moderation blocked the input.
func (t *Turn) InputModerated() bool { return t.State == safety.StateBlocked }

// APIError reports whether the turn ended in a failure.
func (t *Turn) APIError() bool { return t.State == safety.StateErrored }

// SensitivityFlag returns what is known about the input's sensitivity.
func (t *Turn) SensitivityFlag() Sensitivity { return t.Sensitivity }

// Eligible reports whether the turn may be included in future context.
func (t *Turn) Eligible() bool {
	if t.State != safety.StateCompleted || t.OutputModerated {
		return false
	}
	return t.Sensitivity == SensitivityClear || t.Sensitivity == SensitivityConfirmedNotSensitive
}

// Apply moves the turn along the safety state machine.
func (t *Turn) Apply(ev safety.Event) error {
	next, err := safety.Transition(t.State, ev)
	if err != nil {
		return err
	}
	t.State = next
	switch ev {
	case safety.EventCleared:
		t.Sensitivity = SensitivityClear
	case safety.EventSensitivityFlagged:
		t.Sensitivity = SensitivityPotentiallySensitive
	case safety.EventConfirmedNotSensitive:
		t.Sensitivity = SensitivityConfirmedNotSensitive
	case safety.EventConfirmedSensitive:
		t.Sensitivity = SensitivityConfirmedSensitive
	}
	return nil
}

// Hold moves a draft into pending confirmation, remembering what was found.
func (t *Turn) Hold(entities []scanner.Entity) error {
	if err := t.Apply(safety.EventSensitivityFlagged); err != nil {
		return err
	}
	t.Entities = entities
	return nil
}

// Confirm applies the user's answer to a pending confirmation.
func (t *Turn) Confirm(sensitive bool) error {
	if sensitive {
		return t.Apply(safety.EventConfirmedSensitive)
	}
	return t.Apply(safety.EventConfirmedNotSensitive)
}

// Complete records a successful external call.
func (t *Turn) Complete(text string, outputModerated bool, u Usage) error {
	if err := t.Apply(safety.EventCallSucceeded); err != nil {
		return err
	}
	t.AssistantText = text
	t.OutputModerated = outputModerated
	t.RecordUsage(u)
	return nil
}

// Fail moves the turn to errored. A draft fails on a collaborator check, a
// ready turn on the external call.
func (t *Turn) Fail(transient bool) error {
	ev := safety.EventCallFailed
	if t.State == safety.StateDraft {
		ev = safety.EventCheckFailed
	}
	if err := t.Apply(ev); err != nil {
		return err
	}
	t.TransientError = transient
	return nil
}

// RecordUsage stores token counts and cost.
func (t *Turn) RecordUsage(u Usage) {
	in, out := u.TokensInput, u.TokensOutput
	t.TokensInput = &in
	t.TokensOutput = &out
	t.CostInputDollars = u.CostInputDollars
	t.CostOutputDollars = u.CostOutputDollars
}

// TotalCost returns input plus output cost.
func (t *Turn) TotalCost() float64 {
	return t.CostInputDollars + t.CostOutputDollars
}

const (
	nameMaxLen    = 40
	unnamedFormat = "2006-01-02 15:04:05"
)

// DisplayName names a conversation after its first user text, truncated to
// 40 characters, or after its creation time when it has no text yet.
func DisplayName(c Conversation, firstUserText string) string {
	if firstUserText == "" {
		return c.CreatedAt.Format(unnamedFormat)
	}
	r := []rune(firstUserText)
	if len(r) > nameMaxLen {
		return fmt.Sprintf("%s...", string(r[:nameMaxLen]))
	}
	return firstUserText
}
