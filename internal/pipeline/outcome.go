package pipeline

import (
	"github.com/askai/askai/internal/ledger"
	"github.com/askai/askai/internal/scanner"
)

// Kind names a terminal or waiting result of a submission.
type Kind string

const (
	// KindBlocked: moderation flagged the input. The user must write new text.
	KindBlocked Kind = "blocked"
	// KindNeedsConfirmation: the input may hold sensitive data and waits for
	// the user to confirm.
	KindNeedsConfirmation Kind = "needs_confirmation"
	// KindWithheld: the user confirmed the input as sensitive.
	KindWithheld Kind = "withheld"
	// KindCompleted: the model answered.
	KindCompleted Kind = "completed"
	// KindErrored: a collaborator or the model call failed.
	KindErrored Kind = "errored"
	// KindTooLong: the input does not fit the model's context budget.
	KindTooLong Kind = "too_long"
)

// Outcome is what a caller gets back from SubmitTurn or ConfirmTurn. Every
// path through the pipeline ends in exactly one Kind.
type Outcome struct {
	Kind           Kind   `json:"kind"`
	ConversationID string `json:"conversation_id,omitempty"`
	TurnID         string `json:"turn_id,omitempty"`

	// Completed.
	AssistantText   string      `json:"assistant_text,omitempty"`
	OutputModerated bool        `json:"output_moderated,omitempty"`
	Suppressed      bool        `json:"suppressed,omitempty"`
	Cost            ledger.Cost `json:"cost"`

	// NeedsConfirmation.
	Entities []scanner.Entity `json:"entities,omitempty"`

	// Errored.
	Transient bool `json:"transient,omitempty"`

	// RetryText is the original input, offered back for editing after a
	// withheld or errored turn.
	RetryText string `json:"retry_text,omitempty"`
}
