package safety

import (
	"context"
	"fmt"

	"github.com/askai/askai/internal/scanner"
)

// Moderator classifies text as disallowed content.
type Moderator interface {
	Moderate(ctx context.Context, text string) (bool, error)
}

// Verdict is the outcome of checking a draft turn's input.
type Verdict struct {
	Event Event
	// Entities holds the findings that cleared their thresholds when Event
	// is EventSensitivityFlagged.
	Entities []scanner.Entity
}

// Gate sequences the moderation and sensitivity checks. It holds no mutable
// state and is safe for concurrent use.
type Gate struct {
	moderator  Moderator
	detector   scanner.Detector
	thresholds scanner.Thresholds
}

// NewGate creates a Gate.
func NewGate(moderator Moderator, detector scanner.Detector, thresholds scanner.Thresholds) *Gate {
	return &Gate{moderator: moderator, detector: detector, thresholds: thresholds}
}

// CheckInput runs moderation and, only when moderation clears the text, the
// sensitivity scan. A returned error means a collaborator failed; the caller
// moves the turn with EventCheckFailed.
func (g *Gate) CheckInput(ctx context.Context, text string) (Verdict, error) {
	flagged, err := g.moderator.Moderate(ctx, text)
	if err != nil {
		return Verdict{}, fmt.Errorf("safety: moderate input: %w", err)
	}
	if flagged {
		return Verdict{Event: EventModerationFlagged}, nil
	}

	found, err := g.detector.Detect(ctx, text)
	if err != nil {
		return Verdict{}, fmt.Errorf("safety: sensitivity scan: %w", err)
	}
	if hits := g.thresholds.Flagging(found); len(hits) > 0 {
		return Verdict{Event: EventSensitivityFlagged, Entities: hits}, nil
	}
	return Verdict{Event: EventCleared}, nil
}

// CheckOutput moderates model output.
func (g *Gate) CheckOutput(ctx context.Context, text string) (bool, error) {
	flagged, err := g.moderator.Moderate(ctx, text)
	if err != nil {
		return false, fmt.Errorf("safety: moderate output: %w", err)
	}
	return flagged, nil
}
