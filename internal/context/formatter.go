package context

import (
	"fmt"
	"strings"

	"github.com/askai/askai/internal/conversation"
	"github.com/askai/askai/internal/safety"
)

// Formatter renders conversations into readable transcripts.
type Formatter struct {
	// ShowModeratedOutput controls whether assistant text flagged by output
	// moderation is printed or replaced with a notice.
	ShowModeratedOutput bool
}

// NewFormatter creates a Formatter.
func NewFormatter(showModeratedOutput bool) *Formatter {
	return &Formatter{ShowModeratedOutput: showModeratedOutput}
}

// FormatTranscript renders a conversation header followed by every turn.
func (f *Formatter) FormatTranscript(s conversation.Summary, turns []conversation.Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", s.Name)
	fmt.Fprintf(&b, "- **ID:** %s\n", s.ID)
	fmt.Fprintf(&b, "- **Owner:** %s\n", s.Owner)
	fmt.Fprintf(&b, "- **Created:** %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- **Turns:** %d\n\n", len(turns))
	for i := range turns {
		b.WriteString(f.FormatTurn(turns[i]))
	}
	return b.String()
}

// FormatTurn renders one turn with its state annotation.
func (f *Formatter) FormatTurn(t conversation.Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Turn %d (%s)%s\n\n", t.Position+1, t.Model, annotation(t))
	fmt.Fprintf(&b, "**You:** %s\n\n", t.UserText)
	if t.State == safety.StatePendingConfirmation && len(t.Entities) > 0 {
		b.WriteString(f.FormatEntities(t.UserText, t))
		b.WriteString("\n")
	}

	switch {
	case t.AssistantText == "":
	case t.OutputModerated && !f.ShowModeratedOutput:
		b.WriteString("**Assistant:** _response withheld by moderation_\n\n")
	default:
		fmt.Fprintf(&b, "**Assistant:** %s\n\n", t.AssistantText)
	}

	if t.TokensInput != nil && t.TokensOutput != nil {
		fmt.Fprintf(&b, "_tokens %d in / %d out, $%.6f_\n\n", *t.TokensInput, *t.TokensOutput, t.TotalCost())
	}
	return b.String()
}

// FormatEntities renders the findings that put a turn on hold.
func (f *Formatter) FormatEntities(text string, t conversation.Turn) string {
	if len(t.Entities) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Possible sensitive information found:\n")
	for _, e := range t.Entities {
		snippet := ""
		if e.Start >= 0 && e.End <= len(text) && e.Start < e.End {
			snippet = fmt.Sprintf(" %q", text[e.Start:e.End])
		}
		fmt.Fprintf(&b, "- %s%s (score %.2f)\n", e.Type, snippet, e.Score)
	}
	return b.String()
}

func annotation(t conversation.Turn) string {
	var notes []string
	switch t.State {
	case safety.StateBlocked:
		notes = append(notes, "blocked by moderation")
	case safety.StatePendingConfirmation:
		notes = append(notes, "awaiting confirmation")
	case safety.StateWithheld:
		notes = append(notes, "withheld as sensitive")
	case safety.StateErrored:
		if t.TransientError {
			notes = append(notes, "failed, retry possible")
		} else {
			notes = append(notes, "failed")
		}
	case safety.StateReady, safety.StateDraft:
		notes = append(notes, string(t.State))
	}
	if t.OutputModerated {
		notes = append(notes, "output flagged")
	}
	if len(notes) == 0 {
		return ""
	}
	return " [" + strings.Join(notes, ", ") + "]"
}
