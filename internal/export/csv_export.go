package export

import (
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"github.com/askai/askai/internal/conversation"
	"github.com/askai/askai/internal/safety"
)

// CSVExporter renders one row per turn for spreadsheet analysis.
type CSVExporter struct{}

var csvHeader = []string{
	"created_at", "owner", "conversation_id", "turn_id", "position", "model",
	"prompt", "ai_response",
	"flagged_as_potentially_sensitive", "user_confirmed_not_sensitive",
	"prompt_moderated", "ai_response_moderated", "api_error",
	"tokens_input", "tokens_output", "cost_input_dollars", "cost_output_dollars",
}

func (e *CSVExporter) Export(data ExportData) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for i := range data.Turns {
		t := &data.Turns[i]
		flagged := t.Sensitivity == conversation.SensitivityPotentiallySensitive ||
			t.Sensitivity == conversation.SensitivityConfirmedNotSensitive ||
			t.Sensitivity == conversation.SensitivityConfirmedSensitive
		row := []string{
			t.CreatedAt.UTC().Format(time.RFC3339),
			data.Conversation.Owner,
			t.ConversationID,
			t.ID,
			strconv.Itoa(t.Position),
			t.Model,
			neutralise(t.UserText),
			neutralise(assistantText(*t, data.ShowModeratedOutput)),
			strconv.FormatBool(flagged),
			strconv.FormatBool(t.Sensitivity == conversation.SensitivityConfirmedNotSensitive),
			strconv.FormatBool(t.State == safety.StateBlocked),
			strconv.FormatBool(t.OutputModerated),
			strconv.FormatBool(t.APIError()),
			optionalInt(t.TokensInput),
			optionalInt(t.TokensOutput),
			strconv.FormatFloat(t.CostInputDollars, 'f', -1, 64),
			strconv.FormatFloat(t.CostOutputDollars, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func optionalInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

// neutralise stops spreadsheet applications evaluating free text as a
// formula.
func neutralise(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
