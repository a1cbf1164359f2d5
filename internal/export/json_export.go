package export

import (
	"encoding/json"
	"time"

	"github.com/askai/askai/internal/scanner"
)

// JSONExporter renders ExportData as structured JSON.
type JSONExporter struct{}

type jsonOutput struct {
	Conversation jsonConversation `json:"conversation"`
	Turns        []jsonTurn       `json:"turns"`
	Cost         jsonCost         `json:"cost"`
}

type jsonConversation struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Owner      string    `json:"owner"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

type jsonTurn struct {
	Position        int              `json:"position"`
	Model           string           `json:"model"`
	State           string           `json:"state"`
	Sensitivity     string           `json:"sensitivity"`
	UserText        string           `json:"user_text"`
	AssistantText   string           `json:"assistant_text,omitempty"`
	OutputModerated bool             `json:"output_moderated,omitempty"`
	Eligible        bool             `json:"eligible"`
	Entities        []scanner.Entity `json:"entities,omitempty"`
	TokensInput     *int             `json:"tokens_input,omitempty"`
	TokensOutput    *int             `json:"tokens_output,omitempty"`
	CostDollars     float64          `json:"cost_dollars"`
}

type jsonCost struct {
	InputDollars  float64 `json:"input_dollars"`
	OutputDollars float64 `json:"output_dollars"`
	TotalDollars  float64 `json:"total_dollars"`
}

func (e *JSONExporter) Export(data ExportData) (string, error) {
	c := data.Conversation
	cost := data.Cost()

	out := jsonOutput{
		Conversation: jsonConversation{
			ID:         c.ID,
			Name:       c.Name,
			Owner:      c.Owner,
			CreatedAt:  c.CreatedAt,
			ModifiedAt: c.ModifiedAt,
		},
		Turns: make([]jsonTurn, 0, len(data.Turns)),
		Cost: jsonCost{
			InputDollars:  cost.InputDollars,
			OutputDollars: cost.OutputDollars,
			TotalDollars:  cost.Total(),
		},
	}
	for i := range data.Turns {
		t := &data.Turns[i]
		out.Turns = append(out.Turns, jsonTurn{
			Position:        t.Position,
			Model:           t.Model,
			State:           string(t.State),
			Sensitivity:     string(t.Sensitivity),
			UserText:        t.UserText,
			AssistantText:   assistantText(*t, data.ShowModeratedOutput),
			OutputModerated: t.OutputModerated,
			Eligible:        t.Eligible(),
			Entities:        t.Entities,
			TokensInput:     t.TokensInput,
			TokensOutput:    t.TokensOutput,
			CostDollars:     t.TotalCost(),
		})
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
