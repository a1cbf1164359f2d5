// Package ledger prices model usage and totals spend.
package ledger

import (
	"fmt"

	"github.com/askai/askai/internal/catalog"
	"github.com/askai/askai/internal/conversation"
)

// Cost is the dollar price of one call, split by direction.
type Cost struct {
	InputDollars  float64 `json:"cost_input_dollars"`
	OutputDollars float64 `json:"cost_output_dollars"`
}

// Total returns input plus output.
func (c Cost) Total() float64 { return c.InputDollars + c.OutputDollars }

// Ledger prices token usage from a catalog.
type Ledger struct {
	catalog *catalog.Catalog
}

// New creates a Ledger.
func New(cat *catalog.Catalog) *Ledger {
	return &Ledger{catalog: cat}
}

// ComputeCost prices a call. A model without a catalog entry is an error,
// never a free call.
func (l *Ledger) ComputeCost(model string, tokensInput, tokensOutput int) (Cost, error) {
	m, err := l.catalog.Lookup(model)
	if err != nil {
		return Cost{}, fmt.Errorf("ledger: compute cost: %w", err)
	}
	if tokensInput < 0 || tokensOutput < 0 {
		return Cost{}, fmt.Errorf("ledger: compute cost: negative token count (%d, %d)", tokensInput, tokensOutput)
	}
	return Cost{
		InputDollars:  float64(tokensInput) * m.InputCostPerToken(),
		OutputDollars: float64(tokensOutput) * m.OutputCostPerToken(),
	}, nil
}

// Usage prices a call and returns it in the form turns record.
func (l *Ledger) Usage(model string, tokensInput, tokensOutput int) (conversation.Usage, error) {
	c, err := l.ComputeCost(model, tokensInput, tokensOutput)
	if err != nil {
		return conversation.Usage{}, err
	}
	return conversation.Usage{
		TokensInput:       tokensInput,
		TokensOutput:      tokensOutput,
		CostInputDollars:  c.InputDollars,
		CostOutputDollars: c.OutputDollars,
	}, nil
}

// Sum totals the recorded cost of turns, eligible or not.
func Sum(turns []conversation.Turn) Cost {
	var c Cost
	for i := range turns {
		c.InputDollars += turns[i].CostInputDollars
		c.OutputDollars += turns[i].CostOutputDollars
	}
	return c
}
