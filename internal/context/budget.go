package context

import (
	"github.com/askai/askai/internal/catalog"
)

// Accountant keeps requests inside a model's context window.
// It holds no mutable state and is safe for concurrent use.
type Accountant struct {
	catalog   *catalog.Catalog
	tokenizer *Tokenizer
}

// NewAccountant creates an Accountant.
func NewAccountant(cat *catalog.Catalog, tok *Tokenizer) *Accountant {
	return &Accountant{catalog: cat, tokenizer: tok}
}

func (a *Accountant) budget(model string, buffer int) (int, error) {
	limit, err := a.catalog.Limit(model)
	if err != nil {
		return 0, err
	}
	return limit - buffer, nil
}

// FitsWithinBudget reports whether text alone fits in limit-buffer tokens.
// Equality is within budget.
func (a *Accountant) FitsWithinBudget(text, model string, buffer int) (bool, error) {
	budget, err := a.budget(model, buffer)
	if err != nil {
		return false, err
	}
	n, err := a.tokenizer.CountTokens(text, model)
	if err != nil {
		return false, err
	}
	return n <= budget, nil
}

// TrimToBudget drops the oldest messages until the rest fit in limit-buffer
// tokens. The result is always a suffix of msgs; when msgs already fits it is
// returned unchanged. An empty result reports a token count of 0.
func (a *Accountant) TrimToBudget(msgs []Message, model string, buffer int) (int, []Message, error) {
	budget, err := a.budget(model, buffer)
	if err != nil {
		return 0, nil, err
	}
	counts, err := a.tokenizer.perMessage(msgs, model)
	if err != nil {
		return 0, nil, err
	}

	total := tokensPerReply
	for _, n := range counts {
		total += n
	}

	start := 0
	for total > budget && start < len(msgs) {
		total -= counts[start]
		start++
	}
	if start == len(msgs) {
		return 0, []Message{}, nil
	}
	if start == 0 {
		return total, msgs, nil
	}

	trimmed := make([]Message, len(msgs)-start)
	copy(trimmed, msgs[start:])
	return total, trimmed, nil
}

// MaxResponseTokens is the response cap for a request that already uses
// consumed tokens, clamped to the model's output limit when it has one.
func (a *Accountant) MaxResponseTokens(model string, consumed int) (int, error) {
	m, err := a.catalog.Lookup(model)
	if err != nil {
		return 0, err
	}
	n := m.ContextLimit - consumed
	if m.MaxOutputTokens > 0 && n > m.MaxOutputTokens {
		n = m.MaxOutputTokens
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}
