// Package catalog holds the immutable per-model configuration used by the
// token accountant and the cost ledger: context limits, pricing and the
// tokenizer encoding for every model askai is allowed to talk to.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// Provider name constants.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderOllama = "ollama"
)

// ErrUnknownModel is returned when a model has no catalog entry.
var ErrUnknownModel = errors.New("unknown model")

// Model describes one completion model.
type Model struct {
	Name     string `toml:"name"`
	Provider string `toml:"provider"`
	// Encoding is the tiktoken encoding name. Empty means resolve by model name.
	Encoding        string  `toml:"encoding"`
	ContextLimit    int     `toml:"context_limit"`
	MaxOutputTokens int     `toml:"max_output_tokens"` // 0 = no cap beyond the context limit
	InputCostPer1K  float64 `toml:"input_cost_per_1k"`
	OutputCostPer1K float64 `toml:"output_cost_per_1k"`
	// ChatFormat marks the model as using the 3-token per-message and
	// 3-token reply-priming chat format. Message counting refuses models
	// without it.
	ChatFormat bool `toml:"chat_format"`
}

// InputCostPerToken returns the dollar cost of one prompt token.
func (m Model) InputCostPerToken() float64 {
	return m.InputCostPer1K / 1000
}

// OutputCostPerToken returns the dollar cost of one completion token.
func (m Model) OutputCostPerToken() float64 {
	return m.OutputCostPer1K / 1000
}

// Catalog is a read-only model table. It is safe for concurrent use.
type Catalog struct {
	models map[string]Model
}

// New validates models and builds a Catalog. Later entries with the same
// name replace earlier ones, so callers can layer overrides on Default().
func New(models ...Model) (*Catalog, error) {
	c := &Catalog{models: make(map[string]Model, len(models))}
	for _, m := range models {
		if err := validate(m); err != nil {
			return nil, err
		}
		c.models[m.Name] = m
	}
	return c, nil
}

func validate(m Model) error {
	if m.Name == "" {
		return errors.New("catalog: model with empty name")
	}
	switch m.Provider {
	case ProviderOpenAI, ProviderClaude, ProviderOllama:
	default:
		return fmt.Errorf("catalog: model %q: unknown provider %q", m.Name, m.Provider)
	}
	if m.ContextLimit <= 0 {
		return fmt.Errorf("catalog: model %q: context limit must be positive", m.Name)
	}
	if m.MaxOutputTokens < 0 {
		return fmt.Errorf("catalog: model %q: negative max output tokens", m.Name)
	}
	if m.InputCostPer1K < 0 || m.OutputCostPer1K < 0 {
		return fmt.Errorf("catalog: model %q: negative price", m.Name)
	}
	return nil
}

// Lookup returns the entry for name.
func (c *Catalog) Lookup(name string) (Model, error) {
	m, ok := c.models[name]
	if !ok {
		return Model{}, fmt.Errorf("catalog: %w: %q", ErrUnknownModel, name)
	}
	return m, nil
}

// Limit returns the context limit for name.
func (c *Catalog) Limit(name string) (int, error) {
	m, err := c.Lookup(name)
	if err != nil {
		return 0, err
	}
	return m.ContextLimit, nil
}

// Names returns all model names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.models))
	for n := range c.models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Models returns every entry sorted by name.
func (c *Catalog) Models() []Model {
	out := make([]Model, 0, len(c.models))
	for _, n := range c.Names() {
		out = append(out, c.models[n])
	}
	return out
}

// With returns a new Catalog with extra layered on top of c.
func (c *Catalog) With(extra ...Model) (*Catalog, error) {
	all := make([]Model, 0, len(c.models)+len(extra))
	all = append(all, c.Models()...)
	all = append(all, extra...)
	return New(all...)
}

// DefaultModels is the built-in model table. Prices are dollars per 1K tokens.
func DefaultModels() []Model {
	return []Model{
		// 4K response limit even where the context window is larger.
		{Name: "gpt-3.5-turbo", Provider: ProviderOpenAI, ContextLimit: 4096, InputCostPer1K: 0.0015, OutputCostPer1K: 0.002, ChatFormat: true},
		{Name: "gpt-3.5-turbo-1106", Provider: ProviderOpenAI, ContextLimit: 4096, InputCostPer1K: 0.0010, OutputCostPer1K: 0.002, ChatFormat: true},
		{Name: "gpt-3.5-turbo-0125", Provider: ProviderOpenAI, ContextLimit: 4096, InputCostPer1K: 0.0005, OutputCostPer1K: 0.0015, ChatFormat: true},
		{Name: "gpt-4", Provider: ProviderOpenAI, ContextLimit: 8192, InputCostPer1K: 0.03, OutputCostPer1K: 0.06, ChatFormat: true},
		{Name: "gpt-4-0613", Provider: ProviderOpenAI, ContextLimit: 8192, InputCostPer1K: 0.03, OutputCostPer1K: 0.06, ChatFormat: true},
		// cl100k_base approximates Claude and Llama tokenization.
		{Name: "claude-3-haiku-20240307", Provider: ProviderClaude, Encoding: "cl100k_base", ContextLimit: 200000, MaxOutputTokens: 4096, InputCostPer1K: 0.00025, OutputCostPer1K: 0.00125, ChatFormat: true},
		{Name: "llama3.2", Provider: ProviderOllama, Encoding: "cl100k_base", ContextLimit: 8192, ChatFormat: true},
	}
}

// Default returns a Catalog built from DefaultModels.
func Default() *Catalog {
	c, err := New(DefaultModels()...)
	if err != nil {
		panic(err) // built-in table is static
	}
	return c
}
