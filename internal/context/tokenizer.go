// Package context fits conversation history into a model's context window:
// token counting, oldest-first trimming and transcript formatting.
package context

import (
	"errors"
	"fmt"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/askai/askai/internal/catalog"
)

// Chat formatting overhead for models with catalog.Model.ChatFormat.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3 // every reply is primed with <|start|>assistant<|message|>
)

// ErrUnsupportedModel is returned when a model has no known tokenizer or
// no known chat message overhead.
var ErrUnsupportedModel = errors.New("unsupported model")

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message sent to the completion API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tokenizer wraps tiktoken, resolving and caching one encoding per model.
// It is safe for concurrent use.
type Tokenizer struct {
	catalog *catalog.Catalog

	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
}

// NewTokenizer creates a Tokenizer that resolves encodings through cat.
func NewTokenizer(cat *catalog.Catalog) *Tokenizer {
	return &Tokenizer{
		catalog:   cat,
		encodings: make(map[string]*tiktoken.Tiktoken),
	}
}

func (t *Tokenizer) encoding(model string) (*tiktoken.Tiktoken, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if enc, ok := t.encodings[model]; ok {
		return enc, nil
	}

	var (
		enc *tiktoken.Tiktoken
		err error
	)
	if m, lookupErr := t.catalog.Lookup(model); lookupErr == nil && m.Encoding != "" {
		enc, err = tiktoken.GetEncoding(m.Encoding)
	} else {
		enc, err = tiktoken.EncodingForModel(model)
	}
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w: %q: %v", ErrUnsupportedModel, model, err)
	}
	t.encodings[model] = enc
	return enc, nil
}

// CountTokens returns the number of tokens in s under model's encoding.
func (t *Tokenizer) CountTokens(s, model string) (int, error) {
	enc, err := t.encoding(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(s, nil, nil)), nil
}

// CountMessageTokens returns the prompt size of msgs in the chat format:
// every message costs its role and content tokens plus a fixed overhead, and
// the reply priming is added once.
func (t *Tokenizer) CountMessageTokens(msgs []Message, model string) (int, error) {
	counts, err := t.perMessage(msgs, model)
	if err != nil {
		return 0, err
	}
	total := tokensPerReply
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// perMessage returns the cost of each message including its overhead.
func (t *Tokenizer) perMessage(msgs []Message, model string) ([]int, error) {
	m, err := t.catalog.Lookup(model)
	if err != nil || !m.ChatFormat {
		return nil, fmt.Errorf("tokenizer: %w: no message overhead known for %q", ErrUnsupportedModel, model)
	}
	enc, err := t.encoding(model)
	if err != nil {
		return nil, err
	}
	counts := make([]int, len(msgs))
	for i, msg := range msgs {
		counts[i] = tokensPerMessage +
			len(enc.Encode(msg.Role, nil, nil)) +
			len(enc.Encode(msg.Content, nil, nil))
	}
	return counts, nil
}
