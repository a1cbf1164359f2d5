// Package adapter provides a unified interface for the completion and
// moderation providers.
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/askai/askai/internal/catalog"
)

// Role values accepted in Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultOllamaHost is used when Options.OllamaHost is empty.
const DefaultOllamaHost = "http://localhost:11434"

// Message is one chat message sent to a provider.
type Message struct {
	Role    string
	Content string
}

// Request holds the parameters for a completion call.
type Request struct {
	Model     string
	Messages  []Message
	MaxTokens int
}

// Response is a finished completion with the usage the provider reported.
type Response struct {
	Text         string
	TokensInput  int
	TokensOutput int
}

// Completer is the common interface all provider adapters implement.
type Completer interface {
	// Complete sends the conversation and waits for the whole reply.
	Complete(ctx context.Context, req Request) (Response, error)

	// Provider returns the provider name.
	Provider() string
}

// Moderator flags disallowed content.
type Moderator interface {
	Moderate(ctx context.Context, text string) (bool, error)
}

// Options configures provider clients.
type Options struct {
	OpenAIKey    string
	AnthropicKey string
	OllamaHost   string
	// BaseURL overrides the provider endpoint. Used by tests and proxies.
	BaseURL string
	// Timeout bounds every HTTP call made by the client.
	Timeout time.Duration
}

func (o Options) httpClient() *http.Client {
	return &http.Client{Timeout: o.Timeout}
}

// New constructs the Completer for the named provider.
//
//   - provider: "openai", "claude", "ollama"
//   - opts.OpenAIKey / opts.AnthropicKey: empty means read from env in the concrete adapter
//   - opts.OllamaHost: base URL for the Ollama server (used only when provider == "ollama")
func New(provider string, opts Options) (Completer, error) {
	switch provider {
	case catalog.ProviderOpenAI:
		return NewOpenAI(opts), nil
	case catalog.ProviderClaude:
		return NewClaude(opts), nil
	case catalog.ProviderOllama:
		return NewOllama(opts), nil
	default:
		return nil, fmt.Errorf("adapter: unknown provider %q; valid providers: openai, claude, ollama", provider)
	}
}

// StatusError is a non-2xx answer from a provider spoken to over plain HTTP.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}
