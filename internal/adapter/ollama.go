package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/askai/askai/internal/catalog"
)

// ollamaAdapter implements Completer for a local Ollama instance.
type ollamaAdapter struct {
	host   string
	client *http.Client
}

// NewOllama creates an Ollama adapter. opts.BaseURL wins over opts.OllamaHost.
func NewOllama(opts Options) Completer {
	host := opts.OllamaHost
	if opts.BaseURL != "" {
		host = opts.BaseURL
	}
	if host == "" {
		host = DefaultOllamaHost
	}
	return &ollamaAdapter{
		host:   strings.TrimRight(host, "/"),
		client: opts.httpClient(),
	}
}

func (o *ollamaAdapter) Provider() string { return catalog.ProviderOllama }

// ollamaChatRequest is the request body for the Ollama chat API.
type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaChatResponse is the single, non-streamed reply.
type ollamaChatResponse struct {
	Message         ollamaChatMessage `json:"message"`
	Done            bool              `json:"done"`
	PromptEvalCount int               `json:"prompt_eval_count"`
	EvalCount       int               `json:"eval_count"`
}

func (o *ollamaAdapter) Complete(ctx context.Context, req Request) (Response, error) {
	messages := make([]ollamaChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, ollamaChatMessage{Role: m.Role, Content: m.Content})
	}

	chat := ollamaChatRequest{Model: req.Model, Messages: messages}
	if req.MaxTokens > 0 {
		chat.Options = map[string]any{"num_predict": req.MaxTokens}
	}
	body, err := json.Marshal(chat)
	if err != nil {
		return Response{}, fmt.Errorf("ollama complete marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("ollama complete request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("ollama complete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Response{}, fmt.Errorf("ollama complete: %w", &StatusError{
			Provider:   catalog.ProviderOllama,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		})
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("ollama complete decode: %w", err)
	}
	return Response{
		Text:         out.Message.Content,
		TokensInput:  out.PromptEvalCount,
		TokensOutput: out.EvalCount,
	}, nil
}
