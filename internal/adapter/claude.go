package adapter

import (
	"context"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/askai/askai/internal/catalog"
)

// claudeAdapter implements Completer for Anthropic Claude.
type claudeAdapter struct {
	client *anthropic.Client
}

// NewClaude creates a Claude adapter. If opts.AnthropicKey is empty,
// ANTHROPIC_API_KEY is used.
func NewClaude(opts Options) Completer {
	key := opts.AnthropicKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	clientOpts := []anthropic.ClientOption{anthropic.WithHTTPClient(opts.httpClient())}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(opts.BaseURL))
	}
	return &claudeAdapter{
		client: anthropic.NewClient(key, clientOpts...),
	}
}

func (c *claudeAdapter) Provider() string { return catalog.ProviderClaude }

func (c *claudeAdapter) Complete(ctx context.Context, req Request) (Response, error) {
	messages := make([]anthropic.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := anthropic.RoleUser
		if m.Role == RoleAssistant {
			role = anthropic.RoleAssistant
		}
		messages = append(messages, anthropic.Message{
			Role:    role,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
		})
	}

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return Response{}, fmt.Errorf("claude complete: %w", err)
	}

	var b strings.Builder
	for _, part := range resp.Content {
		if part.Type == anthropic.MessagesContentTypeText {
			b.WriteString(part.GetText())
		}
	}
	return Response{
		Text:         b.String(),
		TokensInput:  resp.Usage.InputTokens,
		TokensOutput: resp.Usage.OutputTokens,
	}, nil
}
