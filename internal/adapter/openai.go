package adapter

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/askai/askai/internal/catalog"
)

// DefaultModerationModel is the OpenAI moderation model used when none is set.
const DefaultModerationModel = openai.ModerationTextLatest

// openaiAdapter implements Completer and Moderator for OpenAI.
type openaiAdapter struct {
	client          *openai.Client
	moderationModel string
}

func newOpenAIClient(opts Options) *openai.Client {
	key := opts.OpenAIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	cfg := openai.DefaultConfig(key)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = opts.httpClient()
	return openai.NewClientWithConfig(cfg)
}

// NewOpenAI creates an OpenAI completion adapter. If opts.OpenAIKey is empty,
// OPENAI_API_KEY is used.
func NewOpenAI(opts Options) Completer {
	return &openaiAdapter{client: newOpenAIClient(opts)}
}

// NewModerator creates an OpenAI moderation client. An empty model selects
// DefaultModerationModel.
func NewModerator(opts Options, model string) Moderator {
	if model == "" {
		model = DefaultModerationModel
	}
	return &openaiAdapter{client: newOpenAIClient(opts), moderationModel: model}
}

func (o *openaiAdapter) Provider() string { return catalog.ProviderOpenAI }

func (o *openaiAdapter) Complete(ctx context.Context, req Request) (Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return Response{}, fmt.Errorf("openai complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("openai complete: response has no choices")
	}
	return Response{
		Text:         resp.Choices[0].Message.Content,
		TokensInput:  resp.Usage.PromptTokens,
		TokensOutput: resp.Usage.CompletionTokens,
	}, nil
}

func (o *openaiAdapter) Moderate(ctx context.Context, text string) (bool, error) {
	resp, err := o.client.Moderations(ctx, openai.ModerationRequest{
		Input: text,
		Model: o.moderationModel,
	})
	if err != nil {
		return false, fmt.Errorf("openai moderate: %w", err)
	}
	for _, r := range resp.Results {
		if r.Flagged {
			return true, nil
		}
	}
	return false, nil
}
