package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/askai/askai/internal/adapter"
	"github.com/askai/askai/internal/catalog"
	ctxpkg "github.com/askai/askai/internal/context"
)

// DefaultTimeout bounds one external call.
const DefaultTimeout = 30 * time.Second

// OutputChecker moderates model output.
type OutputChecker interface {
	CheckOutput(ctx context.Context, text string) (bool, error)
}

// Result is the normalised outcome of one submission. Exactly one of a
// successful reply or Failure is meaningful, except that a reply whose
// output moderation failed carries both its usage and the Failure.
type Result struct {
	Text            string
	TokensInput     int
	TokensOutput    int
	HasUsage        bool
	OutputModerated bool
	Failure         *Failure
}

// OK reports whether the call succeeded and its output was checked.
func (r Result) OK() bool { return r.Failure == nil }

// Client submits conversations to the provider that serves each model.
// It never retries: a failed call is reported and the user decides.
type Client struct {
	catalog    *catalog.Catalog
	completers map[string]adapter.Completer
	checker    OutputChecker
	timeout    time.Duration
}

// NewClient creates a Client. completers is keyed by provider name.
func NewClient(cat *catalog.Catalog, completers map[string]adapter.Completer, checker OutputChecker, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{catalog: cat, completers: completers, checker: checker, timeout: timeout}
}

// Submit sends messages to model with a response cap of maxTokens. The only
// error returned is a configuration problem; call failures are in Result.
func (c *Client) Submit(ctx context.Context, messages []ctxpkg.Message, model string, maxTokens int) (Result, error) {
	m, err := c.catalog.Lookup(model)
	if err != nil {
		return Result{}, fmt.Errorf("completion: %w", err)
	}
	completer, ok := c.completers[m.Provider]
	if !ok {
		return Result{}, fmt.Errorf("completion: no client configured for provider %q", m.Provider)
	}

	req := adapter.Request{
		Model:     model,
		Messages:  make([]adapter.Message, 0, len(messages)),
		MaxTokens: maxTokens,
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, adapter.Message{Role: msg.Role, Content: msg.Content})
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	resp, err := completer.Complete(callCtx, req)
	cancel()
	if err != nil {
		return Result{Failure: Classify(err)}, nil
	}

	res := Result{
		Text:         resp.Text,
		TokensInput:  resp.TokensInput,
		TokensOutput: resp.TokensOutput,
		HasUsage:     true,
	}

	flagged, err := c.checker.CheckOutput(ctx, resp.Text)
	if err != nil {
		res.Failure = Classify(err)
		return res, nil
	}
	res.OutputModerated = flagged
	return res, nil
}
