// Package pipeline runs a user's input through the safety gate, the context
// budget and the external model, persisting the turn at every step.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/askai/askai/internal/completion"
	ctxpkg "github.com/askai/askai/internal/context"
	"github.com/askai/askai/internal/conversation"
	"github.com/askai/askai/internal/ledger"
	"github.com/askai/askai/internal/safety"
)

// ErrNotOwner is returned when a caller touches another owner's conversation.
var ErrNotOwner = errors.New("conversation belongs to another owner")

// ErrStaleTurn is returned when a confirmation arrives for a turn that has
// since been followed by another turn in its conversation.
var ErrStaleTurn = errors.New("turn is not the latest in its conversation")

// Store persists conversations and turns.
type Store interface {
	CreateConversation(ctx context.Context, owner string) (conversation.Conversation, error)
	GetConversation(ctx context.Context, id string) (conversation.Conversation, error)
	InsertTurn(ctx context.Context, t *conversation.Turn) error
	UpdateTurn(ctx context.Context, t *conversation.Turn) error
	GetTurn(ctx context.Context, id string) (conversation.Turn, error)
	EligibleTurns(ctx context.Context, conversationID string) ([]conversation.Turn, error)
	LatestTurn(ctx context.Context, conversationID string) (conversation.Turn, error)
}

// Gate checks input before it may leave the system.
type Gate interface {
	CheckInput(ctx context.Context, text string) (safety.Verdict, error)
}

// Budgeter keeps requests inside the context window.
type Budgeter interface {
	FitsWithinBudget(text, model string, buffer int) (bool, error)
	TrimToBudget(msgs []ctxpkg.Message, model string, buffer int) (int, []ctxpkg.Message, error)
	MaxResponseTokens(model string, consumed int) (int, error)
}

// Submitter performs the external call.
type Submitter interface {
	Submit(ctx context.Context, messages []ctxpkg.Message, model string, maxTokens int) (completion.Result, error)
}

// Pricer turns reported usage into recorded cost.
type Pricer interface {
	Usage(model string, tokensInput, tokensOutput int) (conversation.Usage, error)
}

// Options tune the pipeline.
type Options struct {
	// BufferTokens is reserved out of every context window. Zero reserves
	// nothing; a negative value selects DefaultBufferTokens.
	BufferTokens int
	// ShowModeratedOutput returns assistant text flagged by output
	// moderation to the user once. When false the text is stored but the
	// outcome carries none of it.
	ShowModeratedOutput bool
}

// DefaultBufferTokens is the context reserve used when Options.BufferTokens
// is negative.
const DefaultBufferTokens = 200

// Service is the prompt submission pipeline. It holds no per-turn state;
// one Service serves concurrent submissions for different conversations.
type Service struct {
	store  Store
	gate   Gate
	budget Budgeter
	client Submitter
	pricer Pricer
	opts   Options
	log    *slog.Logger
}

// New creates a Service. A nil logger discards logs.
func New(store Store, gate Gate, budget Budgeter, client Submitter, pricer Pricer, opts Options, logger *slog.Logger) *Service {
	if opts.BufferTokens < 0 {
		opts.BufferTokens = DefaultBufferTokens
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:  store,
		gate:   gate,
		budget: budget,
		client: client,
		pricer: pricer,
		opts:   opts,
		log:    logger,
	}
}

// SubmitTurn runs userText through the pipeline as a new turn of
// conversationID, creating the conversation for owner when the ID is empty.
// Every user-facing result is an Outcome; the error return is reserved for
// configuration and storage failures.
func (s *Service) SubmitTurn(ctx context.Context, conversationID, owner, userText, model string) (Outcome, error) {
	fits, err := s.budget.FitsWithinBudget(userText, model, s.opts.BufferTokens)
	if err != nil {
		return Outcome{}, fmt.Errorf("pipeline: %w", err)
	}
	if !fits {
		s.log.Info("input exceeds context budget", "model", model, "conversation", conversationID)
		return Outcome{Kind: KindTooLong, ConversationID: conversationID, RetryText: userText}, nil
	}

	conv, err := s.conversation(ctx, conversationID, owner)
	if err != nil {
		return Outcome{}, err
	}

	turn := conversation.NewTurn(conv.ID, model, userText)
	if err := s.store.InsertTurn(ctx, &turn); err != nil {
		return Outcome{}, fmt.Errorf("pipeline: %w", err)
	}
	s.log.Debug("turn created", "turn", turn.ID, "conversation", conv.ID, "model", model)

	verdict, err := s.gate.CheckInput(ctx, userText)
	if err != nil {
		return s.fail(ctx, &turn, completion.Classify(err), conversation.Usage{}, false)
	}

	switch verdict.Event {
	case safety.EventSensitivityFlagged:
		err = turn.Hold(verdict.Entities)
	default:
		err = turn.Apply(verdict.Event)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("pipeline: %w", err)
	}
	if err := s.save(ctx, &turn); err != nil {
		return Outcome{}, err
	}

	switch turn.State {
	case safety.StateBlocked:
		return Outcome{Kind: KindBlocked, ConversationID: conv.ID, TurnID: turn.ID}, nil
	case safety.StatePendingConfirmation:
		return Outcome{Kind: KindNeedsConfirmation, ConversationID: conv.ID, TurnID: turn.ID, Entities: turn.Entities}, nil
	}
	return s.complete(ctx, &turn)
}

// ConfirmTurn applies the user's answer to a turn waiting for confirmation.
// A turn confirmed as not sensitive is submitted straight away. Only the
// latest turn of a conversation can be confirmed.
func (s *Service) ConfirmTurn(ctx context.Context, turnID string, sensitive bool) (Outcome, error) {
	turn, err := s.store.GetTurn(ctx, turnID)
	if err != nil {
		return Outcome{}, fmt.Errorf("pipeline: %w", err)
	}
	latest, err := s.store.LatestTurn(ctx, turn.ConversationID)
	if err != nil {
		return Outcome{}, fmt.Errorf("pipeline: %w", err)
	}
	if latest.ID != turn.ID {
		return Outcome{}, fmt.Errorf("pipeline: confirm turn %s: %w", turnID, ErrStaleTurn)
	}
	if err := turn.Confirm(sensitive); err != nil {
		return Outcome{}, fmt.Errorf("pipeline: confirm turn %s: %w", turnID, err)
	}
	if err := s.save(ctx, &turn); err != nil {
		return Outcome{}, err
	}
	if sensitive {
		return Outcome{
			Kind:           KindWithheld,
			ConversationID: turn.ConversationID,
			TurnID:         turn.ID,
			RetryText:      turn.UserText,
		}, nil
	}
	return s.complete(ctx, &turn)
}

// RetryText returns the input of the conversation's latest turn so the user
// can edit and resubmit it as a new turn.
func (s *Service) RetryText(ctx context.Context, conversationID string) (string, error) {
	turn, err := s.store.LatestTurn(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("pipeline: %w", err)
	}
	return turn.UserText, nil
}

func (s *Service) conversation(ctx context.Context, id, owner string) (conversation.Conversation, error) {
	if id == "" {
		conv, err := s.store.CreateConversation(ctx, owner)
		if err != nil {
			return conv, fmt.Errorf("pipeline: %w", err)
		}
		s.log.Debug("conversation created", "conversation", conv.ID, "owner", owner)
		return conv, nil
	}
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return conv, fmt.Errorf("pipeline: %w", err)
	}
	if owner != "" && conv.Owner != owner {
		return conv, fmt.Errorf("pipeline: %s: %w", id, ErrNotOwner)
	}
	return conv, nil
}

// complete submits a ready turn. A turn still ready when an error cuts the
// submission short is moved to errored so it never stays in flight.
func (s *Service) complete(ctx context.Context, turn *conversation.Turn) (Outcome, error) {
	out, err := s.submit(ctx, turn)
	if err == nil || turn.State != safety.StateReady {
		return out, err
	}
	s.log.Error("turn aborted", "turn", turn.ID, "conversation", turn.ConversationID, "error", err, "alert", "operator")
	if ferr := turn.Fail(false); ferr == nil {
		if serr := s.store.UpdateTurn(ctx, turn); serr != nil {
			s.log.Error("save aborted turn", "turn", turn.ID, "error", serr)
		}
	}
	return out, err
}

// submit sends a ready turn with its trimmed history to the model.
func (s *Service) submit(ctx context.Context, turn *conversation.Turn) (Outcome, error) {
	history, err := s.store.EligibleTurns(ctx, turn.ConversationID)
	if err != nil {
		return Outcome{}, fmt.Errorf("pipeline: %w", err)
	}
	msgs := ctxpkg.BuildMessages(history, turn.UserText)

	consumed, trimmed, err := s.budget.TrimToBudget(msgs, turn.Model, s.opts.BufferTokens)
	if err != nil {
		return Outcome{}, fmt.Errorf("pipeline: %w", err)
	}
	if len(trimmed) == 0 {
		// The input fit on its own but not with its message overhead.
		if err := turn.Fail(false); err != nil {
			return Outcome{}, fmt.Errorf("pipeline: %w", err)
		}
		if err := s.save(ctx, turn); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: KindTooLong, ConversationID: turn.ConversationID, TurnID: turn.ID, RetryText: turn.UserText}, nil
	}
	if dropped := len(msgs) - len(trimmed); dropped > 0 {
		s.log.Debug("history trimmed", "turn", turn.ID, "dropped", dropped, "tokens", consumed)
	}

	maxTokens, err := s.budget.MaxResponseTokens(turn.Model, consumed)
	if err != nil {
		return Outcome{}, fmt.Errorf("pipeline: %w", err)
	}

	res, err := s.client.Submit(ctx, trimmed, turn.Model, maxTokens)
	if err != nil {
		return Outcome{}, fmt.Errorf("pipeline: %w", err)
	}

	var usage conversation.Usage
	if res.HasUsage {
		usage, err = s.pricer.Usage(turn.Model, res.TokensInput, res.TokensOutput)
		if err != nil {
			return Outcome{}, fmt.Errorf("pipeline: %w", err)
		}
	}
	if res.Failure != nil {
		return s.fail(ctx, turn, res.Failure, usage, res.HasUsage)
	}

	if err := turn.Complete(res.Text, res.OutputModerated, usage); err != nil {
		return Outcome{}, fmt.Errorf("pipeline: %w", err)
	}
	if err := s.save(ctx, turn); err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Kind:            KindCompleted,
		ConversationID:  turn.ConversationID,
		TurnID:          turn.ID,
		AssistantText:   res.Text,
		OutputModerated: res.OutputModerated,
	}
	out.Cost = costOf(usage)
	if res.OutputModerated {
		s.log.Warn("output flagged by moderation", "turn", turn.ID, "conversation", turn.ConversationID)
		if !s.opts.ShowModeratedOutput {
			out.AssistantText = ""
			out.Suppressed = true
		}
	}
	return out, nil
}

// fail moves turn to errored and reports it. Fatal failures are logged for
// operators; transient ones invite the user to retry.
func (s *Service) fail(ctx context.Context, turn *conversation.Turn, f *completion.Failure, usage conversation.Usage, hasUsage bool) (Outcome, error) {
	if hasUsage {
		turn.RecordUsage(usage)
	}
	if err := turn.Fail(f.Transient()); err != nil {
		return Outcome{}, fmt.Errorf("pipeline: %w", err)
	}
	if err := s.save(ctx, turn); err != nil {
		return Outcome{}, err
	}

	if f.Transient() {
		s.log.Warn("turn failed, retry possible", "turn", turn.ID, "model", turn.Model, "err", f.Err)
	} else {
		s.log.Error("turn failed", "alert", "operator", "turn", turn.ID, "model", turn.Model, "err", f.Err)
	}
	return Outcome{
		Kind:           KindErrored,
		ConversationID: turn.ConversationID,
		TurnID:         turn.ID,
		Transient:      f.Transient(),
		RetryText:      turn.UserText,
		Cost:           costOf(usage),
	}, nil
}

func (s *Service) save(ctx context.Context, turn *conversation.Turn) error {
	if err := s.store.UpdateTurn(ctx, turn); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	s.log.Debug("turn transition", "turn", turn.ID, "state", turn.State, "sensitivity", turn.Sensitivity)
	return nil
}

func costOf(u conversation.Usage) ledger.Cost {
	return ledger.Cost{InputDollars: u.CostInputDollars, OutputDollars: u.CostOutputDollars}
}
