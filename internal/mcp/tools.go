package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/askai/askai/internal/conversation"
	"github.com/askai/askai/internal/pipeline"
)

const dateLayout = "2006-01-02"

func (s *Server) handleSubmitTurn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil || strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}
	convID := req.GetString("conversation_id", "")
	model := req.GetString("model", s.defaultModel)

	out, err := s.pipeline.SubmitTurn(ctx, convID, s.owner, text, model)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("submit failed: %v", err)), nil
	}
	return outcomeResult(out)
}

func (s *Server) handleConfirmTurn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	turnID, err := req.RequireString("turn_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: turn_id"), nil
	}
	sensitive, err := req.RequireBool("sensitive")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: sensitive"), nil
	}

	if err := s.ownedTurn(ctx, turnID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := s.pipeline.ConfirmTurn(ctx, turnID, sensitive)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("confirm failed: %v", err)), nil
	}
	return outcomeResult(out)
}

func (s *Server) handleListConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, to, err := dateWindow(req.GetString("from", ""), req.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	convs, err := s.store.ListConversations(ctx, s.owner, from, to)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if len(convs) == 0 {
		return mcp.NewToolResultText("No conversations."), nil
	}

	var b strings.Builder
	for _, c := range convs {
		fmt.Fprintf(&b, "- %s  %s  (modified %s)\n", c.ID, c.Name, c.ModifiedAt.Format("2006-01-02 15:04"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleGetConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: conversation_id"), nil
	}

	conv, err := s.store.GetConversation(ctx, id)
	if err != nil || conv.Owner != s.owner {
		return mcp.NewToolResultError(fmt.Sprintf("conversation %s not found", id)), nil
	}
	turns, err := s.store.ListTurns(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load turns: %v", err)), nil
	}

	first := ""
	if len(turns) > 0 {
		first = turns[0].UserText
	}
	summary := conversation.Summary{Conversation: conv, Name: conversation.DisplayName(conv, first)}
	return mcp.NewToolResultText(s.formatter.FormatTranscript(summary, turns)), nil
}

func (s *Server) handleTotalSpend(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	total, err := s.store.TotalSpend(ctx, s.owner)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to total spend: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("$%.6f", total)), nil
}

// ownedTurn checks that turnID belongs to one of the owner's conversations.
func (s *Server) ownedTurn(ctx context.Context, turnID string) error {
	turn, err := s.store.GetTurn(ctx, turnID)
	if err != nil {
		return fmt.Errorf("turn %s not found", turnID)
	}
	conv, err := s.store.GetConversation(ctx, turn.ConversationID)
	if err != nil || conv.Owner != s.owner {
		return fmt.Errorf("turn %s not found", turnID)
	}
	return nil
}

func outcomeResult(out pipeline.Outcome) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal outcome: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// dateWindow parses inclusive YYYY-MM-DD bounds. Empty bounds stay open.
func dateWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time
	if fromStr != "" {
		t, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid from date %q (want YYYY-MM-DD)", fromStr)
		}
		from = t
	}
	if toStr != "" {
		t, err := time.Parse(dateLayout, toStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid to date %q (want YYYY-MM-DD)", toStr)
		}
		to = t.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, errors.New("to date is before from date")
	}
	return from, to, nil
}
