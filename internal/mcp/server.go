// Package mcp exposes the askai pipeline as Model Context Protocol tools over
// stdio.
package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	ctxpkg "github.com/askai/askai/internal/context"
	"github.com/askai/askai/internal/conversation"
	"github.com/askai/askai/internal/pipeline"
)

// Pipeline is the subset of the submission pipeline the tools drive.
type Pipeline interface {
	SubmitTurn(ctx context.Context, conversationID, owner, userText, model string) (pipeline.Outcome, error)
	ConfirmTurn(ctx context.Context, turnID string, sensitive bool) (pipeline.Outcome, error)
}

// Store is the read side of conversation storage.
type Store interface {
	GetConversation(ctx context.Context, id string) (conversation.Conversation, error)
	GetTurn(ctx context.Context, id string) (conversation.Turn, error)
	ListConversations(ctx context.Context, owner string, from, to time.Time) ([]conversation.Summary, error)
	ListTurns(ctx context.Context, conversationID string) ([]conversation.Turn, error)
	TotalSpend(ctx context.Context, owner string) (float64, error)
}

// Server serves askai tools for one owner.
type Server struct {
	pipeline     Pipeline
	store        Store
	formatter    *ctxpkg.Formatter
	owner        string
	defaultModel string
	mcp          *server.MCPServer
}

// NewServer creates a Server and registers its tools.
func NewServer(p Pipeline, store Store, formatter *ctxpkg.Formatter, owner, defaultModel, version string) *Server {
	s := &Server{
		pipeline:     p,
		store:        store,
		formatter:    formatter,
		owner:        owner,
		defaultModel: defaultModel,
		mcp:          server.NewMCPServer("askai", version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("submit_turn",
		mcp.WithDescription("Send a message to the model through the safety gate. Returns the outcome: completed, blocked, needs_confirmation, errored or too_long."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The user message")),
		mcp.WithString("conversation_id", mcp.Description("Continue this conversation; omit to start a new one")),
		mcp.WithString("model", mcp.Description("Model name; defaults to the configured default model")),
	), s.handleSubmitTurn)

	s.mcp.AddTool(mcp.NewTool("confirm_turn",
		mcp.WithDescription("Answer a needs_confirmation outcome. sensitive=false sends the message; sensitive=true withholds it."),
		mcp.WithString("turn_id", mcp.Required(), mcp.Description("Turn awaiting confirmation")),
		mcp.WithBoolean("sensitive", mcp.Required(), mcp.Description("Whether the message contains sensitive information")),
	), s.handleConfirmTurn)

	s.mcp.AddTool(mcp.NewTool("list_conversations",
		mcp.WithDescription("List your conversations, most recently modified first."),
		mcp.WithString("from", mcp.Description("Earliest modification date, YYYY-MM-DD")),
		mcp.WithString("to", mcp.Description("Latest modification date, YYYY-MM-DD, inclusive")),
	), s.handleListConversations)

	s.mcp.AddTool(mcp.NewTool("get_conversation",
		mcp.WithDescription("Show a conversation transcript with every turn's state."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation to show")),
	), s.handleGetConversation)

	s.mcp.AddTool(mcp.NewTool("total_spend",
		mcp.WithDescription("Total dollars spent on model calls across your conversations."),
	), s.handleTotalSpend)
}
