package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	ctxpkg "github.com/askai/askai/internal/context"
	"github.com/askai/askai/internal/conversation"
	"github.com/askai/askai/internal/db"
	"github.com/askai/askai/internal/pipeline"
	"github.com/askai/askai/internal/safety"
)

type fakePipeline struct {
	submitted []string
	confirmed []string
	outcome   pipeline.Outcome
}

func (f *fakePipeline) SubmitTurn(_ context.Context, convID, owner, text, model string) (pipeline.Outcome, error) {
	f.submitted = append(f.submitted, strings.Join([]string{convID, owner, text, model}, "|"))
	return f.outcome, nil
}

func (f *fakePipeline) ConfirmTurn(_ context.Context, turnID string, sensitive bool) (pipeline.Outcome, error) {
	f.confirmed = append(f.confirmed, turnID)
	return f.outcome, nil
}

func setupServer(t *testing.T) (*Server, *fakePipeline, *conversation.Store) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	store := conversation.NewStore(database)
	p := &fakePipeline{}
	return NewServer(p, store, ctxpkg.NewFormatter(true), "alice", "gpt-3.5-turbo-0125", "test"), p, store
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func seedTurn(t *testing.T, store *conversation.Store, owner, text string) (conversation.Conversation, conversation.Turn) {
	t.Helper()
	ctx := context.Background()
	c, err := store.CreateConversation(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	turn := conversation.NewTurn(c.ID, "gpt-3.5-turbo-0125", text)
	if err := turn.Apply(safety.EventCleared); err != nil {
		t.Fatal(err)
	}
	if err := turn.Complete("hola", false, conversation.Usage{TokensInput: 57, TokensOutput: 17, CostInputDollars: 0.0000285, CostOutputDollars: 0.0000255}); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertTurn(ctx, &turn); err != nil {
		t.Fatal(err)
	}
	return c, turn
}

func TestSubmitTurn_UsesDefaultModel(t *testing.T) {
	s, p, _ := setupServer(t)
	p.outcome = pipeline.Outcome{Kind: pipeline.KindCompleted, TurnID: "7", AssistantText: "hi"}

	res, err := s.handleSubmitTurn(context.Background(), call(map[string]any{"text": "hello"}))
	if err != nil {
		t.Fatalf("handleSubmitTurn: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if len(p.submitted) != 1 || p.submitted[0] != "|alice|hello|gpt-3.5-turbo-0125" {
		t.Errorf("submitted = %v", p.submitted)
	}

	var out pipeline.Outcome
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("result is not an outcome: %v", err)
	}
	if out.Kind != pipeline.KindCompleted || out.AssistantText != "hi" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestSubmitTurn_MissingText(t *testing.T) {
	s, p, _ := setupServer(t)
	res, err := s.handleSubmitTurn(context.Background(), call(map[string]any{"text": "  "}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected a tool error for blank text")
	}
	if len(p.submitted) != 0 {
		t.Error("blank text must not reach the pipeline")
	}
}

func TestConfirmTurn_RejectsOtherOwnersTurn(t *testing.T) {
	s, p, store := setupServer(t)
	_, turn := seedTurn(t, store, "bob", "hello")

	res, err := s.handleConfirmTurn(context.Background(), call(map[string]any{"turn_id": turn.ID, "sensitive": false}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected a tool error for another owner's turn")
	}
	if len(p.confirmed) != 0 {
		t.Error("foreign turn must not reach the pipeline")
	}
}

func TestConfirmTurn_OwnTurn(t *testing.T) {
	s, p, store := setupServer(t)
	_, turn := seedTurn(t, store, "alice", "hello")
	p.outcome = pipeline.Outcome{Kind: pipeline.KindWithheld, RetryText: "hello"}

	res, err := s.handleConfirmTurn(context.Background(), call(map[string]any{"turn_id": turn.ID, "sensitive": true}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if len(p.confirmed) != 1 || p.confirmed[0] != turn.ID {
		t.Errorf("confirmed = %v", p.confirmed)
	}
}

func TestListConversations(t *testing.T) {
	s, _, store := setupServer(t)
	c, _ := seedTurn(t, store, "alice", "What is the capital of Spain?")
	seedTurn(t, store, "bob", "not mine")

	res, err := s.handleListConversations(context.Background(), call(map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, c.ID) || !strings.Contains(text, "What is the capital of Spain?") {
		t.Errorf("listing missing own conversation:\n%s", text)
	}
	if strings.Contains(text, "not mine") {
		t.Errorf("listing shows another owner's conversation:\n%s", text)
	}
}

func TestListConversations_BadDate(t *testing.T) {
	s, _, _ := setupServer(t)
	res, err := s.handleListConversations(context.Background(), call(map[string]any{"from": "yesterday"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected a tool error for a bad date")
	}
}

func TestGetConversation(t *testing.T) {
	s, _, store := setupServer(t)
	c, _ := seedTurn(t, store, "alice", "What is the capital of Spain?")

	res, err := s.handleGetConversation(context.Background(), call(map[string]any{"conversation_id": c.ID}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "hola") {
		t.Errorf("transcript missing assistant text:\n%s", text)
	}

	_, other := seedTurn(t, store, "bob", "secret")
	res, err = s.handleGetConversation(context.Background(), call(map[string]any{"conversation_id": other.ConversationID}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected a tool error for another owner's conversation")
	}
}

func TestTotalSpend(t *testing.T) {
	s, _, store := setupServer(t)
	seedTurn(t, store, "alice", "one")
	seedTurn(t, store, "bob", "two")

	res, err := s.handleTotalSpend(context.Background(), call(nil))
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); got != "$0.000054" {
		t.Errorf("spend = %q, want $0.000054", got)
	}
}

func TestDateWindow(t *testing.T) {
	from, to, err := dateWindow("2024-03-01", "2024-03-02")
	if err != nil {
		t.Fatal(err)
	}
	if !from.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", from)
	}
	if to.Day() != 2 || to.Hour() != 23 {
		t.Errorf("to = %v, want end of 2024-03-02", to)
	}
	if _, _, err := dateWindow("2024-03-02", "2024-03-01"); err == nil {
		t.Error("expected an error for an inverted window")
	}
	from, to, err = dateWindow("", "")
	if err != nil || !from.IsZero() || !to.IsZero() {
		t.Errorf("open window = %v %v %v", from, to, err)
	}
}
