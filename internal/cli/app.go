package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/askai/askai/internal/adapter"
	"github.com/askai/askai/internal/catalog"
	"github.com/askai/askai/internal/completion"
	"github.com/askai/askai/internal/config"
	ctxpkg "github.com/askai/askai/internal/context"
	"github.com/askai/askai/internal/conversation"
	"github.com/askai/askai/internal/db"
	"github.com/askai/askai/internal/ledger"
	"github.com/askai/askai/internal/pipeline"
	"github.com/askai/askai/internal/safety"
	"github.com/askai/askai/internal/scanner"
)

// app is everything a command needs, wired from the global config.
type app struct {
	cfg       config.GlobalConfig
	catalog   *catalog.Catalog
	db        *db.DB
	store     *conversation.Store
	pipeline  *pipeline.Service
	formatter *ctxpkg.Formatter
	owner     string
	log       *slog.Logger
}

func loadConfig() (config.GlobalConfig, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.LoadGlobal()
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// resolveOwner picks the identity conversations are recorded under.
func resolveOwner(cfg config.GlobalConfig) string {
	if cfg.Owner != "" {
		return cfg.Owner
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// openStore opens only the conversation store, for read-only commands.
func openStore() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &app{
		cfg:       cfg,
		db:        database,
		store:     conversation.NewStore(database),
		formatter: ctxpkg.NewFormatter(cfg.Moderation.ShowModeratedOutput),
		owner:     resolveOwner(cfg),
		log:       newLogger(os.Stderr, verbose),
	}, nil
}

// openApp opens the store and wires the full submission pipeline.
func openApp() (*app, error) {
	a, err := openStore()
	if err != nil {
		return nil, err
	}
	cat, err := a.cfg.Catalog()
	if err != nil {
		a.close()
		return nil, err
	}
	a.catalog = cat

	opts := adapter.Options{
		OpenAIKey:    a.cfg.Keys.OpenAI,
		AnthropicKey: a.cfg.Keys.Anthropic,
		OllamaHost:   a.cfg.Ollama.Host,
		Timeout:      a.cfg.Timeout(),
	}

	detector := scanner.Detector(scanner.NewPatternDetector())
	if a.cfg.Sensitivity.PresidioURL != "" {
		presidio := scanner.NewPresidio(a.cfg.Sensitivity.PresidioURL, a.cfg.Sensitivity.Language, a.cfg.Thresholds().Types(), nil)
		detector = scanner.Combine(detector, presidio)
	}
	gate := safety.NewGate(adapter.NewModerator(opts, a.cfg.Moderation.Model), detector, a.cfg.Thresholds())

	completers := make(map[string]adapter.Completer)
	for _, p := range []string{catalog.ProviderOpenAI, catalog.ProviderClaude, catalog.ProviderOllama} {
		c, err := adapter.New(p, opts)
		if err != nil {
			a.close()
			return nil, err
		}
		completers[c.Provider()] = c
	}

	tok := ctxpkg.NewTokenizer(cat)
	a.pipeline = pipeline.New(
		a.store,
		gate,
		ctxpkg.NewAccountant(cat, tok),
		completion.NewClient(cat, completers, gate, a.cfg.Timeout()),
		ledger.New(cat),
		pipeline.Options{
			BufferTokens:        a.cfg.Context.BufferTokens,
			ShowModeratedOutput: a.cfg.Moderation.ShowModeratedOutput,
		},
		a.log,
	)
	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// model returns name, or the configured default when name is empty.
func (a *app) model(name string) string {
	if name != "" {
		return name
	}
	return a.cfg.DefaultModel
}

// ownTurn loads a turn and checks that it belongs to one of a.owner's
// conversations.
func (a *app) ownTurn(ctx context.Context, turnID string) (conversation.Turn, error) {
	turn, err := a.store.GetTurn(ctx, turnID)
	if err != nil {
		return conversation.Turn{}, err
	}
	if _, err := a.ownConversation(ctx, turn.ConversationID); err != nil {
		return conversation.Turn{}, fmt.Errorf("turn %s: %w", turnID, conversation.ErrNotFound)
	}
	return turn, nil
}

// ownConversation loads a conversation and checks that a.owner owns it.
func (a *app) ownConversation(ctx context.Context, id string) (conversation.Conversation, error) {
	conv, err := a.store.GetConversation(ctx, id)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if conv.Owner != a.owner {
		return conversation.Conversation{}, fmt.Errorf("conversation %s: %w", id, conversation.ErrNotFound)
	}
	return conv, nil
}
