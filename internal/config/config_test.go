package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/askai/askai/internal/catalog"
	"github.com/askai/askai/internal/scanner"
)

func TestDefaultGlobal(t *testing.T) {
	cfg := DefaultGlobal()

	if cfg.DefaultModel != "gpt-3.5-turbo-0125" {
		t.Errorf("default model: got %q", cfg.DefaultModel)
	}
	if cfg.Context.BufferTokens != 200 {
		t.Errorf("buffer tokens: got %d, want 200", cfg.Context.BufferTokens)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("timeout: got %v, want 30s", cfg.Timeout())
	}
	if !cfg.Moderation.ShowModeratedOutput {
		t.Error("moderated output should be shown once by default")
	}
	if cfg.Moderation.Model != "text-moderation-latest" {
		t.Errorf("moderation model: got %q", cfg.Moderation.Model)
	}
	if cfg.Ollama.Host != "http://localhost:11434" {
		t.Errorf("ollama host: got %q", cfg.Ollama.Host)
	}
	if cfg.Sensitivity.PresidioURL != "" {
		t.Error("presidio should be off by default")
	}

	want := map[string]float64{
		scanner.TypeEmailAddress: 0.7,
		scanner.TypePerson:       0.7,
		scanner.TypePhoneNumber:  0.7,
		scanner.TypeUKPostcode:   1.0,
	}
	for typ, bar := range want {
		if got := cfg.Sensitivity.Thresholds[typ]; got != bar {
			t.Errorf("threshold %s: got %v, want %v", typ, got, bar)
		}
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultModel != DefaultGlobal().DefaultModel {
		t.Errorf("expected defaults, got %q", cfg.DefaultModel)
	}
}

func TestLoadFile_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
default_model = "gpt-4"
owner = "alice"

[context]
buffer_tokens = 500

[completion]
timeout_seconds = 5

[moderation]
show_moderated_output = false

[sensitivity]
presidio_url = "http://localhost:5002"

[sensitivity.thresholds]
PERSON = 0.85

[[models]]
name = "gpt-3.5-turbo"
provider = "openai"
context_limit = 16385
input_cost_per_1k = 0.0005
output_cost_per_1k = 0.0015
chat_format = true

[[models]]
name = "mistral"
provider = "ollama"
encoding = "cl100k_base"
context_limit = 32768
chat_format = true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.DefaultModel != "gpt-4" || cfg.Owner != "alice" {
		t.Errorf("top-level values not loaded: %+v", cfg)
	}
	if cfg.Context.BufferTokens != 500 {
		t.Errorf("buffer: got %d", cfg.Context.BufferTokens)
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("timeout: got %v", cfg.Timeout())
	}
	if cfg.Moderation.ShowModeratedOutput {
		t.Error("show_moderated_output should be false")
	}
	if cfg.Moderation.Model != "text-moderation-latest" {
		t.Errorf("unset moderation model should keep default, got %q", cfg.Moderation.Model)
	}

	th := cfg.Thresholds()
	if th[scanner.TypePerson] != 0.85 {
		t.Errorf("PERSON threshold: got %v", th[scanner.TypePerson])
	}
	if th[scanner.TypeUKPostcode] != 1.0 {
		t.Errorf("unlisted types keep their default, got %v", th[scanner.TypeUKPostcode])
	}

	cat, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if limit, _ := cat.Limit("gpt-3.5-turbo"); limit != 16385 {
		t.Errorf("override not applied: limit %d", limit)
	}
	if _, err := cat.Lookup("mistral"); err != nil {
		t.Errorf("extra model missing: %v", err)
	}
	if _, err := cat.Lookup("gpt-4-0613"); err != nil {
		t.Errorf("built-in model lost: %v", err)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("default_model = [unterminated"), 0o644)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestCatalog_InvalidEntries(t *testing.T) {
	cfg := DefaultGlobal()
	cfg.Models = []catalog.Model{{Name: "broken", Provider: "openai"}}
	if _, err := cfg.Catalog(); err == nil {
		t.Error("expected error for zero context limit")
	}

	cfg = DefaultGlobal()
	cfg.DefaultModel = "davinci"
	_, err := cfg.Catalog()
	if !errors.Is(err, catalog.ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel for default model, got %v", err)
	}
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key-123")
	t.Setenv("ASKAI_OWNER", "bob")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Keys.OpenAI != "test-key-123" {
		t.Errorf("expected env override, got %q", cfg.Keys.OpenAI)
	}
	if cfg.Owner != "bob" {
		t.Errorf("owner: got %q", cfg.Owner)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultGlobal()
	cfg.DefaultModel = "gpt-4"
	cfg.Keys.OpenAI = "sk-test"

	if err := SaveFile(path, cfg); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode: got %v", info.Mode().Perm())
	}

	t.Setenv("OPENAI_API_KEY", "")
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.DefaultModel != "gpt-4" || loaded.Keys.OpenAI != "sk-test" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestDBPath(t *testing.T) {
	cfg := DefaultGlobal()
	path, err := cfg.DBPath()
	if err != nil {
		t.Fatalf("DBPath: %v", err)
	}
	if filepath.Base(path) != "askai.db" || !filepath.IsAbs(path) {
		t.Errorf("unexpected default path %q", path)
	}

	cfg.DatabasePath = "/tmp/x.db"
	if path, _ := cfg.DBPath(); path != "/tmp/x.db" {
		t.Errorf("explicit path ignored: %q", path)
	}
}

func TestGlobalConfigPath(t *testing.T) {
	path, err := GlobalConfigPath()
	if err != nil {
		t.Fatalf("GlobalConfigPath: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.toml" {
		t.Errorf("expected config.toml, got %q", filepath.Base(path))
	}
}
