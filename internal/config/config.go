// Package config manages the global askai configuration
// (~/.config/askai/config.toml).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/askai/askai/internal/catalog"
	"github.com/askai/askai/internal/scanner"
)

// GlobalConfig holds user-wide settings.
type GlobalConfig struct {
	DefaultModel string            `toml:"default_model"`
	Owner        string            `toml:"owner"`
	DatabasePath string            `toml:"database_path"`
	Keys         KeysConfig        `toml:"keys"`
	Ollama       OllamaConfig      `toml:"ollama"`
	Context      ContextConfig     `toml:"context"`
	Completion   CompletionConfig  `toml:"completion"`
	Moderation   ModerationConfig  `toml:"moderation"`
	Sensitivity  SensitivityConfig `toml:"sensitivity"`
	// Models override or extend the built-in model table.
	Models []catalog.Model `toml:"models"`
}

type KeysConfig struct {
	Anthropic string `toml:"anthropic"`
	OpenAI    string `toml:"openai"`
}

type OllamaConfig struct {
	Host string `toml:"host"`
}

type ContextConfig struct {
	// BufferTokens is held back from every context window. Zero holds back
	// nothing.
	BufferTokens int `toml:"buffer_tokens"`
}

type CompletionConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type ModerationConfig struct {
	Model string `toml:"model"`
	// ShowModeratedOutput shows assistant text flagged by output moderation
	// once instead of suppressing it.
	ShowModeratedOutput bool `toml:"show_moderated_output"`
}

// SensitivityConfig configures the sensitive-entity scan. Entity types with a
// threshold above 1 never flag.
type SensitivityConfig struct {
	PresidioURL string             `toml:"presidio_url"`
	Language    string             `toml:"language"`
	Thresholds  map[string]float64 `toml:"thresholds"`
}

// DefaultGlobal returns sensible defaults.
func DefaultGlobal() GlobalConfig {
	return GlobalConfig{
		DefaultModel: "gpt-3.5-turbo-0125",
		Ollama: OllamaConfig{
			Host: "http://localhost:11434",
		},
		Context: ContextConfig{
			BufferTokens: 200,
		},
		Completion: CompletionConfig{
			TimeoutSeconds: 30,
		},
		Moderation: ModerationConfig{
			Model:               "text-moderation-latest",
			ShowModeratedOutput: true,
		},
		Sensitivity: SensitivityConfig{
			Language:   "en",
			Thresholds: map[string]float64(scanner.DefaultThresholds()),
		},
	}
}

// GlobalConfigDir returns the askai configuration directory.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "askai"), nil
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadGlobal loads the global config, applying defaults for any missing values.
func LoadGlobal() (GlobalConfig, error) {
	path, err := GlobalConfigPath()
	if err != nil {
		cfg := DefaultGlobal()
		applyEnv(&cfg)
		return cfg, nil // Return defaults if we can't determine home dir.
	}
	return LoadFile(path)
}

// LoadFile loads the config at path. A missing file yields the defaults.
func LoadFile(path string) (GlobalConfig, error) {
	cfg := DefaultGlobal()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("config: load %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("config: stat %s: %w", path, err)
	}

	// Types the file leaves out keep their default bar.
	for typ, bar := range scanner.DefaultThresholds() {
		if _, ok := cfg.Sensitivity.Thresholds[typ]; !ok {
			if cfg.Sensitivity.Thresholds == nil {
				cfg.Sensitivity.Thresholds = map[string]float64{}
			}
			cfg.Sensitivity.Thresholds[typ] = bar
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv lets env vars override config file values.
func applyEnv(cfg *GlobalConfig) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Keys.Anthropic = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Keys.OpenAI = v
	}
	if v := os.Getenv("ASKAI_OWNER"); v != "" {
		cfg.Owner = v
	}
}

// SaveGlobal writes the global config to disk.
func SaveGlobal(cfg GlobalConfig) error {
	path, err := GlobalConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// SaveFile writes cfg to path, creating parent directories.
func SaveFile(path string, cfg GlobalConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}

	// API keys stay out of files other users may read.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Catalog builds the model table: the built-in models with [[models]]
// entries layered on top.
func (c GlobalConfig) Catalog() (*catalog.Catalog, error) {
	cat, err := catalog.Default().With(c.Models...)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, err := cat.Lookup(c.DefaultModel); err != nil {
		return nil, fmt.Errorf("config: default_model: %w", err)
	}
	return cat, nil
}

// Timeout returns the bound on one external call.
func (c GlobalConfig) Timeout() time.Duration {
	if c.Completion.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Completion.TimeoutSeconds) * time.Second
}

// Thresholds returns the per-entity-type sensitivity thresholds.
func (c GlobalConfig) Thresholds() scanner.Thresholds {
	return scanner.Thresholds(c.Sensitivity.Thresholds)
}

// DBPath returns the SQLite database location.
func (c GlobalConfig) DBPath() (string, error) {
	if c.DatabasePath != "" {
		return c.DatabasePath, nil
	}
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: database path: %w", err)
	}
	return filepath.Join(dir, "askai.db"), nil
}
