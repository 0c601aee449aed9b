// Package config loads service configuration in three layers: built-in
// defaults, an optional JSON file at $XDG_CONFIG_HOME/twind/config.json,
// and TWIND_* environment variable overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	OpenAI    OpenAIConfig    `json:"openai"`
	Retrieval RetrievalConfig `json:"retrieval"`
	Session   SessionConfig   `json:"session"`
	Storage   StorageConfig   `json:"storage"`
	Log       LogConfig       `json:"log"`
}

type ServerConfig struct {
	Port int `json:"port"`
}

type OpenAIConfig struct {
	APIKey      string  `json:"api_key"`
	BaseURL     string  `json:"base_url"`
	ChatModel   string  `json:"chat_model"`
	EmbedModel  string  `json:"embed_model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type RetrievalConfig struct {
	Threshold float64 `json:"threshold"`
}

type SessionConfig struct {
	MaxSessions int    `json:"max_sessions"`
	IdleTimeout string `json:"idle_timeout"`
}

type StorageConfig struct {
	DataDir string `json:"data_dir"`
}

type LogConfig struct {
	Level string `json:"level"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		OpenAI: OpenAIConfig{
			ChatModel:   "gpt-4.1",
			EmbedModel:  "text-embedding-3-small",
			Temperature: 0.7,
			MaxTokens:   2000,
		},
		Retrieval: RetrievalConfig{
			Threshold: 0.3,
		},
		Session: SessionConfig{
			MaxSessions: 1000,
			IdleTimeout: "1h",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".local", "share", "twind")
}

// ConfigFilePath returns the JSON config file location, honoring
// $XDG_CONFIG_HOME.
func ConfigFilePath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join("twind", "config.json")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "twind", "config.json")
}

// Load reads configuration from defaults, the JSON config file (if present),
// and TWIND_* environment variables, in increasing precedence. The OpenAI
// API key is required.
func Load() (Config, error) {
	return loadFrom(ConfigFilePath())
}

func loadFrom(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults plus env is a fully working setup.
	case err != nil:
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.OpenAI.APIKey == "" {
		return Config{}, errors.New(
			"missing required config: OpenAI API key. Set it via environment variable TWIND_OPENAI_API_KEY")
	}
	if _, err := cfg.SessionIdleTimeout(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// SessionIdleTimeout parses the configured idle timeout.
func (c Config) SessionIdleTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Session.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("parsing session.idle_timeout %q: %w", c.Session.IdleTimeout, err)
	}
	return d, nil
}

func applyEnvOverrides(cfg *Config) {
	envString("TWIND_OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	envString("TWIND_OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	envString("TWIND_OPENAI_CHAT_MODEL", &cfg.OpenAI.ChatModel)
	envString("TWIND_OPENAI_EMBED_MODEL", &cfg.OpenAI.EmbedModel)
	envFloat("TWIND_OPENAI_TEMPERATURE", &cfg.OpenAI.Temperature)
	envInt("TWIND_OPENAI_MAX_TOKENS", &cfg.OpenAI.MaxTokens)
	envInt("TWIND_SERVER_PORT", &cfg.Server.Port)
	envFloat("TWIND_RETRIEVAL_THRESHOLD", &cfg.Retrieval.Threshold)
	envInt("TWIND_SESSION_MAX_SESSIONS", &cfg.Session.MaxSessions)
	envString("TWIND_SESSION_IDLE_TIMEOUT", &cfg.Session.IdleTimeout)
	envString("TWIND_STORAGE_DATA_DIR", &cfg.Storage.DataDir)
	envString("TWIND_LOG_LEVEL", &cfg.Log.Level)
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	if i, err := strconv.Atoi(raw); err == nil {
		*dst = i
	} else {
		fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", name, raw, err)
	}
}

func envFloat(name string, dst *float64) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*dst = f
	} else {
		fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", name, raw, err)
	}
}
