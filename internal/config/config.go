package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "llama-3.3-70b-versatile"
)

// Config selects the model endpoint used for explanations. An empty APIKey is
// a valid configuration: the session runs without model integration and only
// the replayed command output is shown.
type Config struct {
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

func (c Config) ModelConfigured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Load reads the YAML config file (if present), then applies environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Config{Provider: ProviderOpenAI}

	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// No config file; env vars may still provide everything.
	default:
		return Config{}, err
	}

	applyEnv(&cfg)
	return normalize(cfg)
}

func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "rubberduck", "config.yaml")
	}
	return "config.yaml"
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DUCK_PROVIDER")); v != "" {
		cfg.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("DUCK_API_KEY")); v != "" {
		cfg.APIKey = v
	} else if cfg.APIKey == "" {
		// Legacy variable from before the provider split.
		cfg.APIKey = strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	}
	if v := strings.TrimSpace(os.Getenv("DUCK_BASE_URL")); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DUCK_MODEL")); v != "" {
		cfg.Model = v
	}
	if raw := strings.TrimSpace(os.Getenv("DUCK_MAX_TOKENS")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}
}

func normalize(cfg Config) (Config, error) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	switch cfg.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return Config{}, fmt.Errorf("unknown provider: %q", cfg.Provider)
	}

	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)
	// The Groq endpoint and model are openai-provider defaults only. For
	// anthropic both stay empty so the SDK's own endpoint and the client's
	// model fallback apply.
	if cfg.Provider == ProviderOpenAI {
		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = defaultModel
		}
	}
	return cfg, nil
}
