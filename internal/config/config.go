// Package config holds operator-level configuration for an Anima
// installation: data directory, semantic adapter selection, and log
// settings. Set via env vars (ANIMA_*) or a config file
// (anima.config.yaml). Program-level state belongs to the interpreter, not
// here.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Viper keys. Each maps to an env var with the ANIMA_ prefix
// (e.g. "llm_provider" → ANIMA_LLM_PROVIDER) and to a YAML field in
// anima.config.yaml.
const (
	KeyDataDir       = "data_dir"
	KeyLLMProvider   = "llm_provider"
	KeyLLMModel      = "llm_model"
	KeyOpenAIAPIKey  = "openai_api_key"
	KeyOllamaBaseURL = "ollama_base_url"
	KeyLLMRPM        = "llm_rpm"
	KeyLogLevel      = "log_level"
)

const (
	DefaultOllamaURL = "http://localhost:11434"
	DefaultLLMRPM    = 60
	DefaultLogLevel  = "info"
)

// Provider names accepted for llm_provider. Empty means the semantic
// builtins stay disconnected and error when called.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// Config holds resolved configuration for an Anima process.
type Config struct {
	DataDir       string // Base directory for all state (~/.anima)
	LLMProvider   string // openai, ollama, mock, or empty
	LLMModel      string // provider-specific model name, empty = provider default
	OpenAIAPIKey  string // API key for the openai provider
	OllamaBaseURL string // Ollama API endpoint
	LLMRPM        int    // request budget for the semantic adapter, per minute
	LogLevel      string // zerolog level name

	usingEnvAPIKey bool
}

// MemoryDBPath returns the full path to the persistent memory SQLite
// database.
func (c *Config) MemoryDBPath() string {
	return filepath.Join(c.DataDir, "memory.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// WarnIfEnvAPIKey logs a warning when the OpenAI key came from the bare
// OPENAI_API_KEY env var rather than Anima's own configuration.
func (c *Config) WarnIfEnvAPIKey() {
	if c.usingEnvAPIKey {
		log.Warn().Msg("Using OPENAI_API_KEY from the environment; set ANIMA_OPENAI_API_KEY or anima.config.yaml instead")
	}
}

func init() {
	viper.SetEnvPrefix("ANIMA")
	viper.AutomaticEnv()
	viper.SetDefault(KeyOllamaBaseURL, DefaultOllamaURL)
	viper.SetDefault(KeyLLMRPM, DefaultLLMRPM)
	viper.SetDefault(KeyLogLevel, DefaultLogLevel)
}

// Load reads configuration from Viper (which merges env vars, config file,
// and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:       resolveDataDir(),
		LLMProvider:   viper.GetString(KeyLLMProvider),
		LLMModel:      viper.GetString(KeyLLMModel),
		OpenAIAPIKey:  viper.GetString(KeyOpenAIAPIKey),
		OllamaBaseURL: viper.GetString(KeyOllamaBaseURL),
		LLMRPM:        viper.GetInt(KeyLLMRPM),
		LogLevel:      viper.GetString(KeyLogLevel),
	}

	// Quickstart fallback for single-user development.
	if cfg.OpenAIAPIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.OpenAIAPIKey = key
			cfg.usingEnvAPIKey = true
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".anima"
	}
	return filepath.Join(home, ".anima")
}

func (c *Config) validate() error {
	switch c.LLMProvider {
	case "", ProviderOpenAI, ProviderOllama, ProviderMock:
	default:
		return fmt.Errorf("llm_provider must be one of openai, ollama, mock (got %q)", c.LLMProvider)
	}
	if c.LLMProvider == ProviderOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("llm_provider is openai but no API key is set; set ANIMA_OPENAI_API_KEY")
	}
	return nil
}
