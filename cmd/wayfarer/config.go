// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	wayfarerconfig "github.com/teradata-labs/wayfarer/pkg/config"
	"github.com/zalando/go-keyring"
)

const (
	// ServiceName for keyring storage
	ServiceName = "wayfarer"
	// DefaultConfigFileName is the name of the config file
	DefaultConfigFileName = "wayfarer"
)

// Config holds all configuration for the wayfarer CLI.
// Priority: CLI flags > config file > env vars > defaults
type Config struct {
	// DataDir is the wayfarer data directory (computed from WAYFARER_DATA_DIR env var or ~/.wayfarer)
	// This field is set during config initialization and is read-only.
	// It is not loaded from config file - use WAYFARER_DATA_DIR environment variable to override.
	DataDir string `mapstructure:"-"`

	// LLM provider configuration
	LLM LLMConfig `mapstructure:"llm"`

	// Planner pipeline configuration
	Planner PlannerConfig `mapstructure:"planner"`

	// Database configuration (run history)
	Database DatabaseConfig `mapstructure:"database"`

	// Prompts configuration (compiled-in defaults or file overrides)
	Prompts PromptsConfig `mapstructure:"prompts"`

	// Tools configuration (capability provider endpoints and API keys)
	Tools ToolsConfig `mapstructure:"tools"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	// Provider is the LLM provider: anthropic, bedrock, gemini, ollama
	Provider string `mapstructure:"provider"`

	// Anthropic configuration
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	AnthropicModel  string `mapstructure:"anthropic_model"`

	// AWS Bedrock configuration
	BedrockRegion          string `mapstructure:"bedrock_region"`
	BedrockAccessKeyID     string `mapstructure:"bedrock_access_key_id"`
	BedrockSecretAccessKey string `mapstructure:"bedrock_secret_access_key"`
	BedrockSessionToken    string `mapstructure:"bedrock_session_token"`
	BedrockProfile         string `mapstructure:"bedrock_profile"`
	BedrockModelID         string `mapstructure:"bedrock_model_id"`

	// Google Gemini configuration
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	GeminiModel  string `mapstructure:"gemini_model"`

	// Ollama configuration (local inference)
	OllamaEndpoint string `mapstructure:"ollama_endpoint"`
	OllamaModel    string `mapstructure:"ollama_model"`
	OllamaToolMode string `mapstructure:"ollama_tool_mode"` // native or prompted

	// Common generation parameters (apply to all providers)
	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`

	// Client-side rate limiting, shared across concurrent runs
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig holds client-side LLM throttling configuration.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	TokensPerMinute   int     `mapstructure:"tokens_per_minute"` // 0 limits by request count only
}

// PlannerConfig holds pipeline tuning knobs.
type PlannerConfig struct {
	// MaxRegenerations caps supervisor jump-backs per request
	MaxRegenerations int `mapstructure:"max_regenerations"`

	// MaxToolRounds caps tool-call rounds within a single stage
	MaxToolRounds int `mapstructure:"max_tool_rounds"`

	// StageTimeoutSeconds bounds each stage (0 = no per-stage deadline)
	StageTimeoutSeconds int `mapstructure:"stage_timeout_seconds"`
}

// DatabaseConfig holds run history storage configuration.
type DatabaseConfig struct {
	// Path is the SQLite database file path
	Path string `mapstructure:"path"`

	// SaveRuns persists a snapshot of every finished run
	SaveRuns bool `mapstructure:"save_runs"`
}

// PromptsConfig holds prompt registry configuration.
type PromptsConfig struct {
	// Source selects the registry: static (compiled-in defaults) or file
	Source string `mapstructure:"source"`

	// FileDir is the directory holding prompt YAML files (file source only).
	// Edits are hot-reloaded while the process runs.
	FileDir string `mapstructure:"file_dir"`
}

// ToolsConfig holds per-tool configuration for the builtin capability providers.
// Zero values fall back to each provider's defaults.
type ToolsConfig struct {
	Hotels      HotelsToolConfig      `mapstructure:"hotels"`
	Weather     WeatherToolConfig     `mapstructure:"weather"`
	Attractions AttractionsToolConfig `mapstructure:"attractions"`
	Currency    CurrencyToolConfig    `mapstructure:"currency"`
	Search      SearchToolConfig      `mapstructure:"search"`
}

// HotelsToolConfig configures the search_hotels provider.
type HotelsToolConfig struct {
	Endpoint          string  `mapstructure:"endpoint"`
	APIKey            string  `mapstructure:"api_key"` // Set via keyring, not config file
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// WeatherToolConfig configures the get_weather provider (Open-Meteo, no credential).
type WeatherToolConfig struct {
	GeocodingEndpoint string  `mapstructure:"geocoding_endpoint"`
	ForecastEndpoint  string  `mapstructure:"forecast_endpoint"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// AttractionsToolConfig configures the find_attractions provider (Geoapify Places).
type AttractionsToolConfig struct {
	APIKey            string  `mapstructure:"api_key"` // Set via keyring, not config file
	GeocodeEndpoint   string  `mapstructure:"geocode_endpoint"`
	PlacesEndpoint    string  `mapstructure:"places_endpoint"`
	RadiusMeters      int     `mapstructure:"radius_meters"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// CurrencyToolConfig configures the convert_currency provider.
type CurrencyToolConfig struct {
	PrimaryEndpoint   string  `mapstructure:"primary_endpoint"`
	FallbackEndpoint  string  `mapstructure:"fallback_endpoint"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// SearchToolConfig configures the web_search provider.
type SearchToolConfig struct {
	Endpoint          string  `mapstructure:"endpoint"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
	File   string `mapstructure:"file"`   // File path for log output (optional, defaults to stderr)
}

// LoadConfig loads configuration with the following priority:
// 1. Command line flags (highest priority)
// 2. Config file
// 3. Environment variables
// 4. Defaults (lowest priority)
func LoadConfig(cfgFile string) (*Config, error) {
	// Set defaults
	setDefaults()

	// Setup config file
	if cfgFile != "" {
		// Use config file from flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in standard locations
		// Config search paths (in order of priority)
		viper.AddConfigPath(wayfarerconfig.GetWayfarerDataDir()) // Wayfarer data directory (respects WAYFARER_DATA_DIR)
		viper.AddConfigPath(".")                                 // Current directory
		viper.AddConfigPath("/etc/wayfarer/")                    // System-wide
		viper.SetConfigName(DefaultConfigFileName)               // wayfarer.yaml
		viper.SetConfigType("yaml")
	}

	// Read config file (if it exists)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error occurred
			return nil, fmt.Errorf("error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
		// Config file not found; using defaults + env vars + flags
	}

	// Bind environment variables
	viper.SetEnvPrefix("WAYFARER")
	viper.AutomaticEnv()

	// Unmarshal config
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set DataDir from environment or default
	// This must be done after unmarshal since it's not loaded from config file
	config.DataDir = wayfarerconfig.GetWayfarerDataDir()

	// Load secrets from keyring if not provided via CLI/env
	// Non-fatal: keyring might not be available - user can provide secrets via CLI/env
	_ = loadSecretsFromKeyring(&config)

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	// LLM defaults
	viper.SetDefault("llm.provider", "anthropic")
	viper.SetDefault("llm.anthropic_model", "claude-sonnet-4-5-20250929")
	viper.SetDefault("llm.bedrock_region", "us-west-2")
	viper.SetDefault("llm.bedrock_model_id", "us.anthropic.claude-sonnet-4-5-20250929-v1:0") // Cross-region inference profile
	viper.SetDefault("llm.gemini_model", "gemini-2.5-flash")
	viper.SetDefault("llm.ollama_endpoint", "http://localhost:11434")
	viper.SetDefault("llm.ollama_model", "llama3.1:8b")
	viper.SetDefault("llm.temperature", 1.0)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout_seconds", 120)

	// Planner defaults
	viper.SetDefault("planner.max_regenerations", 3)
	viper.SetDefault("planner.max_tool_rounds", 4)
	viper.SetDefault("planner.stage_timeout_seconds", 0)

	// Database defaults (use wayfarer data directory)
	defaultDBPath := filepath.Join(wayfarerconfig.GetWayfarerDataDir(), "wayfarer.db")
	viper.SetDefault("database.path", defaultDBPath)
	viper.SetDefault("database.save_runs", true)

	// Prompts defaults
	// Compiled-in prompts work with zero setup; switch to the file source
	// to customize stage prompts without rebuilding.
	viper.SetDefault("prompts.source", "static")
	viper.SetDefault("prompts.file_dir", wayfarerconfig.GetWayfarerSubDir("prompts"))

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// SecretMapping defines how to load a secret from keyring into the config.
// The key is the keyring key name, and the setter is a function that applies the value to the config.
type SecretMapping struct {
	KeyringKey string
	Setter     func(*Config, string)
	IsSet      func(*Config) bool // Returns true if the value is already set (skip keyring lookup)
}

// GetSecretMappings returns all secret mappings for the application.
// Developers can extend this by adding new SecretMapping entries.
func GetSecretMappings() []SecretMapping {
	return []SecretMapping{
		{
			KeyringKey: "anthropic_api_key",
			Setter:     func(c *Config, val string) { c.LLM.AnthropicAPIKey = val },
			IsSet:      func(c *Config) bool { return c.LLM.AnthropicAPIKey != "" },
		},
		{
			KeyringKey: "bedrock_access_key_id",
			Setter:     func(c *Config, val string) { c.LLM.BedrockAccessKeyID = val },
			IsSet:      func(c *Config) bool { return c.LLM.BedrockAccessKeyID != "" },
		},
		{
			KeyringKey: "bedrock_secret_access_key",
			Setter:     func(c *Config, val string) { c.LLM.BedrockSecretAccessKey = val },
			IsSet:      func(c *Config) bool { return c.LLM.BedrockSecretAccessKey != "" },
		},
		{
			KeyringKey: "bedrock_session_token",
			Setter:     func(c *Config, val string) { c.LLM.BedrockSessionToken = val },
			IsSet:      func(c *Config) bool { return c.LLM.BedrockSessionToken != "" },
		},
		{
			KeyringKey: "gemini_api_key",
			Setter:     func(c *Config, val string) { c.LLM.GeminiAPIKey = val },
			IsSet:      func(c *Config) bool { return c.LLM.GeminiAPIKey != "" },
		},
		// Capability provider API keys
		{
			KeyringKey: "hotels_api_key",
			Setter:     func(c *Config, val string) { c.Tools.Hotels.APIKey = val },
			IsSet:      func(c *Config) bool { return c.Tools.Hotels.APIKey != "" },
		},
		{
			KeyringKey: "geoapify_api_key",
			Setter:     func(c *Config, val string) { c.Tools.Attractions.APIKey = val },
			IsSet:      func(c *Config) bool { return c.Tools.Attractions.APIKey != "" },
		},
	}
}

// loadSecretsFromKeyring loads API keys from system keyring using the secret mappings.
// This is extensible - just add more entries to GetSecretMappings().
func loadSecretsFromKeyring(config *Config) error {
	for _, mapping := range GetSecretMappings() {
		// Skip if value is already set (from CLI/env/config file)
		if mapping.IsSet(config) {
			continue
		}

		// Try to load from keyring
		value, err := GetSecretFromKeyring(mapping.KeyringKey)
		if err == nil && value != "" {
			mapping.Setter(config, value)
		}
		// Non-fatal: if keyring doesn't have the key, just continue
	}

	return nil
}

// GetSecretFromKeyring retrieves a secret from the system keyring.
func GetSecretFromKeyring(key string) (string, error) {
	return keyring.Get(ServiceName, key)
}

// SaveSecretToKeyring saves a secret to the system keyring.
func SaveSecretToKeyring(key, value string) error {
	return keyring.Set(ServiceName, key, value)
}

// DeleteSecretFromKeyring removes a secret from the system keyring.
func DeleteSecretFromKeyring(key string) error {
	return keyring.Delete(ServiceName, key)
}

// ListAvailableSecretKeys returns all known secret keys that can be stored in the keyring.
// Useful for CLI commands that need to show available options.
func ListAvailableSecretKeys() []string {
	mappings := GetSecretMappings()
	keys := make([]string, len(mappings))
	for i, mapping := range mappings {
		keys[i] = mapping.KeyringKey
	}
	return keys
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate LLM config
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}

	switch c.LLM.Provider {
	case "anthropic":
		if c.LLM.AnthropicAPIKey == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
			return fmt.Errorf("anthropic API key is required (set via --anthropic-key, ANTHROPIC_API_KEY, or save to keyring with 'wayfarer config set-secret anthropic_api_key')")
		}

	case "bedrock":
		if c.LLM.BedrockRegion == "" {
			return fmt.Errorf("bedrock region is required (set llm.bedrock_region in config)")
		}
		// Note: We don't require explicit credentials here because:
		// - User might be using AWS profile (BedrockProfile)
		// - User might be using IAM role (default credentials chain)
		// - User might be using environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)
		// The Bedrock client will handle auth validation at runtime

	case "gemini", "google":
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("gemini API key is required (save to keyring with 'wayfarer config set-secret gemini_api_key')")
		}

	case "ollama":
		if c.LLM.OllamaEndpoint == "" {
			return fmt.Errorf("ollama endpoint is required (set llm.ollama_endpoint in config)")
		}
		if c.LLM.OllamaModel == "" {
			return fmt.Errorf("ollama model is required (set llm.ollama_model in config)")
		}

	default:
		return fmt.Errorf("unsupported LLM provider: %s (must be anthropic, bedrock, gemini, or ollama)", c.LLM.Provider)
	}

	// Validate planner config
	if c.Planner.MaxRegenerations < 0 {
		return fmt.Errorf("planner.max_regenerations must be >= 0")
	}
	if c.Planner.MaxToolRounds < 1 {
		return fmt.Errorf("planner.max_tool_rounds must be >= 1")
	}

	// Validate prompts config
	switch c.Prompts.Source {
	case "static", "file":
	default:
		return fmt.Errorf("prompts.source must be static or file, got %q", c.Prompts.Source)
	}
	if c.Prompts.Source == "file" && c.Prompts.FileDir == "" {
		return fmt.Errorf("prompts.file_dir is required when prompts.source is file")
	}

	// Validate database config
	if c.Database.SaveRuns && c.Database.Path == "" {
		return fmt.Errorf("database.path is required when database.save_runs is enabled")
	}

	return nil
}

// GenerateExampleConfig generates an example configuration file.
func GenerateExampleConfig() string {
	return `# Wayfarer Configuration
# Priority: CLI flags > config file > environment variables > defaults

llm:
  # Provider options: anthropic, bedrock, gemini, ollama
  provider: anthropic

  # Anthropic configuration
  anthropic_model: claude-sonnet-4-5-20250929
  # anthropic_api_key: set via keyring (wayfarer config set-secret anthropic_api_key)

  # AWS Bedrock configuration
  bedrock_region: us-west-2
  bedrock_model_id: us.anthropic.claude-sonnet-4-5-20250929-v1:0
  # bedrock_profile: default  # Use an AWS profile instead of explicit credentials
  # bedrock_access_key_id: set via keyring (wayfarer config set-secret bedrock_access_key_id)
  # bedrock_secret_access_key: set via keyring (wayfarer config set-secret bedrock_secret_access_key)
  # bedrock_session_token: set via keyring (wayfarer config set-secret bedrock_session_token)

  # Google Gemini configuration
  gemini_model: gemini-2.5-flash
  # gemini_api_key: set via keyring (wayfarer config set-secret gemini_api_key)

  # Ollama configuration (local inference)
  ollama_endpoint: http://localhost:11434
  ollama_model: llama3.1:8b
  # ollama_tool_mode: native  # native (model emits tool calls) or prompted (JSON fallback)

  # Common generation parameters (apply to all providers)
  temperature: 1.0
  max_tokens: 4096
  timeout_seconds: 120

  # Client-side rate limiting (shared by concurrent runs)
  rate_limit:
    enabled: false
    requests_per_second: 2
    tokens_per_minute: 0  # 0 limits by request count only

planner:
  max_regenerations: 3      # Summary-directed stage re-runs per request
  max_tool_rounds: 4        # Tool-call rounds per stage
  stage_timeout_seconds: 0  # 0 disables the per-stage deadline

database:
  # path: ~/.wayfarer/wayfarer.db
  save_runs: true

prompts:
  source: static  # static (compiled-in) or file
  # file_dir: ~/.wayfarer/prompts  # Prompt YAML overrides, hot-reloaded

tools:
  # Hotel search (generic JSON API, key required when the endpoint enforces one)
  hotels:
    # endpoint: https://hotels.example.com/v1/search
    # api_key: set via keyring (wayfarer config set-secret hotels_api_key)
    timeout_seconds: 30
    requests_per_second: 4

  # Weather via Open-Meteo (no credential needed)
  weather:
    # geocoding_endpoint: https://geocoding-api.open-meteo.com/v1/search
    # forecast_endpoint: https://api.open-meteo.com/v1/forecast

  # Attractions via Geoapify Places (free tier available)
  attractions:
    # api_key: set via keyring (wayfarer config set-secret geoapify_api_key)
    radius_meters: 5000

  # Currency conversion (open.er-api.com with frankfurter.app fallback, no credential)
  currency:
    # primary_endpoint: https://open.er-api.com/v6/latest
    # fallback_endpoint: https://api.frankfurter.app/latest

  # Web search via DuckDuckGo instant answers (no credential, best-effort)
  search:
    # endpoint: https://api.duckduckgo.com/

logging:
  level: info  # debug, info, warn, error
  format: text # text, json

# Note: Secrets should NEVER be committed to config files.
# Use the keyring for secure storage:
#   wayfarer config set-secret anthropic_api_key
#   wayfarer config set-secret gemini_api_key
#   wayfarer config set-secret bedrock_access_key_id
#   wayfarer config set-secret bedrock_secret_access_key
#   wayfarer config set-secret hotels_api_key
#   wayfarer config set-secret geoapify_api_key
`
}
