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
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	wayfarerconfig "github.com/teradata-labs/wayfarer/pkg/config"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wayfarer configuration",
	Long:  `Manage configuration files and secrets for wayfarer.`,
}

var configExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Generate example configuration file",
	Long:  `Write an example wayfarer.yaml configuration file to the wayfarer data directory.`,
	Run:   runConfigExample,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration (merged from all sources).`,
	Run:   runConfigShow,
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret [secret-name]",
	Short: "Save a secret to the system keyring",
	Long: `Save an API key or credential to the system keyring securely.

The secret will be stored in your system's secure credential storage
(Keychain on macOS, Credential Manager on Windows, Secret Service on Linux).

Run 'wayfarer config list-secrets' to see available secret names.`,
	Args: cobra.ExactArgs(1),
	Run:  runConfigSetSecret,
}

var configGetSecretCmd = &cobra.Command{
	Use:   "get-secret [secret-name]",
	Short: "Retrieve a secret from the system keyring",
	Long:  `Retrieve a secret from the system keyring (shown partially masked, for verification).`,
	Args:  cobra.ExactArgs(1),
	Run:   runConfigGetSecret,
}

var configDeleteSecretCmd = &cobra.Command{
	Use:   "delete-secret [secret-name]",
	Short: "Delete a secret from the system keyring",
	Long:  `Remove a secret from the system keyring.`,
	Args:  cobra.ExactArgs(1),
	Run:   runConfigDeleteSecret,
}

var configListSecretsCmd = &cobra.Command{
	Use:   "list-secrets",
	Short: "List available secret names",
	Long:  `List all secret names that can be stored in the keyring.`,
	Run:   runConfigListSecrets,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set a non-sensitive configuration value in the wayfarer.yaml config file.

For sensitive values (API keys, credentials), use 'wayfarer config set-secret' instead.

Examples:
  wayfarer config set llm.provider bedrock
  wayfarer config set llm.bedrock_region us-west-2
  wayfarer config set planner.max_regenerations 2
  wayfarer config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	Run:  runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Long: `Get a configuration value from the wayfarer.yaml config file.

Examples:
  wayfarer config get llm.provider
  wayfarer config get planner.max_regenerations`,
	Args: cobra.ExactArgs(1),
	Run:  runConfigGet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configExampleCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetSecretCmd)
	configCmd.AddCommand(configGetSecretCmd)
	configCmd.AddCommand(configDeleteSecretCmd)
	configCmd.AddCommand(configListSecretsCmd)
}

func runConfigExample(cmd *cobra.Command, args []string) {
	configDir := wayfarerconfig.GetWayfarerDataDir()
	configPath := filepath.Join(configDir, "wayfarer.yaml")

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		os.Exit(1)
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file already exists: %s\n", configPath)
		fmt.Print("Overwrite? (y/N): ")
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	if err := os.WriteFile(configPath, []byte(GenerateExampleConfig()), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Config file created: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Save your Anthropic API key:")
	fmt.Println("   wayfarer config set-secret anthropic_api_key")
	fmt.Println("2. Plan a trip:")
	fmt.Println("   wayfarer plan \"5 days in Lisbon in October, two of us\"")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println()

	fmt.Println("LLM:")
	fmt.Printf("  Provider: %s\n", config.LLM.Provider)
	switch config.LLM.Provider {
	case "anthropic":
		fmt.Printf("  Model: %s\n", config.LLM.AnthropicModel)
		if config.LLM.AnthropicAPIKey != "" {
			fmt.Printf("  API Key: %s\n", maskSecret(config.LLM.AnthropicAPIKey))
		} else {
			fmt.Printf("  API Key: (not set)\n")
		}
	case "bedrock":
		fmt.Printf("  Region: %s\n", config.LLM.BedrockRegion)
		fmt.Printf("  Model: %s\n", config.LLM.BedrockModelID)
		if config.LLM.BedrockProfile != "" {
			fmt.Printf("  Profile: %s\n", config.LLM.BedrockProfile)
		}
	case "gemini", "google":
		fmt.Printf("  Model: %s\n", config.LLM.GeminiModel)
		if config.LLM.GeminiAPIKey != "" {
			fmt.Printf("  API Key: %s\n", maskSecret(config.LLM.GeminiAPIKey))
		} else {
			fmt.Printf("  API Key: (not set)\n")
		}
	case "ollama":
		fmt.Printf("  Endpoint: %s\n", config.LLM.OllamaEndpoint)
		fmt.Printf("  Model: %s\n", config.LLM.OllamaModel)
	}
	fmt.Printf("  Temperature: %.1f\n", config.LLM.Temperature)
	fmt.Printf("  Max Tokens: %d\n", config.LLM.MaxTokens)
	fmt.Printf("  Timeout: %ds\n", config.LLM.TimeoutSeconds)
	fmt.Println()

	fmt.Println("Planner:")
	fmt.Printf("  Max Regenerations: %d\n", config.Planner.MaxRegenerations)
	fmt.Printf("  Max Tool Rounds: %d\n", config.Planner.MaxToolRounds)
	if config.Planner.StageTimeoutSeconds > 0 {
		fmt.Printf("  Stage Timeout: %ds\n", config.Planner.StageTimeoutSeconds)
	} else {
		fmt.Printf("  Stage Timeout: (none)\n")
	}
	fmt.Println()

	fmt.Println("Database:")
	fmt.Printf("  Path: %s\n", config.Database.Path)
	fmt.Printf("  Save Runs: %t\n", config.Database.SaveRuns)
	fmt.Println()

	fmt.Println("Prompts:")
	fmt.Printf("  Source: %s\n", config.Prompts.Source)
	if config.Prompts.Source == "file" {
		fmt.Printf("  Directory: %s\n", config.Prompts.FileDir)
	}
	fmt.Println()

	fmt.Println("Tools:")
	if config.Tools.Hotels.Endpoint != "" {
		fmt.Printf("  Hotels Endpoint: %s\n", config.Tools.Hotels.Endpoint)
	}
	if config.Tools.Hotels.APIKey != "" {
		fmt.Printf("  Hotels API Key: %s\n", maskSecret(config.Tools.Hotels.APIKey))
	} else {
		fmt.Printf("  Hotels API Key: (not set)\n")
	}
	if config.Tools.Attractions.APIKey != "" {
		fmt.Printf("  Attractions API Key: %s\n", maskSecret(config.Tools.Attractions.APIKey))
	} else {
		fmt.Printf("  Attractions API Key: (not set)\n")
	}
	fmt.Println()

	fmt.Println("Logging:")
	fmt.Printf("  Level: %s\n", config.Logging.Level)
	fmt.Printf("  Format: %s\n", config.Logging.Format)
}

func runConfigSetSecret(cmd *cobra.Command, args []string) {
	secretName := args[0]

	// Validate secret name using extensible mapping
	availableKeys := ListAvailableSecretKeys()
	validKeys := make(map[string]bool)
	for _, k := range availableKeys {
		validKeys[k] = true
	}

	if !validKeys[secretName] {
		fmt.Fprintf(os.Stderr, "Invalid secret name: %s\n", secretName)
		fmt.Fprintf(os.Stderr, "Available secrets:\n")
		for _, k := range availableKeys {
			fmt.Fprintf(os.Stderr, "  - %s\n", k)
		}
		os.Exit(1)
	}

	// Read secret from stdin (without echo)
	fmt.Printf("Enter %s (input hidden): ", secretName)
	secretBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // New line after hidden input
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	secret := string(secretBytes)
	if secret == "" {
		fmt.Fprintf(os.Stderr, "Secret cannot be empty\n")
		os.Exit(1)
	}

	// Save to keyring
	if err := SaveSecretToKeyring(secretName, secret); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving to keyring: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Saved %s to system keyring\n", secretName)
}

func runConfigGetSecret(cmd *cobra.Command, args []string) {
	secretName := args[0]

	secret, err := GetSecretFromKeyring(secretName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving secret: %v\n", err)
		fmt.Fprintf(os.Stderr, "Secret not found in keyring. Set it with: wayfarer config set-secret %s\n", secretName)
		os.Exit(1)
	}

	// Show partially masked
	fmt.Printf("%s: %s\n", secretName, maskSecret(secret))
}

func runConfigDeleteSecret(cmd *cobra.Command, args []string) {
	secretName := args[0]

	if err := DeleteSecretFromKeyring(secretName); err != nil {
		if err == keyring.ErrNotFound {
			fmt.Fprintf(os.Stderr, "Secret not found in keyring: %s\n", secretName)
		} else {
			fmt.Fprintf(os.Stderr, "Error deleting secret: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("✓ Deleted %s from system keyring\n", secretName)
}

func runConfigListSecrets(cmd *cobra.Command, args []string) {
	keys := ListAvailableSecretKeys()
	fmt.Println("Available secret names:")
	fmt.Println("=======================")
	for _, key := range keys {
		fmt.Printf("  - %s\n", key)
	}
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  wayfarer config set-secret <secret-name>")
	fmt.Println("  wayfarer config get-secret <secret-name>")
	fmt.Println("  wayfarer config delete-secret <secret-name>")
}

func runConfigSet(cmd *cobra.Command, args []string) {
	key := args[0]
	value := args[1]

	// Get config file path
	configDir := wayfarerconfig.GetWayfarerDataDir()
	configPath := filepath.Join(configDir, "wayfarer.yaml")

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Config file not found: %s\n", configPath)
		fmt.Fprintf(os.Stderr, "Run 'wayfarer config example' to create one\n")
		os.Exit(1)
	}

	// Validate key is not a secret (those should use set-secret)
	for _, secretKey := range ListAvailableSecretKeys() {
		if strings.HasSuffix(key, secretKey) {
			fmt.Fprintf(os.Stderr, "Error: '%s' is a secret. Use 'wayfarer config set-secret %s' instead.\n", key, secretKey)
			os.Exit(1)
		}
	}

	// Load existing config with viper
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		os.Exit(1)
	}

	// Try to infer type from existing value or common patterns
	inferredValue := inferType(key, value, v)

	// Set the value
	v.Set(key, inferredValue)

	// Write back to file
	if err := v.WriteConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Set %s = %v\n", key, inferredValue)
}

func runConfigGet(cmd *cobra.Command, args []string) {
	key := args[0]

	// Get config file path
	configDir := wayfarerconfig.GetWayfarerDataDir()
	configPath := filepath.Join(configDir, "wayfarer.yaml")

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Config file not found: %s\n", configPath)
		fmt.Fprintf(os.Stderr, "Run 'wayfarer config example' to create one\n")
		os.Exit(1)
	}

	// Load config with viper
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		os.Exit(1)
	}

	// Get the value
	if !v.IsSet(key) {
		fmt.Fprintf(os.Stderr, "Key not found: %s\n", key)
		os.Exit(1)
	}

	fmt.Printf("%s: %v\n", key, v.Get(key))
}

// inferType attempts to infer the type of a value based on the key name and existing config.
func inferType(key, value string, v *viper.Viper) interface{} {
	// First, check key name patterns for types that must be enforced (like temperature)
	// This prevents issues where YAML converts 1.0 -> 1, changing type from float to int
	if containsFold(key, "temperature") || containsFold(key, "requests_per_second") {
		var floatVal float64
		if _, err := fmt.Sscanf(value, "%f", &floatVal); err == nil {
			return floatVal
		}
	}

	if containsFold(key, "timeout") || containsFold(key, "max_tokens") ||
		containsFold(key, "max_regenerations") || containsFold(key, "max_tool_rounds") ||
		containsFold(key, "radius") || containsFold(key, "tokens_per_minute") {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}

	if containsFold(key, "enabled") || containsFold(key, "save_runs") {
		if value == "true" {
			return true
		} else if value == "false" {
			return false
		}
	}

	// Check if key already exists - use its type
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case bool:
			if value == "true" {
				return true
			} else if value == "false" {
				return false
			}
		case int, int64:
			var intVal int
			if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
				return intVal
			}
		case float64:
			var floatVal float64
			if _, err := fmt.Sscanf(value, "%f", &floatVal); err == nil {
				return floatVal
			}
		}
	}

	// Default to string
	return value
}

// containsFold checks if a string contains a substring (case-insensitive).
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// maskSecret masks a secret for display.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
