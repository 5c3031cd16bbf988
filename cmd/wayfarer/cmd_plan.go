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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	wayfarerlog "github.com/teradata-labs/wayfarer/internal/log"
	"github.com/teradata-labs/wayfarer/pkg/llm"
	"github.com/teradata-labs/wayfarer/pkg/llm/factory"
	"github.com/teradata-labs/wayfarer/pkg/observability"
	"github.com/teradata-labs/wayfarer/pkg/planner"
	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/porter/builtin"
	"github.com/teradata-labs/wayfarer/pkg/prompts"
	"github.com/teradata-labs/wayfarer/pkg/storage"
)

var (
	planJSON   bool
	planState  bool
	planNoSave bool
)

var planCmd = &cobra.Command{
	Use:   "plan \"<message>\"",
	Short: "Run the trip planning pipeline for one message",
	Long: heredoc.Doc(`
		Run one pass of the planning pipeline: classify the message's intent,
		extract trip fields, gather hotels, weather, attractions, and budget
		figures through the capability tools, then compose an itinerary and a
		traveler-facing summary.

		The reply is printed to stdout. Finished runs are recorded in the run
		history database unless --no-save is given; inspect them later with
		'wayfarer runs'.
	`),
	Example: heredoc.Doc(`
		wayfarer plan "5 days in Lisbon in October, two of us, mid-range budget"
		wayfarer plan --state "Weekend in Kyoto with my partner"
		wayfarer plan --json "Honeymoon in the Maldives next spring"
	`),
	Args: cobra.ExactArgs(1),
	Run:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().BoolVar(&planJSON, "json", false, "Print the full run result as JSON")
	planCmd.Flags().BoolVar(&planState, "state", false, "Print the planning state snapshot after the reply")
	planCmd.Flags().BoolVar(&planNoSave, "no-save", false, "Do not record this run in the history database")
}

func runPlan(cmd *cobra.Command, args []string) {
	message := args[0]

	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(config.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	wayfarerlog.SetLogger(logger)

	// Spans and metrics surface at debug level
	tracer := observability.NewLogTracer(logger)

	ctx := context.Background()

	provider, err := newProviderFactory(logger, tracer).CreateProvider(ctx, config.LLM.Provider, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating LLM provider: %v\n", err)
		os.Exit(1)
	}

	promptRegistry, err := newPromptRegistry(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating prompt registry: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = promptRegistry.Close() }()

	toolRegistry := porter.NewRegistry()
	builtin.RegisterAll(toolRegistry, builtinConfig(logger))

	opts := []planner.Option{
		planner.WithLogger(logger),
		planner.WithTracer(tracer),
		planner.WithMaxRegenerations(config.Planner.MaxRegenerations),
		planner.WithMaxToolRounds(config.Planner.MaxToolRounds),
		planner.WithStageTimeout(time.Duration(config.Planner.StageTimeoutSeconds) * time.Second),
	}

	if config.Database.SaveRuns && !planNoSave {
		store, err := storage.NewRunStore(&storage.RunStoreConfig{DBPath: config.Database.Path})
		if err != nil {
			// Planning still works without history
			logger.Warn("Run history disabled", zap.Error(err))
		} else {
			defer func() { _ = store.Close() }()
			opts = append(opts, planner.WithRunStore(store))
		}
	}

	p, err := planner.New(provider, promptRegistry, toolRegistry, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating planner: %v\n", err)
		os.Exit(1)
	}

	result, err := p.Plan(ctx, message)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Planning failed: %v\n", err)
		os.Exit(1)
	}

	if planJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Println(result.Reply)

	if planState {
		out, err := json.MarshalIndent(result.State.Snapshot(), "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		fmt.Println(string(out))
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
}

// newProviderFactory maps the CLI config onto the LLM provider factory.
func newProviderFactory(logger *zap.Logger, tracer observability.Tracer) *factory.ProviderFactory {
	return factory.NewProviderFactory(factory.FactoryConfig{
		DefaultProvider:        config.LLM.Provider,
		AnthropicAPIKey:        config.LLM.AnthropicAPIKey,
		AnthropicModel:         config.LLM.AnthropicModel,
		BedrockRegion:          config.LLM.BedrockRegion,
		BedrockAccessKeyID:     config.LLM.BedrockAccessKeyID,
		BedrockSecretAccessKey: config.LLM.BedrockSecretAccessKey,
		BedrockSessionToken:    config.LLM.BedrockSessionToken,
		BedrockProfile:         config.LLM.BedrockProfile,
		BedrockModelID:         config.LLM.BedrockModelID,
		GeminiAPIKey:           config.LLM.GeminiAPIKey,
		GeminiModel:            config.LLM.GeminiModel,
		OllamaEndpoint:         config.LLM.OllamaEndpoint,
		OllamaModel:            config.LLM.OllamaModel,
		OllamaToolMode:         config.LLM.OllamaToolMode,
		MaxTokens:              config.LLM.MaxTokens,
		Temperature:            config.LLM.Temperature,
		Timeout:                config.LLM.TimeoutSeconds,
		RateLimiter: llm.RateLimiterConfig{
			Enabled:           config.LLM.RateLimit.Enabled,
			RequestsPerSecond: config.LLM.RateLimit.RequestsPerSecond,
			TokensPerMinute:   config.LLM.RateLimit.TokensPerMinute,
		},
		Tracer: tracer,
		Logger: logger,
	})
}

// newPromptRegistry builds the registry selected by prompts.source.
func newPromptRegistry(logger *zap.Logger) (prompts.Registry, error) {
	if config.Prompts.Source == "file" {
		return prompts.NewFileRegistry(config.Prompts.FileDir, logger)
	}
	return prompts.NewStaticRegistry(), nil
}

// builtinConfig maps tool settings onto the builtin provider configs.
// Zero values keep each provider's own defaults.
func builtinConfig(logger *zap.Logger) builtin.Config {
	return builtin.Config{
		Hotels: builtin.HotelsConfig{
			Endpoint:          config.Tools.Hotels.Endpoint,
			APIKey:            config.Tools.Hotels.APIKey,
			Timeout:           secondsToDuration(config.Tools.Hotels.TimeoutSeconds),
			RequestsPerSecond: config.Tools.Hotels.RequestsPerSecond,
		},
		Weather: builtin.WeatherConfig{
			GeocodingEndpoint: config.Tools.Weather.GeocodingEndpoint,
			ForecastEndpoint:  config.Tools.Weather.ForecastEndpoint,
			Timeout:           secondsToDuration(config.Tools.Weather.TimeoutSeconds),
			RequestsPerSecond: config.Tools.Weather.RequestsPerSecond,
		},
		Attractions: builtin.AttractionsConfig{
			APIKey:            config.Tools.Attractions.APIKey,
			GeocodeEndpoint:   config.Tools.Attractions.GeocodeEndpoint,
			PlacesEndpoint:    config.Tools.Attractions.PlacesEndpoint,
			RadiusMeters:      config.Tools.Attractions.RadiusMeters,
			Timeout:           secondsToDuration(config.Tools.Attractions.TimeoutSeconds),
			RequestsPerSecond: config.Tools.Attractions.RequestsPerSecond,
		},
		Currency: builtin.CurrencyConfig{
			PrimaryEndpoint:   config.Tools.Currency.PrimaryEndpoint,
			FallbackEndpoint:  config.Tools.Currency.FallbackEndpoint,
			Timeout:           secondsToDuration(config.Tools.Currency.TimeoutSeconds),
			RequestsPerSecond: config.Tools.Currency.RequestsPerSecond,
		},
		Search: builtin.SearchConfig{
			Endpoint:          config.Tools.Search.Endpoint,
			Timeout:           secondsToDuration(config.Tools.Search.TimeoutSeconds),
			RequestsPerSecond: config.Tools.Search.RequestsPerSecond,
			Logger:            logger,
		},
	}
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// buildLogger creates a zap logger from the logging config.
func buildLogger(cfg LoggingConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Format == "text" {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	// Parse and set log level from config
	logLevel := zap.InfoLevel // default
	if cfg.Level != "" {
		if err := logLevel.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	zapConfig.Level = zap.NewAtomicLevelAt(logLevel)

	// Configure log output file if specified; the default stderr keeps
	// stdout clean for the reply
	if cfg.File != "" {
		zapConfig.OutputPaths = []string{cfg.File}
		zapConfig.ErrorOutputPaths = []string{cfg.File}
	}

	// Stack traces only for ERROR level
	return zapConfig.Build(zap.AddStacktrace(zap.ErrorLevel))
}
