package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/promptengine/internal/client"
	"github.com/user/promptengine/internal/config"
	"github.com/user/promptengine/internal/engine"
	"github.com/user/promptengine/internal/kvstore"
	"github.com/user/promptengine/internal/session"
	"github.com/user/promptengine/internal/tokens"
	"github.com/user/promptengine/pkg/llm"
	"github.com/user/promptengine/pkg/llm/openai"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "promptengine",
	Short:         "Turn ideas into structured LLM prompts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(loadConfig())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config",
		filepath.Join(os.Getenv("HOME"), ".promptengine", "config.json"), "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// openStore opens the configured key-value backend under the data dir.
func openStore(ctx context.Context, cfg *config.Config) (kvstore.Backend, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	backend, err := kvstore.Open(ctx, kvstore.Options{
		Backend:  cfg.Storage.Backend,
		Dir:      cfg.DataDir,
		Path:     cfg.Storage.Path,
		RedisURL: cfg.Storage.RedisURL,
		Prefix:   cfg.Storage.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}
	return backend, nil
}

// services returns the generator and tester the studio talks to: the remote
// studio API when an endpoint is configured, the in-process engine otherwise.
type services struct {
	gen    session.Generator
	tester session.Tester
	// engine is nil when a remote endpoint is used.
	engine *engine.Engine
}

func newServices(cfg *config.Config) (*services, error) {
	if cfg.Studio.Endpoint != "" {
		c := client.New(cfg.Studio.Endpoint, cfg.StudioTimeout())
		slog.Debug("using remote studio", "endpoint", cfg.Studio.Endpoint)
		return &services{gen: c, tester: c}, nil
	}

	e, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &services{gen: e, tester: e, engine: e}, nil
}

// engineConfig maps the llm config section onto the engine's per-call
// sampling. Non-positive token limits keep the engine defaults.
func engineConfig(cfg *config.Config) engine.Config {
	ecfg := engine.DefaultConfig()
	ecfg.GenerateModel = cfg.LLM.GenerateModel
	ecfg.TestModel = cfg.LLM.TestModel
	if cfg.LLM.GenerateMaxTokens > 0 {
		ecfg.GenerateMaxTokens = cfg.LLM.GenerateMaxTokens
	}
	if cfg.LLM.TestMaxTokens > 0 {
		ecfg.TestMaxTokens = cfg.LLM.TestMaxTokens
	}
	ecfg.GenerateTemperature = cfg.LLM.GenerateTemperature
	ecfg.TestTemperature = cfg.LLM.TestTemperature
	return ecfg
}

func newEngine(cfg *config.Config) (*engine.Engine, error) {
	ecfg := engineConfig(cfg)

	if cfg.LLM.APIKey == "" {
		slog.Warn("no LLM API key configured, running in demo mode")
		return engine.New(nil, nil, ecfg), nil
	}

	counter, err := tokens.New(cfg.LLM.TestModel, cfg.LLM.MaxContextTokens, cfg.LLM.OutputReserve)
	if err != nil {
		return nil, fmt.Errorf("create token counter: %w", err)
	}
	provider := openai.New(&llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.GenerateModel,
		Timeout:     cfg.LLMTimeout(),
		MaxAttempts: cfg.LLM.MaxAttempts,
	})
	slog.Debug("using in-process engine",
		"base_url", cfg.LLM.BaseURL,
		"generate_model", cfg.LLM.GenerateModel,
		"test_model", cfg.LLM.TestModel,
	)
	return engine.New(provider, counter, ecfg), nil
}

// commandContext bounds one CLI operation.
func commandContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	timeout := cfg.LLMTimeout()
	if cfg.Studio.Endpoint != "" {
		timeout = cfg.StudioTimeout()
	}
	return context.WithTimeout(context.Background(), timeout+10*time.Second)
}
