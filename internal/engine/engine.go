// Package engine generates and tests prompts against an LLM provider. It is
// the in-process counterpart of the studio HTTP service.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/user/promptengine/internal/promptfmt"
	"github.com/user/promptengine/internal/tokens"
	"github.com/user/promptengine/internal/types"
	"github.com/user/promptengine/pkg/llm"
)

// Config controls model selection and sampling per operation.
type Config struct {
	GenerateModel       string
	GenerateMaxTokens   int
	GenerateTemperature float32
	TestModel           string
	TestMaxTokens       int
	TestTemperature     float32
}

func DefaultConfig() Config {
	return Config{
		GenerateMaxTokens:   2048,
		GenerateTemperature: 0.1,
		TestMaxTokens:       1024,
		TestTemperature:     0.7,
	}
}

// Engine implements generation and testing. With a nil provider it runs in
// demo mode and returns canned content.
type Engine struct {
	provider llm.Provider
	counter  *tokens.Counter
	config   Config
	logger   *slog.Logger
}

// New creates an engine. counter may be nil to skip the token budget check.
func New(provider llm.Provider, counter *tokens.Counter, config Config) *Engine {
	return &Engine{
		provider: provider,
		counter:  counter,
		config:   config,
		logger:   slog.Default().With("component", "engine"),
	}
}

// Demo reports whether the engine returns canned responses.
func (e *Engine) Demo() bool {
	return e.provider == nil
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON returns the outermost {...} span of text, or "" when there is
// none.
func extractJSON(text string) string {
	return jsonObject.FindString(text)
}

// Generate asks the model to turn idea into structured prompt content.
func (e *Engine) Generate(ctx context.Context, idea string, files []types.ContextFile) (*types.Generation, error) {
	if e.Demo() {
		content := demoContent(idea)
		return &types.Generation{Content: content, Text: promptfmt.Flatten(content)}, nil
	}

	userMsg, err := renderIdea(idea, files)
	if err != nil {
		return nil, types.NewGenerationError(err)
	}

	start := time.Now()
	resp, err := e.provider.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: SystemInstruction},
		{Role: llm.RoleUser, Content: userMsg},
	}, &llm.Options{
		Model:       e.config.GenerateModel,
		MaxTokens:   e.config.GenerateMaxTokens,
		Temperature: llm.Temperature(e.config.GenerateTemperature),
		JSON:        true,
	})
	if err != nil {
		return nil, types.NewGenerationError(fmt.Errorf("complete: %w", err))
	}

	e.logger.Debug("generation completed",
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	content, err := parseContent(resp.Content)
	if err != nil {
		return nil, types.NewGenerationError(err)
	}
	return &types.Generation{Content: content, Text: promptfmt.Flatten(content)}, nil
}

func parseContent(reply string) (types.StructuredPromptContent, error) {
	raw := extractJSON(reply)
	if raw == "" {
		return proseContent(strings.TrimSpace(reply)), nil
	}

	var content types.StructuredPromptContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return content, fmt.Errorf("parse model reply: %w", err)
	}
	if err := content.Validate(); err != nil {
		return content, err
	}
	return content, nil
}

// Test runs promptText with the test model and returns the trimmed reply.
func (e *Engine) Test(ctx context.Context, promptText string) (string, error) {
	if e.counter != nil {
		n, err := e.counter.Check(promptText)
		if err != nil {
			return "", types.NewTestError(err)
		}
		e.logger.Debug("test prompt fits budget", "tokens", n, "budget", e.counter.Budget())
	}

	if e.Demo() {
		return demoTestResponse(promptText), nil
	}

	start := time.Now()
	resp, err := e.provider.Complete(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: promptText},
	}, &llm.Options{
		Model:       e.config.TestModel,
		MaxTokens:   e.config.TestMaxTokens,
		Temperature: llm.Temperature(e.config.TestTemperature),
	})
	if err != nil {
		return "", types.NewTestError(fmt.Errorf("complete: %w", err))
	}

	e.logger.Debug("test completed",
		"model", resp.Model,
		"output_tokens", resp.Usage.OutputTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return strings.TrimSpace(resp.Content), nil
}
