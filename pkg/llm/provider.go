package llm

import (
	"context"
	"time"
)

// Provider defines the interface for interacting with LLM backends.
// Implementations handle protocol-specific details such as request formatting,
// authentication, and response parsing.
type Provider interface {
	// Complete sends a chat completion request and returns the full response.
	// A nil opts uses the provider's configured defaults.
	Complete(ctx context.Context, messages []Message, opts *Options) (*Response, error)
}

// Config holds common configuration for LLM providers.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	// MaxAttempts bounds retries of transient failures. Zero means one attempt.
	MaxAttempts int
}

// Options override Config for a single request.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature *float32
	// JSON asks the model for a JSON object response.
	JSON bool
}

// Temperature returns a pointer to t for use in Options.
func Temperature(t float32) *float32 {
	return &t
}
