// Package client talks to a studio generation/test service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/user/promptengine/internal/promptfmt"
	"github.com/user/promptengine/internal/types"
)

// Client calls /api/generate and /api/test on a studio service. Requests
// are sent once; retrying is left to the user.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GenerateRequest is the body of POST /api/generate. Files is null when
// there are none.
type GenerateRequest struct {
	Idea  string              `json:"idea"`
	Files []types.ContextFile `json:"files"`
}

type GenerateResponse struct {
	GeneratedPrompt     *types.StructuredPromptContent `json:"generated_prompt"`
	GeneratedPromptText string                         `json:"generated_prompt_text"`
}

type TestRequest struct {
	Prompt string `json:"prompt"`
}

type TestResponse struct {
	TestResult *string `json:"test_result"`
}

// ErrorResponse is the body returned with non-2xx statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Generate requests structured content for idea. The returned text is
// flattened locally from the content so it always matches what is shown.
func (c *Client) Generate(ctx context.Context, idea string, files []types.ContextFile) (*types.Generation, error) {
	req := GenerateRequest{Idea: idea}
	if len(files) > 0 {
		req.Files = files
	}

	var resp GenerateResponse
	if err := c.post(ctx, "/api/generate", req, &resp); err != nil {
		return nil, types.NewGenerationError(err)
	}
	if err := resp.GeneratedPrompt.Validate(); err != nil {
		return nil, types.NewGenerationError(err)
	}

	return &types.Generation{
		Content: *resp.GeneratedPrompt,
		Text:    promptfmt.Flatten(*resp.GeneratedPrompt),
	}, nil
}

// Test runs promptText against the model and returns the trimmed reply.
func (c *Client) Test(ctx context.Context, promptText string) (string, error) {
	var resp TestResponse
	if err := c.post(ctx, "/api/test", TestRequest{Prompt: promptText}, &resp); err != nil {
		return "", types.NewTestError(err)
	}
	if resp.TestResult == nil {
		return "", types.NewTestError(fmt.Errorf("response has no test_result"))
	}
	return strings.TrimSpace(*resp.TestResult), nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
