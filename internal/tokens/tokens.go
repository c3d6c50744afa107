// Package tokens counts prompt tokens and enforces a context budget.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens with a tiktoken encoding and checks them against a
// context window minus a reserve kept for the model's reply.
type Counter struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
	reserve   int
}

// New creates a counter for model. Unknown models fall back to cl100k_base.
// A maxTokens of zero disables the budget check.
func New(model string, maxTokens, reserve int) (*Counter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Counter{
		tokenizer: enc,
		maxTokens: maxTokens,
		reserve:   reserve,
	}, nil
}

func (c *Counter) Count(text string) int {
	return len(c.tokenizer.Encode(text, nil, nil))
}

// Budget is the number of input tokens a prompt may use.
func (c *Counter) Budget() int {
	return c.maxTokens - c.reserve
}

// BudgetError reports a prompt that does not fit the input budget.
type BudgetError struct {
	Tokens int
	Budget int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("prompt uses %d tokens, budget is %d", e.Tokens, e.Budget)
}

// Check returns the token count of text and a *BudgetError when it exceeds
// the budget.
func (c *Counter) Check(text string) (int, error) {
	n := c.Count(text)
	if c.maxTokens > 0 && n > c.Budget() {
		return n, &BudgetError{Tokens: n, Budget: c.Budget()}
	}
	return n, nil
}
