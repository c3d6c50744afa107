// Package session holds the transient state of one user's studio session
// and mediates between the user, the generation/test services and the
// prompt history.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/promptengine/internal/history"
	"github.com/user/promptengine/internal/types"
)

var (
	ErrBusy            = errors.New("a request of this kind is already in progress")
	ErrEmptyIdea       = errors.New("idea is empty")
	ErrNoCurrentPrompt = errors.New("no current prompt")
)

// Generator turns an idea into structured prompt content.
type Generator interface {
	Generate(ctx context.Context, idea string, files []types.ContextFile) (*types.Generation, error)
}

// Tester runs a prompt against a model.
type Tester interface {
	Test(ctx context.Context, promptText string) (string, error)
}

// State is the transient, never persisted part of a session.
type State struct {
	CurrentPrompt  *types.Prompt
	IsGenerating   bool
	IsTesting      bool
	LastError      string
	LastTestResult string
	SearchTerm     string
	RatingFilter   types.RatingFilter
}

// Controller owns one session. It is safe for concurrent use; at most one
// generation and one test run at a time and further requests are rejected
// with ErrBusy.
type Controller struct {
	key     types.ChatKey
	gen     Generator
	tester  Tester
	history *history.Store
	logger  *slog.Logger
	now     func() time.Time

	generating *semaphore.Weighted
	testing    *semaphore.Weighted

	mu    sync.Mutex
	state State
}

func New(key types.ChatKey, gen Generator, tester Tester, h *history.Store) *Controller {
	return &Controller{
		key:        key,
		gen:        gen,
		tester:     tester,
		history:    h,
		logger:     slog.Default().With("session", string(key)),
		now:        time.Now,
		generating: semaphore.NewWeighted(1),
		testing:    semaphore.NewWeighted(1),
		state:      State{RatingFilter: types.FilterAll},
	}
}

func (c *Controller) Key() types.ChatKey {
	return c.key
}

// Generate creates a new current prompt from idea. The previous current
// prompt, error and test result are cleared when the request starts. On
// failure the user-facing message is kept in LastError and the error is
// returned.
func (c *Controller) Generate(ctx context.Context, idea string, files []types.ContextFile) (*types.Prompt, error) {
	if strings.TrimSpace(idea) == "" {
		return nil, ErrEmptyIdea
	}
	if !c.generating.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer c.generating.Release(1)

	c.mu.Lock()
	c.state.IsGenerating = true
	c.state.LastError = ""
	c.state.LastTestResult = ""
	c.state.CurrentPrompt = nil
	c.mu.Unlock()

	start := time.Now()
	gen, err := c.gen.Generate(ctx, idea, files)
	var prompt *types.Prompt
	if err == nil {
		prompt, err = types.NewPrompt(idea, gen, files, c.now())
		if err != nil {
			err = types.NewGenerationError(err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.IsGenerating = false

	if err != nil {
		c.state.LastError = types.UserMessage(err)
		c.logger.Error("generation failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	c.state.CurrentPrompt = prompt
	c.logger.Info("prompt generated",
		"id", prompt.ID,
		"files", len(files),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return clonePrompt(prompt), nil
}

// Test runs promptText and stores the reply in LastTestResult. A current
// prompt is required.
func (c *Controller) Test(ctx context.Context, promptText string) (string, error) {
	c.mu.Lock()
	if c.state.CurrentPrompt == nil {
		c.mu.Unlock()
		return "", ErrNoCurrentPrompt
	}
	c.mu.Unlock()

	if !c.testing.TryAcquire(1) {
		return "", ErrBusy
	}
	defer c.testing.Release(1)

	c.mu.Lock()
	c.state.IsTesting = true
	c.state.LastError = ""
	c.state.LastTestResult = ""
	c.mu.Unlock()

	start := time.Now()
	result, err := c.tester.Test(ctx, promptText)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.IsTesting = false

	// Applied to whatever prompt is current now, even if the user switched.
	if err != nil {
		c.state.LastError = types.UserMessage(err)
		c.state.LastTestResult = ""
		c.logger.Error("test failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return "", err
	}

	c.state.LastTestResult = result
	c.logger.Info("prompt tested", "chars", len(result), "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// TestCurrent tests the flattened text of the current prompt.
func (c *Controller) TestCurrent(ctx context.Context) (string, error) {
	c.mu.Lock()
	current := c.state.CurrentPrompt
	c.mu.Unlock()
	if current == nil {
		return "", ErrNoCurrentPrompt
	}
	return c.Test(ctx, current.GeneratedPromptText)
}

// Select makes the saved prompt id current and discards the test result.
// Reports whether id was found.
func (c *Controller) Select(id types.PromptID) bool {
	p, ok := c.history.Get(id)
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.CurrentPrompt = &p
	c.state.LastTestResult = ""
	return true
}

// Delete removes id from the history, clearing the current prompt and test
// result when id is the current prompt.
func (c *Controller) Delete(id types.PromptID) {
	c.history.Remove(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.CurrentPrompt != nil && c.state.CurrentPrompt.ID == id {
		c.state.CurrentPrompt = nil
		c.state.LastTestResult = ""
	}
}

// Save adds p to the history. Saving the same ID again is harmless.
func (c *Controller) Save(p types.Prompt) bool {
	added := c.history.Add(p)
	if added {
		c.logger.Info("prompt saved", "id", p.ID)
	}
	return added
}

func (c *Controller) SaveCurrent() (bool, error) {
	c.mu.Lock()
	current := c.state.CurrentPrompt
	c.mu.Unlock()
	if current == nil {
		return false, ErrNoCurrentPrompt
	}
	return c.Save(*clonePrompt(current)), nil
}

// Rate toggles r on prompt id and returns the resulting rating. A saved
// prompt is rated in the history; an unsaved current prompt is rated in
// memory and carries the rating when saved.
func (c *Controller) Rate(id types.PromptID, r types.Rating) (types.Rating, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.state.CurrentPrompt
	isCurrent := current != nil && current.ID == id

	if result, ok := c.history.UpdateRating(id, r); ok {
		if isCurrent {
			current.Rating = result
		}
		return result, true
	}
	if isCurrent {
		current.Rating = r.Toggle(current.Rating)
		return current.Rating, true
	}
	return types.RatingNone, false
}

// IsCurrentSaved reports whether the current prompt is in the history.
func (c *Controller) IsCurrentSaved() bool {
	c.mu.Lock()
	current := c.state.CurrentPrompt
	c.mu.Unlock()
	return current != nil && c.history.Contains(current.ID)
}

func (c *Controller) SetSearchTerm(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SearchTerm = term
}

func (c *Controller) SetRatingFilter(f types.RatingFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.RatingFilter = f
}

// Visible returns the history entries matching the session's search term
// and rating filter.
func (c *Controller) Visible() []types.Prompt {
	c.mu.Lock()
	term, filter := c.state.SearchTerm, c.state.RatingFilter
	c.mu.Unlock()
	return c.history.FilteredView(term, filter)
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.CurrentPrompt = clonePrompt(c.state.CurrentPrompt)
	return s
}

func clonePrompt(p *types.Prompt) *types.Prompt {
	if p == nil {
		return nil
	}
	c := *p
	c.GeneratedPrompt.Constraints = append([]string(nil), p.GeneratedPrompt.Constraints...)
	c.GeneratedPrompt.Examples = append([]string(nil), p.GeneratedPrompt.Examples...)
	if p.ContextFiles != nil {
		c.ContextFiles = append([]types.ContextFile(nil), p.ContextFiles...)
	}
	return &c
}
