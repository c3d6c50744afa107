// Package history keeps the user's saved prompts, newest first.
package history

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/user/promptengine/internal/kvstore"
	"github.com/user/promptengine/internal/types"
)

// StorageKey is the key the collection is stored under.
const StorageKey = "promptHistory"

// Store is the ordered prompt collection. Every mutation is persisted as a
// whole; storage failures are logged by the underlying value and never
// surface here.
type Store struct {
	mu       sync.RWMutex
	value    *kvstore.Value[[]types.Prompt]
	prompts  []types.Prompt
	revision uint64
	views    *cache.Cache
}

// NewStore loads the collection from backend. Missing or corrupt data
// yields an empty history.
func NewStore(backend kvstore.Backend) *Store {
	value := kvstore.NewValue[[]types.Prompt](backend, StorageKey)
	s := &Store{
		value: value,
		views: cache.New(10*time.Minute, 20*time.Minute),
	}
	s.prompts = dedupe(value.Get([]types.Prompt{}))
	return s
}

// valid reports whether p may live in the history: it needs an ID and a
// structured prompt with a task.
func valid(p types.Prompt) error {
	if p.ID == "" {
		return errors.New("prompt has no id")
	}
	return p.GeneratedPrompt.Validate()
}

func dedupe(prompts []types.Prompt) []types.Prompt {
	seen := make(map[types.PromptID]bool, len(prompts))
	out := make([]types.Prompt, 0, len(prompts))
	for _, p := range prompts {
		if err := valid(p); err != nil {
			slog.Warn("dropping invalid history entry", "id", p.ID, "error", err)
			continue
		}
		if seen[p.ID] {
			slog.Warn("dropping duplicate history entry", "id", p.ID)
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// commit must be called with mu held for writing.
func (s *Store) commit() {
	s.revision++
	s.views.Flush()
	s.value.Set(s.prompts)
}

func (s *Store) indexOf(id types.PromptID) int {
	for i := range s.prompts {
		if s.prompts[i].ID == id {
			return i
		}
	}
	return -1
}

// Add prepends p unless an entry with the same ID exists or p is invalid.
// Reports whether p was inserted.
func (s *Store) Add(p types.Prompt) bool {
	if err := valid(p); err != nil {
		slog.Warn("rejecting invalid prompt", "id", p.ID, "error", err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(p.ID) >= 0 {
		return false
	}
	s.prompts = append([]types.Prompt{clonePrompt(p)}, s.prompts...)
	s.commit()
	return true
}

// UpdateRating applies r to the entry as a toggle: pressing the entry's
// current rating clears it. Returns the resulting rating and whether the
// entry exists.
func (s *Store) UpdateRating(id types.PromptID, r types.Rating) (types.Rating, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return types.RatingNone, false
	}
	updated := clonePrompt(s.prompts[i])
	updated.Rating = r.Toggle(updated.Rating)
	s.prompts[i] = updated
	s.commit()
	return updated.Rating, true
}

// Remove deletes the entry with id. Absent IDs are ignored.
func (s *Store) Remove(id types.PromptID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.prompts = append(s.prompts[:i:i], s.prompts[i+1:]...)
	s.commit()
}

func (s *Store) Get(id types.PromptID) (types.Prompt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return types.Prompt{}, false
	}
	return clonePrompt(s.prompts[i]), true
}

func (s *Store) Contains(id types.PromptID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) >= 0
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prompts)
}

// All returns every entry in stored order.
func (s *Store) All() []types.Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.prompts)
}

// FilteredView returns, in stored order, the entries whose rating matches
// filter and whose original idea contains term (case-insensitive). An
// empty term matches everything.
func (s *Store) FilteredView(term string, filter types.RatingFilter) []types.Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := fmt.Sprintf("%d|%d|%s", s.revision, filter, term)
	if cached, ok := s.views.Get(key); ok {
		return cloneAll(cached.([]types.Prompt))
	}

	needle := strings.ToLower(term)
	var view []types.Prompt
	for _, p := range s.prompts {
		if !filter.Matches(p.Rating) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.OriginalIdea), needle) {
			continue
		}
		view = append(view, clonePrompt(p))
	}

	s.views.SetDefault(key, view)
	return cloneAll(view)
}

func clonePrompt(p types.Prompt) types.Prompt {
	c := p
	c.GeneratedPrompt.Constraints = cloneStrings(p.GeneratedPrompt.Constraints)
	c.GeneratedPrompt.Examples = cloneStrings(p.GeneratedPrompt.Examples)
	if p.ContextFiles != nil {
		c.ContextFiles = append([]types.ContextFile(nil), p.ContextFiles...)
	}
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneAll(in []types.Prompt) []types.Prompt {
	out := make([]types.Prompt, len(in))
	for i, p := range in {
		out[i] = clonePrompt(p)
	}
	return out
}
