// internal/types/models.go
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Rating is the user's feedback on a prompt. Persisted as 0, 1, 2.
type Rating int

const (
	RatingNone Rating = iota
	RatingUp
	RatingDown
)

func (r Rating) String() string {
	switch r {
	case RatingUp:
		return "up"
	case RatingDown:
		return "down"
	default:
		return "none"
	}
}

// Toggle returns the rating that results from the user pressing r while the
// prompt is rated current: pressing the active rating clears it.
func (r Rating) Toggle(current Rating) Rating {
	if r == current {
		return RatingNone
	}
	return r
}

// ParseRating accepts "none", "up" or "down".
func ParseRating(s string) (Rating, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return RatingNone, nil
	case "up", "+", "good":
		return RatingUp, nil
	case "down", "-", "bad":
		return RatingDown, nil
	}
	return RatingNone, fmt.Errorf("invalid rating: %q", s)
}

// RatingFilter selects history entries by rating. FilterAll matches every entry.
type RatingFilter int

const FilterAll RatingFilter = -1

func FilterOf(r Rating) RatingFilter {
	return RatingFilter(r)
}

func (f RatingFilter) Matches(r Rating) bool {
	return f == FilterAll || Rating(f) == r
}

func (f RatingFilter) String() string {
	if f == FilterAll {
		return "all"
	}
	return Rating(f).String()
}

// ParseRatingFilter accepts "all" in addition to the rating names.
func ParseRatingFilter(s string) (RatingFilter, error) {
	if s = strings.ToLower(strings.TrimSpace(s)); s == "all" || s == "" {
		return FilterAll, nil
	}
	r, err := ParseRating(s)
	if err != nil {
		return FilterAll, fmt.Errorf("invalid filter: %q", s)
	}
	return FilterOf(r), nil
}

// StructuredPromptContent is the decomposed model output. Task is the only
// required field.
type StructuredPromptContent struct {
	Persona     string   `json:"persona,omitempty"`
	Task        string   `json:"task"`
	Constraints []string `json:"constraints,omitempty"`
	Format      string   `json:"format,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

var ErrMissingTask = errors.New("structured prompt has no task")

func (c *StructuredPromptContent) Validate() error {
	if c == nil || strings.TrimSpace(c.Task) == "" {
		return ErrMissingTask
	}
	return nil
}

// ContextFile describes a file the user attached. Only metadata is kept.
type ContextFile struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Prompt is a unit of work in the studio. Everything except Rating is fixed
// at generation time.
type Prompt struct {
	ID                  PromptID                `json:"id"`
	OriginalIdea        string                  `json:"originalIdea"`
	GeneratedPrompt     StructuredPromptContent `json:"generatedPrompt"`
	GeneratedPromptText string                  `json:"generatedPromptText"`
	Rating              Rating                  `json:"rating"`
	CreatedAt           time.Time               `json:"createdAt"`
	ContextFiles        []ContextFile           `json:"contextFiles,omitempty"`
}

// Generation is the result of a successful generation round trip.
type Generation struct {
	Content StructuredPromptContent
	Text    string
}

// NewPrompt builds an unsaved prompt from a generation. An empty files list
// is stored as absent.
func NewPrompt(idea string, gen *Generation, files []ContextFile, now time.Time) (*Prompt, error) {
	if err := gen.Content.Validate(); err != nil {
		return nil, err
	}
	var ctxFiles []ContextFile
	if len(files) > 0 {
		ctxFiles = append([]ContextFile(nil), files...)
	}
	return &Prompt{
		ID:                  NewPromptID(),
		OriginalIdea:        idea,
		GeneratedPrompt:     gen.Content,
		GeneratedPromptText: gen.Text,
		Rating:              RatingNone,
		CreatedAt:           now,
		ContextFiles:        ctxFiles,
	}, nil
}

// Theme is the persisted UI theme preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

func (t Theme) Valid() bool {
	return t == ThemeDark || t == ThemeLight
}

func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}
