// internal/types/models_test.go
package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestPromptJSONLayout(t *testing.T) {
	p := Prompt{
		ID:                  "prompt_1",
		OriginalIdea:        "Write a haiku generator",
		GeneratedPrompt:     StructuredPromptContent{Task: "Generate haiku"},
		GeneratedPromptText: "**Task:**\nGenerate haiku",
		Rating:              RatingUp,
		CreatedAt:           time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, key := range []string{`"originalIdea"`, `"generatedPrompt"`, `"generatedPromptText"`, `"rating":1`, `"createdAt"`} {
		if !strings.Contains(s, key) {
			t.Errorf("expected %s in %s", key, s)
		}
	}
	if strings.Contains(s, "contextFiles") {
		t.Errorf("expected contextFiles to be omitted, got %s", s)
	}
	if strings.Contains(s, "persona") {
		t.Errorf("expected persona to be omitted, got %s", s)
	}
}

func TestNewPromptWithoutFiles(t *testing.T) {
	gen := &Generation{Content: StructuredPromptContent{Task: "do it"}, Text: "**Task:**\ndo it"}

	p, err := NewPrompt("idea", gen, []ContextFile{}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if p.ContextFiles != nil {
		t.Errorf("expected absent context files, got %v", p.ContextFiles)
	}
	if p.Rating != RatingNone {
		t.Errorf("expected rating none, got %s", p.Rating)
	}
}

func TestNewPromptCopiesFiles(t *testing.T) {
	gen := &Generation{Content: StructuredPromptContent{Task: "do it"}}
	files := []ContextFile{{Name: "a.txt", Type: "text/plain", Size: 3}}

	p, err := NewPrompt("idea", gen, files, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	files[0].Name = "changed"
	if p.ContextFiles[0].Name != "a.txt" {
		t.Errorf("expected prompt to own its file list, got %s", p.ContextFiles[0].Name)
	}
}

func TestNewPromptRequiresTask(t *testing.T) {
	gen := &Generation{Content: StructuredPromptContent{Persona: "expert"}}
	if _, err := NewPrompt("idea", gen, nil, time.Now()); err != ErrMissingTask {
		t.Fatalf("expected ErrMissingTask, got %v", err)
	}
}

func TestRatingToggle(t *testing.T) {
	if got := RatingUp.Toggle(RatingNone); got != RatingUp {
		t.Errorf("expected up, got %s", got)
	}
	if got := RatingUp.Toggle(RatingUp); got != RatingNone {
		t.Errorf("expected none, got %s", got)
	}
	if got := RatingDown.Toggle(RatingUp); got != RatingDown {
		t.Errorf("expected down, got %s", got)
	}
}

func TestParseRatingFilter(t *testing.T) {
	f, err := ParseRatingFilter("All")
	if err != nil || f != FilterAll {
		t.Errorf("expected FilterAll, got %v (%v)", f, err)
	}
	f, err = ParseRatingFilter("down")
	if err != nil || !f.Matches(RatingDown) || f.Matches(RatingUp) {
		t.Errorf("expected down filter, got %v (%v)", f, err)
	}
	if _, err := ParseRatingFilter("sideways"); err == nil {
		t.Error("expected error for unknown filter")
	}
}

func TestThemeToggle(t *testing.T) {
	if ThemeDark.Toggle() != ThemeLight || ThemeLight.Toggle() != ThemeDark {
		t.Error("theme toggle mismatch")
	}
}
