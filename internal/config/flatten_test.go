package config

import (
	"testing"
)

func TestFlatten_Nested(t *testing.T) {
	m := map[string]any{
		"llm": map[string]any{
			"provider": "openai",
			"api_key":  "sk-test123",
		},
		"storage": map[string]any{
			"backend": "sqlite",
		},
		"log_level": "info",
	}
	got := Flatten(m)
	if got["llm.provider"] != "openai" {
		t.Errorf("expected llm.provider=openai, got %v", got["llm.provider"])
	}
	if got["storage.backend"] != "sqlite" {
		t.Errorf("expected storage.backend=sqlite, got %v", got["storage.backend"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
	if len(got) != 4 {
		t.Errorf("expected 4 keys, got %d", len(got))
	}
}

func TestFlatten_ArraysAreLeaves(t *testing.T) {
	origins := []any{"http://localhost:3000"}
	got := Flatten(map[string]any{"http": map[string]any{"allowed_origins": origins}})

	v, ok := got["http.allowed_origins"].([]any)
	if !ok || len(v) != 1 {
		t.Errorf("expected array leaf, got %v", got)
	}
}

func TestFlatten_EmptyNestedMap(t *testing.T) {
	got := Flatten(map[string]any{"a": map[string]any{}})
	if len(got) != 0 {
		t.Errorf("expected 0 keys (empty nested map produces nothing), got %d", len(got))
	}
}

func TestRoundTrip_FlattenUnflatten(t *testing.T) {
	original := map[string]any{
		"data_dir": "/home/test/.promptengine",
		"llm": map[string]any{
			"generate_model": "gemini-1.5-pro",
			"test_model":     "gemini-1.5-flash",
		},
		"studio": map[string]any{
			"endpoint": "http://localhost:8000",
		},
	}

	restored := Unflatten(Flatten(original))

	if restored["data_dir"] != original["data_dir"] {
		t.Errorf("data_dir mismatch: %v", restored["data_dir"])
	}
	llm := restored["llm"].(map[string]any)
	if llm["generate_model"] != "gemini-1.5-pro" || llm["test_model"] != "gemini-1.5-flash" {
		t.Errorf("llm mismatch: %v", llm)
	}
	studio := restored["studio"].(map[string]any)
	if studio["endpoint"] != "http://localhost:8000" {
		t.Errorf("studio.endpoint mismatch: %v", studio["endpoint"])
	}
}

func TestUnflatten_ReplacesScalarParent(t *testing.T) {
	got := Unflatten(map[string]any{"studio": "x", "studio.endpoint": "y"})
	// Map iteration order decides which write lands last; both shapes are
	// valid, but the result must never panic and must be a map or string.
	switch v := got["studio"].(type) {
	case map[string]any:
		if v["endpoint"] != "y" {
			t.Errorf("unexpected nested value %v", v)
		}
	case string:
	default:
		t.Errorf("unexpected type %T", v)
	}
}

func TestMaskSecrets(t *testing.T) {
	flat := map[string]any{
		"llm.provider":      "openai",
		"llm.api_key":       "sk-test123456",
		"storage.redis_url": "redis://:hunter2@cache:6379/0",
		"telegram.token":    "123456:ABCdefGHIjkl",
		"log_level":         "info",
	}
	got := MaskSecrets(flat)

	if got["llm.provider"] != "openai" || got["log_level"] != "info" {
		t.Errorf("non-secrets should be unchanged: %v", got)
	}
	if got["llm.api_key"] != "***3456" {
		t.Errorf("expected llm.api_key=***3456, got %v", got["llm.api_key"])
	}
	if got["storage.redis_url"] != "***79/0" {
		t.Errorf("expected storage.redis_url=***79/0, got %v", got["storage.redis_url"])
	}
	if got["telegram.token"] != "***Ijkl" {
		t.Errorf("expected telegram.token=***Ijkl, got %v", got["telegram.token"])
	}
}

func TestMaskSecrets_ShortAndEmpty(t *testing.T) {
	got := MaskSecrets(map[string]any{"llm.api_key": "ab", "telegram.token": ""})
	if got["llm.api_key"] != "***ab" {
		t.Errorf("expected ***ab for short secret, got %v", got["llm.api_key"])
	}
	if got["telegram.token"] != "" {
		t.Errorf("expected empty string to remain empty, got %v", got["telegram.token"])
	}
}

func TestSortedKeys(t *testing.T) {
	keys := SortedKeys(map[string]any{"llm.b": 1, "data_dir": 2, "llm.a": 3})
	want := []string{"data_dir", "llm.a", "llm.b"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, keys)
		}
	}
}
