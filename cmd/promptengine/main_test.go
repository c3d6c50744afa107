package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/user/promptengine/internal/client"
	"github.com/user/promptengine/internal/config"
	"github.com/user/promptengine/internal/types"
)

func TestNewServices_DemoEngine(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()

	svc, err := newServices(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if svc.engine == nil || !svc.engine.Demo() {
		t.Fatal("expected in-process demo engine without an API key")
	}

	gen, err := svc.gen.Generate(context.Background(), "a recipe app", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gen.Text, "a recipe app") {
		t.Errorf("unexpected demo prompt %q", gen.Text)
	}
}

func TestNewServices_ConfiguredEngine(t *testing.T) {
	cfg := config.Defaults()
	cfg.LLM.APIKey = "sk-test"

	svc, err := newServices(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if svc.engine == nil || svc.engine.Demo() {
		t.Fatal("expected a provider-backed engine")
	}
}

func TestEngineConfig_Sampling(t *testing.T) {
	cfg := config.Defaults()
	ecfg := engineConfig(cfg)
	if ecfg.GenerateMaxTokens != 2048 || ecfg.GenerateTemperature != 0.1 {
		t.Errorf("generate defaults: %+v", ecfg)
	}
	if ecfg.TestMaxTokens != 1024 || ecfg.TestTemperature != 0.7 {
		t.Errorf("test defaults: %+v", ecfg)
	}

	cfg.LLM.GenerateMaxTokens = 512
	cfg.LLM.GenerateTemperature = 0.2
	cfg.LLM.TestMaxTokens = 300
	cfg.LLM.TestTemperature = 0.9
	ecfg = engineConfig(cfg)
	if ecfg.GenerateMaxTokens != 512 || ecfg.GenerateTemperature != 0.2 {
		t.Errorf("generate overrides not applied: %+v", ecfg)
	}
	if ecfg.TestMaxTokens != 300 || ecfg.TestTemperature != 0.9 {
		t.Errorf("test overrides not applied: %+v", ecfg)
	}
	if ecfg.GenerateModel != cfg.LLM.GenerateModel || ecfg.TestModel != cfg.LLM.TestModel {
		t.Errorf("models not mapped: %+v", ecfg)
	}

	cfg.LLM.TestMaxTokens = 0
	if got := engineConfig(cfg).TestMaxTokens; got != 1024 {
		t.Errorf("zero limit should keep default, got %d", got)
	}
}

func TestNewServices_RemoteEndpoint(t *testing.T) {
	cfg := config.Defaults()
	cfg.Studio.Endpoint = "http://localhost:8000"

	svc, err := newServices(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if svc.engine != nil {
		t.Error("engine should not be built for a remote endpoint")
	}
	if _, ok := svc.gen.(*client.Client); !ok {
		t.Errorf("expected HTTP client, got %T", svc.gen)
	}
}

func TestOpenStore_SQLite(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.Storage.Backend = "sqlite"

	backend, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	if err := backend.Set(context.Background(), "theme", `"light"`); err != nil {
		t.Fatal(err)
	}
}

func TestRunWizard(t *testing.T) {
	cfg := config.Defaults()
	input := strings.Join([]string{
		"",                     // endpoint: keep local
		"",                     // base url
		"sk-wizard",            // api key
		"",                     // generate model
		"",                     // test model
		"redis",                // storage backend
		"redis://cache:6379/2", // redis url
		"",                     // telegram token
	}, "\n") + "\n"

	var out bytes.Buffer
	runWizard(bufio.NewScanner(strings.NewReader(input)), &out, cfg)

	if cfg.LLM.APIKey != "sk-wizard" {
		t.Errorf("expected api key from input, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.GenerateModel != "gemini-1.5-pro" {
		t.Errorf("empty input should keep default model, got %q", cfg.LLM.GenerateModel)
	}
	if cfg.Storage.Backend != "redis" || cfg.Storage.RedisURL != "redis://cache:6379/2" {
		t.Errorf("unexpected storage %+v", cfg.Storage)
	}
	if !strings.Contains(out.String(), "Generation model [gemini-1.5-pro]: ") {
		t.Errorf("expected default shown in brackets, got %q", out.String())
	}
}

func TestRunWizard_UnknownBackend(t *testing.T) {
	cfg := config.Defaults()
	cfg.Studio.Endpoint = "http://studio:8000"

	var out bytes.Buffer
	runWizard(bufio.NewScanner(strings.NewReader("\nmongo\n\n")), &out, cfg)

	if cfg.Storage.Backend != "file" {
		t.Errorf("expected fallback to file, got %q", cfg.Storage.Backend)
	}
	if strings.Contains(out.String(), "LLM API key") {
		t.Error("LLM questions should be skipped for a remote endpoint")
	}
}

func TestPrintPrompt(t *testing.T) {
	p := &types.Prompt{
		ID:                  "prompt_1_abcd1234",
		OriginalIdea:        "summarize logs",
		GeneratedPromptText: "**Task:**\nSummarize the logs.",
		Rating:              types.RatingUp,
		CreatedAt:           time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ContextFiles:        []types.ContextFile{{Name: "app.log", Type: "text/plain", Size: 12}},
	}

	var out bytes.Buffer
	printPrompt(&out, p, true)

	for _, want := range []string{"prompt_1_abcd1234", "Rating:  up", "Saved:   yes", "app.log (text/plain, 12 bytes)", "Summarize the logs."} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("a\nb", 10); got != "a b" {
		t.Errorf("expected newlines flattened, got %q", got)
	}
	if got := oneLine("ééééé", 3); got != "éé…" {
		t.Errorf("expected rune-safe truncation, got %q", got)
	}
}
