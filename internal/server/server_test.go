package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/user/promptengine/internal/client"
	"github.com/user/promptengine/internal/engine"
	"github.com/user/promptengine/internal/history"
	"github.com/user/promptengine/internal/kvstore"
	"github.com/user/promptengine/internal/types"
)

type stubGenerator struct {
	GenerateFunc func(ctx context.Context, idea string, files []types.ContextFile) (*types.Generation, error)
}

func (s *stubGenerator) Generate(ctx context.Context, idea string, files []types.ContextFile) (*types.Generation, error) {
	return s.GenerateFunc(ctx, idea, files)
}

type stubTester struct {
	TestFunc func(ctx context.Context, text string) (string, error)
}

func (s *stubTester) Test(ctx context.Context, text string) (string, error) {
	return s.TestFunc(ctx, text)
}

func demoServer(opts Options) *httptest.Server {
	e := engine.New(nil, nil, engine.DefaultConfig())
	return httptest.NewServer(New(e, e, opts))
}

func post(t *testing.T, url, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, string(data)
}

func TestHealth(t *testing.T) {
	srv := demoServer(Options{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "healthy" || body["service"] != "Prompt Engine API" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestGenerateBlankIdea(t *testing.T) {
	srv := demoServer(Options{})
	defer srv.Close()

	resp, body := post(t, srv.URL+"/api/generate", `{"idea":"   ","files":null}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Idea cannot be empty") {
		t.Errorf("unexpected body %s", body)
	}
}

func TestGenerateSendsIdeaVerbatim(t *testing.T) {
	var sent string
	gen := &stubGenerator{GenerateFunc: func(_ context.Context, idea string, _ []types.ContextFile) (*types.Generation, error) {
		sent = idea
		return &types.Generation{Content: types.StructuredPromptContent{Task: "t"}, Text: "**Task:**\nt"}, nil
	}}
	srv := httptest.NewServer(New(gen, nil, Options{}))
	defer srv.Close()

	resp, body := post(t, srv.URL+"/api/generate", `{"idea":"  a todo app\n"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if sent != "  a todo app\n" {
		t.Errorf("idea should reach the generator untrimmed, got %q", sent)
	}
}

func TestGenerateInvalidJSON(t *testing.T) {
	srv := demoServer(Options{})
	defer srv.Close()

	resp, _ := post(t, srv.URL+"/api/generate", `{idea`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGenerateUpstreamFailure(t *testing.T) {
	gen := &stubGenerator{GenerateFunc: func(context.Context, string, []types.ContextFile) (*types.Generation, error) {
		return nil, types.NewGenerationError(errors.New("401 from provider"))
	}}
	srv := httptest.NewServer(New(gen, nil, Options{}))
	defer srv.Close()

	resp, body := post(t, srv.URL+"/api/generate", `{"idea":"x"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, types.MsgGenerationFailed) {
		t.Errorf("expected user-facing message, got %s", body)
	}
	if strings.Contains(body, "401 from provider") {
		t.Error("internal cause must not leak to clients")
	}
}

func TestTestEndpoint(t *testing.T) {
	var got string
	tester := &stubTester{TestFunc: func(_ context.Context, text string) (string, error) {
		got = text
		return "reply", nil
	}}
	srv := httptest.NewServer(New(nil, tester, Options{}))
	defer srv.Close()

	resp, body := post(t, srv.URL+"/api/test", `{"prompt":"**Task:**\nSay hi"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if got != "**Task:**\nSay hi" || !strings.Contains(body, `"test_result":"reply"`) {
		t.Errorf("unexpected round trip: got=%q body=%s", got, body)
	}

	resp, _ = post(t, srv.URL+"/api/test", `{"prompt":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty prompt, got %d", resp.StatusCode)
	}
}

func TestTestUpstreamFailure(t *testing.T) {
	tester := &stubTester{TestFunc: func(context.Context, string) (string, error) {
		return "", types.NewTestError(errors.New("timeout"))
	}}
	srv := httptest.NewServer(New(nil, tester, Options{}))
	defer srv.Close()

	resp, _ := post(t, srv.URL+"/api/test", `{"prompt":"p"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
}

func TestClientRoundTrip(t *testing.T) {
	srv := demoServer(Options{})
	defer srv.Close()

	c := client.New(srv.URL, 5*time.Second)
	gen, err := c.Generate(context.Background(), "a todo app", []types.ContextFile{{Name: "notes.md", Type: "text/markdown", Size: 10}})
	if err != nil {
		t.Fatal(err)
	}
	if gen.Content.Task != "Help with: a todo app" {
		t.Errorf("unexpected task %q", gen.Content.Task)
	}

	result, err := c.Test(context.Background(), gen.Text)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(result, "This is a demo response") {
		t.Errorf("unexpected result %q", result)
	}
}

func TestCORS(t *testing.T) {
	srv := demoServer(Options{AllowedOrigins: []string{"http://localhost:5173"}})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/generate", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("expected CORS header, got %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin must not be granted access")
	}
}

func TestMetrics(t *testing.T) {
	srv := demoServer(Options{})
	defer srv.Close()

	post(t, srv.URL+"/api/generate", `{"idea":"x"}`)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `promptengine_generations_total{outcome="success"} 1`) {
		t.Errorf("expected generation counter in metrics output")
	}
	if !strings.Contains(string(body), `promptengine_upstream_duration_seconds_count{operation="generate"} 1`) {
		t.Errorf("expected upstream histogram in metrics output")
	}
}

func TestPromptsEndpoint(t *testing.T) {
	h := history.NewStore(kvstore.NewMemoryBackend())
	h.Add(types.Prompt{ID: "a", OriginalIdea: "Build a Parser", GeneratedPrompt: types.StructuredPromptContent{Task: "t"}})
	h.Add(types.Prompt{ID: "b", OriginalIdea: "Write a haiku", GeneratedPrompt: types.StructuredPromptContent{Task: "t"}})
	h.UpdateRating("b", types.RatingUp)

	srv := demoServer(Options{History: h})
	defer srv.Close()

	get := func(path string) (int, []types.Prompt) {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var out []types.Prompt
		json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	if _, all := get("/api/prompts"); len(all) != 2 || all[0].ID != "b" {
		t.Errorf("unexpected list %v", all)
	}
	if _, found := get("/api/prompts?search=parser"); len(found) != 1 || found[0].ID != "a" {
		t.Errorf("unexpected search result %v", found)
	}
	if _, up := get("/api/prompts?rating=1"); len(up) != 1 || up[0].ID != "b" {
		t.Errorf("unexpected rating result %v", up)
	}
	if code, _ := get("/api/prompts?rating=7"); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad rating, got %d", code)
	}

	resp, err := http.Get(srv.URL + "/api/prompts/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}

	// Rating toggles: the first up sets it, the second clears it.
	rate := func(id, body string) (int, RateResponse) {
		resp, raw := post(t, srv.URL+"/api/prompts/"+id+"/rate", body)
		var out RateResponse
		json.Unmarshal([]byte(raw), &out)
		return resp.StatusCode, out
	}
	if code, out := rate("a", `{"rating":1}`); code != http.StatusOK || out.Rating != types.RatingUp {
		t.Errorf("expected up, got %d %+v", code, out)
	}
	if code, out := rate("a", `{"rating":1}`); code != http.StatusOK || out.Rating != types.RatingNone {
		t.Errorf("expected rating cleared, got %d %+v", code, out)
	}
	if p, _ := h.Get("a"); p.Rating != types.RatingNone {
		t.Errorf("store not updated, got %v", p.Rating)
	}
	if code, _ := rate("missing", `{"rating":2}`); code != http.StatusNotFound {
		t.Errorf("expected 404 rating a missing prompt, got %d", code)
	}
	if code, _ := rate("a", `{"rating":5}`); code != http.StatusBadRequest {
		t.Errorf("expected 400 for out of range rating, got %d", code)
	}
	if code, _ := rate("a", `{}`); code != http.StatusBadRequest {
		t.Errorf("expected 400 without rating, got %d", code)
	}

	del := func(id string) int {
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/prompts/"+id, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	if code := del("a"); code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", code)
	}
	if h.Contains("a") {
		t.Error("expected prompt removed from the store")
	}
	if code := del("a"); code != http.StatusNotFound {
		t.Errorf("expected 404 deleting twice, got %d", code)
	}

	statsResp, err := http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer statsResp.Body.Close()
	var st Stats
	json.NewDecoder(statsResp.Body).Decode(&st)
	if st.TotalPrompts != 1 || st.AverageRating != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestCORSAllowsDelete(t *testing.T) {
	srv := demoServer(Options{AllowedOrigins: []string{"http://localhost:5173"}})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/prompts/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Errorf("expected DELETE in allowed methods, got %q", resp.Header.Get("Access-Control-Allow-Methods"))
	}
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	prompts := []types.Prompt{
		{ID: "a", Rating: types.RatingUp, CreatedAt: now.Add(-time.Hour), ContextFiles: []types.ContextFile{{Name: "a.go"}, {Name: "b.go"}}},
		{ID: "b", Rating: types.RatingDown, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "c", Rating: types.RatingDown, CreatedAt: now.Add(-30 * 24 * time.Hour)},
		{ID: "d", CreatedAt: now.Add(-30 * 24 * time.Hour)},
	}

	st := computeStats(prompts, now)
	if st.TotalPrompts != 4 || st.TotalFiles != 2 || st.PromptsThisWeek != 2 {
		t.Errorf("unexpected counts %+v", st)
	}
	if st.AverageRating != 1.67 {
		t.Errorf("expected average 1.67 over rated prompts, got %v", st.AverageRating)
	}
	if empty := computeStats(nil, now); empty.AverageRating != 0 || empty.TotalPrompts != 0 {
		t.Errorf("unexpected empty stats %+v", empty)
	}
}
