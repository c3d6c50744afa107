package ideasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFromURLConvertsHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><h1>Release notes bot</h1><p>Summarize <b>merged</b> PRs.</p></body></html>`))
	}))
	defer server.Close()

	got, err := NewFetcher().FromURL(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "# Release notes bot") {
		t.Errorf("expected markdown heading, got %q", got)
	}
	if !strings.Contains(got, "**merged**") {
		t.Errorf("expected bold markdown, got %q", got)
	}
}

func TestFromURLPlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("  a <b>literal</b> idea \n"))
	}))
	defer server.Close()

	got, err := NewFetcher().FromURL(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if got != "a <b>literal</b> idea" {
		t.Errorf("expected text passed through, got %q", got)
	}
}

func TestFromURLTruncates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(strings.Repeat("x", 10000)))
	}))
	defer server.Close()

	got, err := NewFetcher().FromURL(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(got, "[Content truncated]") {
		t.Error("expected truncation marker")
	}
	if len(got) > maxIdeaChars+50 {
		t.Errorf("result too long: %d", len(got))
	}
}

func TestFromURLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher()
	if _, err := f.FromURL(context.Background(), server.URL); err == nil {
		t.Error("expected error for 404")
	}
	if _, err := f.FromURL(context.Background(), ""); err == nil {
		t.Error("expected error for empty url")
	}
}
