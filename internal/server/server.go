// Package server exposes generation and testing over HTTP using the same
// contract the studio client speaks.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/promptengine/internal/client"
	"github.com/user/promptengine/internal/history"
	"github.com/user/promptengine/internal/session"
	"github.com/user/promptengine/internal/types"
)

const serviceName = "Prompt Engine API"

// Options configures optional server features.
type Options struct {
	// AllowedOrigins lists origins granted CORS access.
	AllowedOrigins []string
	// History, when set, is served read-only under /api/prompts.
	History *history.Store
}

// Server is the studio HTTP API.
type Server struct {
	gen     session.Generator
	tester  session.Tester
	history *history.Store
	origins []string
	metrics *Metrics
	router  *chi.Mux
}

func New(gen session.Generator, tester session.Tester, opts Options) *Server {
	s := &Server{
		gen:     gen,
		tester:  tester,
		history: opts.History,
		origins: opts.AllowedOrigins,
		router:  chi.NewRouter(),
	}

	var historySize func() float64
	if s.history != nil {
		historySize = func() float64 { return float64(s.history.Len()) }
	}
	s.metrics = NewMetrics(historySize)

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.cors)

	s.router.Get("/", s.handleRoot)
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/generate", s.handleGenerate)
	s.router.Post("/api/test", s.handleTest)
	s.router.Get("/api/prompts", s.handleListPrompts)
	s.router.Get("/api/prompts/{id}", s.handleGetPrompt)
	s.router.Post("/api/prompts/{id}/rate", s.handleRatePrompt)
	s.router.Delete("/api/prompts/{id}", s.handleDeletePrompt)
	s.router.Get("/api/stats", s.handleStats)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return s
}

// ServeHTTP delegates to the router, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("studio API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && slices.Contains(s.origins, origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, client.ErrorResponse{Error: msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": serviceName, "version": "1.0.0"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": serviceName})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req client.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	idea := req.Idea
	if strings.TrimSpace(idea) == "" {
		writeError(w, http.StatusBadRequest, "Idea cannot be empty")
		return
	}

	start := time.Now()
	gen, err := s.gen.Generate(r.Context(), idea, req.Files)
	s.metrics.UpstreamDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	s.metrics.Generations.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		slog.Error("generate failed", "error", err)
		writeError(w, http.StatusBadGateway, types.UserMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, client.GenerateResponse{
		GeneratedPrompt:     &gen.Content,
		GeneratedPromptText: gen.Text,
	})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var req client.TestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "Prompt cannot be empty")
		return
	}

	start := time.Now()
	result, err := s.tester.Test(r.Context(), req.Prompt)
	s.metrics.UpstreamDuration.WithLabelValues("test").Observe(time.Since(start).Seconds())
	s.metrics.Tests.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		slog.Error("test failed", "error", err)
		writeError(w, http.StatusBadGateway, types.UserMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, client.TestResponse{TestResult: &result})
}

// handleListPrompts serves the local history filtered by ?search= and
// ?rating= (all, none, up, down or 0-2).
func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}

	filter := types.FilterAll
	if raw := r.URL.Query().Get("rating"); raw != "" {
		var err error
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			filter = types.FilterOf(types.Rating(n))
			if n < 0 || n > 2 {
				err = errors.New("rating out of range")
			}
		} else {
			filter, err = types.ParseRatingFilter(raw)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid rating filter")
			return
		}
	}

	prompts := s.history.FilteredView(r.URL.Query().Get("search"), filter)
	if prompts == nil {
		prompts = []types.Prompt{}
	}
	writeJSON(w, http.StatusOK, prompts)
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}
	p, ok := s.history.Get(types.PromptID(chi.URLParam(r, "id")))
	if !ok {
		writeError(w, http.StatusNotFound, "Prompt not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
