package server

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/user/promptengine/internal/types"
)

// RateRequest is the body of POST /api/prompts/{id}/rate. Rating is 0-2.
type RateRequest struct {
	Rating *types.Rating `json:"rating"`
}

// RateResponse reports the rating after the toggle.
type RateResponse struct {
	PromptID types.PromptID `json:"prompt_id"`
	Rating   types.Rating   `json:"rating"`
}

// Stats summarizes the saved history.
type Stats struct {
	TotalPrompts int `json:"total_prompts"`
	// AverageRating averages the stored values of rated prompts only.
	AverageRating   float64 `json:"average_rating"`
	TotalFiles      int     `json:"total_files"`
	PromptsThisWeek int     `json:"prompts_this_week"`
}

// handleRatePrompt toggles a rating: sending the current rating clears it.
func (s *Server) handleRatePrompt(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}
	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Rating == nil || *req.Rating < types.RatingNone || *req.Rating > types.RatingDown {
		writeError(w, http.StatusBadRequest, "rating must be 0, 1 or 2")
		return
	}

	id := types.PromptID(chi.URLParam(r, "id"))
	rating, ok := s.history.UpdateRating(id, *req.Rating)
	if !ok {
		writeError(w, http.StatusNotFound, "Prompt not found")
		return
	}
	slog.Info("prompt rated", "id", id, "rating", rating)
	writeJSON(w, http.StatusOK, RateResponse{PromptID: id, Rating: rating})
}

func (s *Server) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}
	id := types.PromptID(chi.URLParam(r, "id"))
	if !s.history.Contains(id) {
		writeError(w, http.StatusNotFound, "Prompt not found")
		return
	}
	s.history.Remove(id)
	slog.Info("prompt deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}
	writeJSON(w, http.StatusOK, computeStats(s.history.All(), time.Now()))
}

func computeStats(prompts []types.Prompt, now time.Time) Stats {
	st := Stats{TotalPrompts: len(prompts)}
	weekAgo := now.Add(-7 * 24 * time.Hour)
	sum, rated := 0, 0
	for _, p := range prompts {
		if p.Rating != types.RatingNone {
			sum += int(p.Rating)
			rated++
		}
		st.TotalFiles += len(p.ContextFiles)
		if !p.CreatedAt.Before(weekAgo) {
			st.PromptsThisWeek++
		}
	}
	if rated > 0 {
		st.AverageRating = math.Round(float64(sum)/float64(rated)*100) / 100
	}
	return st
}
