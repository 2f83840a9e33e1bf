// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	service "github.com/okian/modelrank/internal/app"
	"github.com/okian/modelrank/internal/domain/model"
)

// defaultRankingsLimit applies when the limit query parameter is absent.
const defaultRankingsLimit = 10

// RankingsDependencies defines the interface for ranking reads.
type RankingsDependencies interface {
	Rankings(ctx context.Context, date string, limit int) (string, []service.RankingEntry, error)
}

// RankingsHandler handles ranking read requests.
type RankingsHandler struct {
	deps     RankingsDependencies
	maxLimit int
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingsDependencies, maxLimit int) *RankingsHandler {
	return &RankingsHandler{deps: deps, maxLimit: maxLimit}
}

// rankingsResponse mirrors the OpenAPI schema for GET /rankings.
type rankingsResponse struct {
	Date   string         `json:"date"`
	Models []rankingEntry `json:"models"`
}

type rankingEntry struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Provider        string  `json:"provider"`
	ContextLength   int     `json:"context_length"`
	Rank            int     `json:"rank"`
	RankScore       float64 `json:"rank_score"`
	PromptPrice     float64 `json:"prompt_price"`
	CompletionPrice float64 `json:"completion_price"`
	PriorRank       int     `json:"prior_rank"`
	Delta           int     `json:"delta"`
}

// HandleGetRankings handles GET /rankings?limit=N&date=YYYY-MM-DD requests.
// An absent date selects the latest committed cycle.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	queryDate := r.URL.Query().Get("date")
	if queryDate != "" {
		if _, err := time.Parse(model.DateFormat, queryDate); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: date must be formatted as %s", ErrBadRequest, model.DateFormat))
			return
		}
	}

	limit := defaultRankingsLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%w: limit above %d", ErrBadRequest, h.maxLimit))
		return
	}

	date, entries, err := h.deps.Rankings(r.Context(), queryDate, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	resp := rankingsResponse{Date: date, Models: make([]rankingEntry, len(entries))}
	for i, e := range entries {
		resp.Models[i] = rankingEntry{
			ID:              e.Model.Record.ID,
			Name:            e.Model.Record.Name,
			Provider:        e.Model.Record.Provider,
			ContextLength:   e.Model.Record.ContextLength,
			Rank:            e.Model.Rank,
			RankScore:       e.Model.RankScore,
			PromptPrice:     e.Model.PromptPrice,
			CompletionPrice: e.Model.CompletionPrice,
			PriorRank:       e.PriorRank,
			Delta:           e.Delta,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
