package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/utsavhq/vendormatch/internal/directory"
	"github.com/utsavhq/vendormatch/internal/match"
)

// MatchRequest represents the request body for POST /match. Budget arrives as
// text because host forms submit text; normalization happens in the engine,
// never here.
type MatchRequest struct {
	EventType  string   `json:"event_type"`
	City       string   `json:"city"`
	Budget     string   `json:"budget"`
	Categories []string `json:"categories"`
}

// VendorCard is the flattened vendor view returned per ranked candidate.
type VendorCard struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Status   string   `json:"status"`
	City     string   `json:"city"`
	Rating   float64  `json:"rating"`
	PriceMin *float64 `json:"price_min"`
	PriceMax *float64 `json:"price_max"`
	Tags     []string `json:"tags"`
	Score    float64  `json:"score"`
}

// MatchResponse represents the response body for POST /match. Every requested
// category appears as a key in Results; Evaluated counts the vendors the
// engine considered.
type MatchResponse struct {
	Results   map[directory.Category][]VendorCard `json:"results"`
	Evaluated int                                 `json:"evaluated"`
}

// MatchHandlers holds dependencies for the match HTTP handler.
type MatchHandlers struct {
	repo    directory.Repository
	cache   *directory.SnapshotCache
	matcher *match.Matcher
}

// NewMatchHandlers creates a new MatchHandlers instance. The cache may be nil,
// in which case every request reads the repository directly.
func NewMatchHandlers(repo directory.Repository, cache *directory.SnapshotCache, matcher *match.Matcher) *MatchHandlers {
	return &MatchHandlers{repo: repo, cache: cache, matcher: matcher}
}

// Match handles POST /match - ranks the vendor directory against an event
// request. Unknown event types and categories are rejected with 400; an empty
// category selection and unparseable budget text are normalized by the engine
// and never rejected.
func (h *MatchHandlers) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	eventType, ok := match.ParseEventType(req.EventType)
	if !ok {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation,
			fmt.Sprintf("unknown event_type %q", req.EventType))
		return
	}

	categories := make([]directory.Category, 0, len(req.Categories))
	for _, s := range req.Categories {
		c, ok := directory.ParseCategory(s)
		if !ok {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation,
				fmt.Sprintf("unknown category %q", s))
			return
		}
		categories = append(categories, c)
	}

	vendors, err := h.snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load directory snapshot", "error", err)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load vendor directory")
		return
	}

	matchReq := match.NewRequest(eventType, req.City, req.Budget, categories)
	result := h.matcher.Match(r.Context(), vendors, matchReq)

	resp := MatchResponse{
		Results:   make(map[directory.Category][]VendorCard, len(result)),
		Evaluated: len(vendors),
	}
	for category, candidates := range result {
		cards := make([]VendorCard, 0, len(candidates))
		for _, cand := range candidates {
			cards = append(cards, newVendorCard(cand))
		}
		resp.Results[category] = cards
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode match response", "error", err)
	}
}

// snapshot returns the directory snapshot, preferring the cache when one is
// configured. Cache misses fall through to the repository and repopulate.
func (h *MatchHandlers) snapshot(ctx context.Context) ([]directory.Vendor, error) {
	if h.cache != nil {
		if vendors, ok := h.cache.Get(ctx); ok {
			return vendors, nil
		}
	}

	vendors, err := h.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		h.cache.Set(ctx, vendors)
	}
	return vendors, nil
}

func newVendorCard(c match.Candidate) VendorCard {
	tags := c.Vendor.Tags
	if tags == nil {
		tags = []string{}
	}
	return VendorCard{
		ID:       c.Vendor.ID,
		Name:     c.Vendor.Name,
		Category: string(c.Vendor.Category),
		Status:   string(c.Vendor.Status),
		City:     c.Vendor.City,
		Rating:   c.Vendor.Rating,
		PriceMin: c.Vendor.PriceMin,
		PriceMax: c.Vendor.PriceMax,
		Tags:     tags,
		Score:    c.Score,
	}
}
