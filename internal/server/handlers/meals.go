package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/go-chi/chi/v5"

	"github.com/platelog/platelog/internal/core"
	"github.com/platelog/platelog/internal/core/engine"
	apperrors "github.com/platelog/platelog/internal/errors"
)

// maxRequestBytes caps JSON and form bodies.
const maxRequestBytes = 1 << 20

// recentOnPage is how many stored meals the HTML page shows.
const recentOnPage = 10

// MealResolver resolves meal descriptions into nutrient breakdowns.
type MealResolver interface {
	Resolve(ctx context.Context, text string, overrides map[int]float64) (*core.MealAnalysis, error)
	Plan(text string) []engine.PlannedItem
}

// EntryStore persists analysed meals.
type EntryStore interface {
	SaveEntry(ctx context.Context, text string, items []core.ResolvedItem, createdAt *time.Time) (int64, error)
	ListEntries(ctx context.Context, limit int) ([]core.Entry, error)
	GetEntry(ctx context.Context, id int64) (*core.Entry, error)
}

// MealHandler serves the meal page and the meal JSON API.
type MealHandler struct {
	Resolver MealResolver
	Store    EntryStore
}

// NewMealHandler wires a handler to its resolver and store.
func NewMealHandler(resolver MealResolver, store EntryStore) *MealHandler {
	return &MealHandler{Resolver: resolver, Store: store}
}

// ParseRequest is the body of POST /api/parse.
type ParseRequest struct {
	Text string `json:"text"`
}

// ParseResponse lists split items with the portion each would be given.
type ParseResponse struct {
	Items []engine.PlannedItem `json:"items"`
}

// AnalyzeRequest is the body of POST /api/analyze. Grams maps item positions
// ("0", "1", ...) to portion overrides.
type AnalyzeRequest struct {
	Text  string             `json:"text"`
	Grams map[string]float64 `json:"grams,omitempty"`
	Save  bool               `json:"save,omitempty"`
}

// AnalyzeResponse is a meal analysis, with the stored id when it was saved.
type AnalyzeResponse struct {
	core.MealAnalysis
	ID *int64 `json:"id,omitempty"`
}

// SaveEntryRequest is the body of POST /api/entries.
type SaveEntryRequest struct {
	Text      string              `json:"text"`
	Items     []core.ResolvedItem `json:"items"`
	CreatedAt *time.Time          `json:"created_at,omitempty"`
}

// SaveEntryResponse carries the id of a stored entry.
type SaveEntryResponse struct {
	ID int64 `json:"id"`
}

// EntriesResponse lists stored entries, newest first.
type EntriesResponse struct {
	Entries []core.Entry `json:"entries"`
}

// Parse handles POST /api/parse.
func (h *MealHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ParseResponse{Items: h.Resolver.Plan(req.Text)})
}

// Analyze handles POST /api/analyze.
func (h *MealHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}

	overrides, err := parseOverrides(req.Grams)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapValidationError(r.Context(), err, err.Error()))
		return
	}

	analysis, err := h.Resolver.Resolve(r.Context(), req.Text, overrides)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.FromMealError(r.Context(), err))
		return
	}

	response := AnalyzeResponse{MealAnalysis: *analysis}
	if req.Save {
		if h.Store == nil {
			apperrors.RespondWithError(w, r, storeUnavailable())
			return
		}
		id, err := h.Store.SaveEntry(r.Context(), req.Text, analysis.Items, nil)
		if err != nil {
			apperrors.RespondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to save entry"))
			return
		}
		response.ID = &id
	}

	writeJSON(w, http.StatusOK, response)
}

// SaveEntry handles POST /api/entries.
func (h *MealHandler) SaveEntry(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		apperrors.RespondWithError(w, r, storeUnavailable())
		return
	}

	var req SaveEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	if err := core.ValidateItems(req.Items); err != nil {
		apperrors.RespondWithError(w, r, apperrors.FromMealError(r.Context(), err))
		return
	}

	id, err := h.Store.SaveEntry(r.Context(), req.Text, req.Items, req.CreatedAt)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to save entry"))
		return
	}

	writeJSON(w, http.StatusCreated, SaveEntryResponse{ID: id})
}

// ListEntries handles GET /api/entries.
func (h *MealHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		apperrors.RespondWithError(w, r, storeUnavailable())
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			apperrors.RespondWithError(w, r, apperrors.NewValidationError("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	entries, err := h.Store.ListEntries(r.Context(), limit)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to list entries"))
		return
	}

	writeJSON(w, http.StatusOK, EntriesResponse{Entries: entries})
}

// GetEntry handles GET /api/entries/{id}.
func (h *MealHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		apperrors.RespondWithError(w, r, storeUnavailable())
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.NewValidationError("entry id must be an integer"))
		return
	}

	entry, err := h.Store.GetEntry(r.Context(), id)
	if err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load entry"))
		return
	}
	if entry == nil {
		apperrors.RespondWithError(w, r, apperrors.NewNotFoundError(fmt.Sprintf("entry %d not found", id)))
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func parseOverrides(raw map[string]float64) (map[int]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	overrides := make(map[int]float64, len(raw))
	for key, grams := range raw {
		index, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("grams key %q is not an item position", key)
		}
		overrides[index] = grams
	}
	return overrides, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if err == io.EOF {
			return apperrors.NewInvalidInputError("request body is required")
		}
		return apperrors.WrapInvalidInput(r.Context(), err, "request body is not valid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func storeUnavailable() *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope(apperrors.CodeServiceUnavailable, "meal store is not configured")
}
