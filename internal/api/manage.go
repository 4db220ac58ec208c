package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/forlove/internal/candidate"
	"github.com/kalambet/forlove/internal/catalog"
	"github.com/kalambet/forlove/internal/identity"
	"github.com/kalambet/forlove/internal/slots"
	"github.com/kalambet/forlove/internal/storage"
)

// GenerationLog reads recorded generations.
type GenerationLog interface {
	RecentGenerations(limit int) ([]storage.Generation, error)
	CountGenerationsByOutcome() (map[string]int, error)
}

type AppDeps struct {
	Slots       *slots.Store
	Identity    *identity.Manager
	History     *candidate.Archive
	Generations GenerationLog
	Token       string
}

// NewAppHandler returns the authenticated management API.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(BearerAuth(deps.Token))

	r.Get("/slots", handleGetSlots(deps))
	r.Put("/slots/active", handleSetActiveSlots(deps))
	r.Put("/slots/cursor", handleSetCursor(deps))
	r.Put("/slots/{id}/sub/{index}", handleSelectSubCategory(deps))
	r.Patch("/slots/{id}/config", handlePatchSlotConfig(deps))
	r.Get("/identity", handleGetIdentity(deps))
	r.Put("/identity", handlePutIdentity(deps))
	r.Patch("/identity", handlePatchIdentity(deps))
	r.Get("/history", handleListHistory(deps))
	r.Delete("/history", handleClearHistory(deps))
	r.Get("/generations", handleListGenerations(deps))

	return r
}

type slotsResponse struct {
	Configuration slots.UserSlotConfiguration `json:"configuration"`
	ActiveIndex   int                         `json:"activeIndex"`
}

func writeSlots(w http.ResponseWriter, deps AppDeps, cfg slots.UserSlotConfiguration) {
	writeJSON(w, http.StatusOK, slotsResponse{Configuration: cfg, ActiveIndex: deps.Slots.ActiveIndex(cfg)})
}

func handleGetSlots(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSlots(w, deps, deps.Slots.Load())
	}
}

func handleSetActiveSlots(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var body struct {
			IDs []int `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := slots.CheckActiveIDs(body.IDs); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		cfg, err := deps.Slots.SetActiveSlots(body.IDs)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving active slots: %v", err)
			return
		}
		writeSlots(w, deps, cfg)
	}
}

func handleSetCursor(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Index int `json:"index"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&body); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		cfg := deps.Slots.Load()
		if !deps.Slots.SetActiveIndex(cfg, body.Index) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "index %d is not an active slot position", body.Index)
			return
		}
		writeSlots(w, deps, cfg)
	}
}

func slotIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 || id >= slots.SlotCount {
		httpError(w, http.StatusNotFound, "not_found", "slot not found")
		return 0, false
	}
	return id, true
}

// handleSelectSubCategory treats an out-of-range index as a no-op and
// returns the unchanged configuration.
func handleSelectSubCategory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := slotIDParam(w, r)
		if !ok {
			return
		}
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "index must be an integer")
			return
		}
		cfg, err := deps.Slots.SelectSubCategory(id, index)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving selection: %v", err)
			return
		}
		writeSlots(w, deps, cfg)
	}
}

type slotConfigPatch struct {
	WordCount         *catalog.WordCount       `json:"wordCount"`
	AggressionLevel   *catalog.AggressionLevel `json:"aggressionLevel"`
	AdultStyle        *catalog.AdultStyle      `json:"adultStyle"`
	CustomStyleParams *catalog.StyleParams     `json:"customStyleParams"`
	ResetStyleParams  bool                     `json:"resetStyleParams"`
	IsEnabled         *bool                    `json:"isEnabled"`
}

func (p slotConfigPatch) apply(s *slots.CategorySlot) {
	if p.WordCount != nil {
		s.ConfigV2.WordCount = *p.WordCount
	}
	if p.AggressionLevel != nil {
		s.ConfigV2.AggressionLevel = *p.AggressionLevel
	}
	if p.AdultStyle != nil {
		s.ConfigV2.AdultStyle = *p.AdultStyle
	}
	if p.ResetStyleParams {
		s.CustomStyleParams = nil
	} else if p.CustomStyleParams != nil {
		sp := *p.CustomStyleParams
		s.CustomStyleParams = &sp
	}
	if p.IsEnabled != nil {
		s.IsEnabled = *p.IsEnabled
	}
}

func handlePatchSlotConfig(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := slotIDParam(w, r)
		if !ok {
			return
		}
		var patch slotConfigPatch
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&patch); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		cfg, err := deps.Slots.PatchSlot(id, patch.apply)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving slot: %v", err)
			return
		}
		writeSlots(w, deps, cfg)
	}
}

func handleGetIdentity(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deps.Identity.Get()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading identity: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, id)
	}
}

func handlePutIdentity(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := identity.Default()
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&in); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid identity: %v", err)
			return
		}
		if err := deps.Identity.Save(in); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving identity: %v", err)
			return
		}
		handleGetIdentity(deps)(w, r)
	}
}

// handlePatchIdentity takes a flat object of profile keys to values, e.g.
// {"identity.gender": "女"}.
func handlePatchIdentity(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]string
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&fields); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := deps.Identity.SetFields(fields); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		handleGetIdentity(deps)(w, r)
	}
}

func limitParam(r *http.Request, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		return v
	}
	return def
}

func handleListHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := deps.History.Recent(limitParam(r, 20))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading history: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func handleClearHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.History.Clear(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "clearing history: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListGenerations(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Generations == nil {
			httpError(w, http.StatusNotFound, "not_found", "generation log not available")
			return
		}
		gens, err := deps.Generations.RecentGenerations(limitParam(r, 50))
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusInternalServerError, "api_error", "loading generations: %v", err)
			return
		}
		counts, err := deps.Generations.CountGenerationsByOutcome()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "counting generations: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": gens, "outcomes": counts})
	}
}
