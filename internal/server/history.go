package server

import (
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/jscyril/vibestream/internal/store"
)

// HistoryHandler serves /api/search-history
type HistoryHandler struct {
	store  store.Store
	logger *log.Logger
}

func NewHistoryHandler(st store.Store, logger *log.Logger) *HistoryHandler {
	return &HistoryHandler{store: st, logger: logger}
}

func (h *HistoryHandler) Routes() []string { return []string{"/api/search-history"} }

func (h *HistoryHandler) Methods() []string {
	return []string{http.MethodGet, http.MethodPost, http.MethodDelete}
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.add(w, r)
	case http.MethodDelete:
		h.clear(w, r)
	}
}

func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	limit := store.DefaultHistoryLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	history, err := h.store.ListSearches(r.Context(), userID, q.Get("type"), limit)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (h *HistoryHandler) add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"userId"`
		Query   string `json:"query"`
		Results int    `json:"results"`
		Type    string `json:"type"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	if req.UserID == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "User ID and query are required")
		return
	}

	err := h.store.AddSearch(r.Context(), store.SearchEntry{
		UserID:        req.UserID,
		OriginalQuery: req.Query,
		Type:          req.Type,
		ResultsCount:  req.Results,
	})
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Search query added to history", Success: true})
}

func (h *HistoryHandler) clear(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Type   string `json:"type"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	if err := h.store.ClearSearches(r.Context(), req.UserID, req.Type); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Search history cleared", Success: true})
}
