package server

import (
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/jscyril/vibestream/api"
	"github.com/jscyril/vibestream/internal/store"
)

// FavoritesHandler serves /api/favorites
type FavoritesHandler struct {
	store  store.Store
	logger *log.Logger
}

func NewFavoritesHandler(st store.Store, logger *log.Logger) *FavoritesHandler {
	return &FavoritesHandler{store: st, logger: logger}
}

func (h *FavoritesHandler) Routes() []string { return []string{"/api/favorites"} }

func (h *FavoritesHandler) Methods() []string {
	return []string{http.MethodGet, http.MethodPost, http.MethodDelete}
}

// favoriteTrack accepts web clients that identify YouTube tracks by videoId
type favoriteTrack struct {
	api.Track
	VideoID string `json:"videoId"`
}

func (t *favoriteTrack) normalize() *api.Track {
	if t == nil {
		return nil
	}
	track := t.Track
	if track.ID == "" {
		track.ID = t.VideoID
	}
	if track.EmbedID == "" && t.VideoID != "" {
		track.EmbedID = t.VideoID
		if track.Source == "" {
			track.Source = api.SourceYouTube
		}
	}
	return &track
}

func (h *FavoritesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.add(w, r)
	case http.MethodDelete:
		h.remove(w, r)
	}
}

func (h *FavoritesHandler) list(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	favorites, err := h.store.ListFavorites(r.Context(), userID)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": favorites})
}

func (h *FavoritesHandler) add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string         `json:"userId"`
		Track  *favoriteTrack `json:"track"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	track := req.Track.normalize()
	if req.UserID == "" || track == nil || track.ID == "" {
		writeError(w, http.StatusBadRequest, "User ID and track are required")
		return
	}

	exists, err := h.store.AddFavorite(r.Context(), req.UserID, *track)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	if exists {
		writeJSON(w, http.StatusOK, messageBody{Message: "Track already in favorites", AlreadyExists: true})
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Track added to favorites", Success: true})
}

func (h *FavoritesHandler) remove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"userId"`
		TrackID string `json:"trackId"`
		VideoID string `json:"videoId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	trackID := req.TrackID
	if trackID == "" {
		trackID = req.VideoID
	}
	if req.UserID == "" || trackID == "" {
		writeError(w, http.StatusBadRequest, "User ID and video ID are required")
		return
	}

	if err := h.store.RemoveFavorite(r.Context(), req.UserID, trackID); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Track removed from favorites", Success: true})
}
