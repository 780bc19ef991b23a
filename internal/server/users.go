package server

import (
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/jscyril/vibestream/internal/store"
)

// UsersHandler serves /api/users
type UsersHandler struct {
	store  store.Store
	logger *log.Logger
}

func NewUsersHandler(st store.Store, logger *log.Logger) *UsersHandler {
	return &UsersHandler{store: st, logger: logger}
}

func (h *UsersHandler) Routes() []string { return []string{"/api/users"} }

func (h *UsersHandler) Methods() []string {
	return []string{http.MethodGet, http.MethodPost, http.MethodPut}
}

func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.upsert(w, r)
	case http.MethodPut:
		h.updateProfile(w, r)
	}
}

func (h *UsersHandler) get(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// upsert records a sign-in
func (h *UsersHandler) upsert(w http.ResponseWriter, r *http.Request) {
	var req store.User
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	if req.UserID == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "User ID and email are required")
		return
	}

	created, err := h.store.UpsertUser(r.Context(), req)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	user, err := h.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}

	msg := "User updated"
	if created {
		msg = "User created"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"user":    user,
		"success": true,
		"created": created,
	})
}

func (h *UsersHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"userId"`
		DisplayName string `json:"displayName"`
		PhotoURL    string `json:"photoURL"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	if err := h.store.UpdateProfile(r.Context(), req.UserID, req.DisplayName, req.PhotoURL); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Profile updated", Success: true})
}
