package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	playerrors "github.com/jscyril/vibestream/pkg/errors"
)

// maxBodySize bounds JSON request bodies
const maxBodySize = 1 << 20

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type messageBody struct {
	Message       string `json:"message"`
	Success       bool   `json:"success,omitempty"`
	AlreadyExists bool   `json:"alreadyExists,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeFailure maps err to a status: invalid input is 400, not found is 404
// and everything else is a 500 carrying the error text as details.
func writeFailure(w http.ResponseWriter, logger *log.Logger, err error) {
	switch {
	case errors.Is(err, playerrors.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, playerrors.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error", Details: err.Error()})
	}
}

// decodeBody reads a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid JSON body: %v", playerrors.ErrInvalidInput, err)
	}
	return nil
}
