package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	codeNotFound    = "not_found"
	codeValidation  = "validation"
	codePersistence = "persistence"
	codeBadRequest  = "bad_request"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeError maps err onto a status code and error body
func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case types.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, codeNotFound, err.Error())
	case types.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, errBadRequest):
		writeJSONError(w, http.StatusBadRequest, codeBadRequest, err.Error())
	default:
		h.logger.Error("API request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSONError(w, http.StatusServiceUnavailable, codePersistence, err.Error())
	}
}

func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, badRequest("invalid item id %q", raw)
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid request payload: %v", err)
	}
	return nil
}

// queryInt reads an optional positive integer query parameter
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, types.NewValidationError(name, "must be an integer")
	}
	return n, nil
}
