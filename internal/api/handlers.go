package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/swap-notifier/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// handleHealth reports process and backing-store liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "database unreachable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "swap-notifier",
	})
}

// handleListSwaps returns stored swaps with their delivery audit trails,
// newest first. Optional query params: token, chain, processed, limit.
func (s *Server) handleListSwaps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var processed *bool
	if raw := q.Get("processed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "processed must be a boolean")
			return
		}
		processed = &v
	}

	limit := defaultListLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "limit must be a positive integer")
			return
		}
		if v > maxListLimit {
			v = maxListLimit
		}
		limit = v
	}

	records, err := s.swaps.List(r.Context(), q.Get("token"), q.Get("chain"), processed, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list swaps")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to list swaps")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"swaps": records,
		"count": len(records),
	})
}

// handleGetSwap returns one swap record by transaction hash.
func (s *Server) handleGetSwap(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]

	record, err := s.swaps.GetByHash(r.Context(), hash)
	if err != nil {
		if errors.Is(err, storage.ErrSwapNotFound) {
			respondError(w, http.StatusNotFound, ErrCodeNotFound, "swap not found")
			return
		}
		s.logger.WithError(err).Error("Failed to get swap")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to get swap")
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// handleListChains returns the supported chain reference data.
func (s *Server) handleListChains(w http.ResponseWriter, r *http.Request) {
	chains, err := s.chains.List(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to list chains")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to list chains")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"chains": chains,
	})
}

// ErrorResponse is the JSON shape for error replies.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	respondJSON(w, statusCode, resp)
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
