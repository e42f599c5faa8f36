package handler

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/boddenberg/client-portal-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a bounded JSON body into dst. It writes the 400 itself
// and returns false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body required")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var (
		missing      *domain.ErrMissingCredential
		invalid      *domain.ErrInvalidCredential
		callerNF     *domain.ErrCallerNotFound
		tenantNF     *domain.ErrTenantNotFound
		tenantF      *domain.ErrTenantForbidden
		resourceNF   *domain.ErrResourceNotFound
		resourceF    *domain.ErrResourceForbidden
		badMAC       *domain.ErrInvalidSignature
		validation   *domain.ErrValidation
		conflict     *domain.ErrConflict
		insufficient *domain.ErrInsufficientCredits
		rateLimited  *domain.ErrRateLimited
		badCreds     *domain.ErrBadCredentials
		circuitOpen  *domain.ErrCircuitOpen
		storage      *domain.ErrStorage
	)

	switch {
	case errors.As(err, &missing), errors.As(err, &invalid), errors.As(err, &callerNF):
		logger.Debug("unauthenticated", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &tenantF), errors.As(err, &resourceF):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &tenantNF), errors.As(err, &resourceNF):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &badMAC):
		logger.Warn("invalid webhook signature")
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &insufficient):
		logger.Info("insufficient credits",
			zap.Int64("available", insufficient.Available),
			zap.Int64("required", insufficient.Required),
		)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &rateLimited):
		secs := int(math.Ceil(rateLimited.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &badCreds):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	case errors.As(err, &storage):
		logger.Error("storage error", zap.String("op", storage.Op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
