package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tragent/account-engine/internal/account"
	"github.com/tragent/account-engine/internal/automaton"
	"github.com/tragent/account-engine/internal/catalog"
	"github.com/tragent/account-engine/internal/ledger"
	"github.com/tragent/account-engine/internal/limits"
)

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument),
		errors.Is(err, automaton.ErrInvalidStrategy),
		errors.Is(err, automaton.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNoPosition),
		errors.Is(err, catalog.ErrTokenNotFound),
		errors.Is(err, catalog.ErrProposalNotFound),
		errors.Is(err, automaton.ErrAgentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, limits.ErrPerTokenLimitExceeded),
		errors.Is(err, limits.ErrTotalLimitExceeded):
		return http.StatusConflict
	case errors.Is(err, automaton.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, account.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with the status its kind maps to.
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
	}
	writeError(w, err.Error(), status)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
