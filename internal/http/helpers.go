package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"divvy/internal/core"
)

// actorHeader carries the authenticated actor id, installed by the upstream
// identity provider. The ledger trusts it and never authenticates itself.
const actorHeader = "X-Actor-ID"

const maxBodyBytes = 1 << 20 // 1MB

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var (
		validationErr *core.ValidationError
		mismatchErr   *core.SplitMismatchError
	)
	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &mismatchErr),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyParticipants):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrForbidden), errors.Is(err, core.ErrNotAMember):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrAlreadyMember), errors.Is(err, core.ErrConcurrencyConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeJSON parses a request body into dst with a size cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &core.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

// actorID extracts the authenticated actor from the request.
func actorID(r *http.Request) (string, error) {
	actor := r.Header.Get(actorHeader)
	if actor == "" {
		return "", &core.ValidationError{Field: actorHeader, Reason: "missing actor id"}
	}
	return actor, nil
}

// parseAmount accepts either integer minor units or a decimal string.
func parseAmount(cents int64, decimal string) (core.Money, error) {
	if cents != 0 && decimal != "" {
		return core.Money{}, &core.ValidationError{Field: "amount", Reason: "provide amount_cents or amount, not both"}
	}
	if decimal != "" {
		parsed, err := core.ParseDecimalToCents(decimal)
		if err != nil {
			return core.Money{}, fmt.Errorf("parse amount %q: %w", decimal, err)
		}
		return core.Money{Cents: parsed}, nil
	}
	return core.Money{Cents: cents}, nil
}
