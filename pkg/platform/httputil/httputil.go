// Package httputil writes JSON responses and maps domain errors to HTTP statuses.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "dealdesk/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the wire shape of every error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	CurrentState     string `json:"current_state,omitempty"`
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeValidation,
		dErrors.CodeReasonTooShort, dErrors.CodeAcknowledgmentRequired, dErrors.CodeJustificationRequired:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvalidTransition, dErrors.CodeNotAppealable,
		dErrors.CodeAppealAlreadyPending, dErrors.CodeAppealPending, dErrors.CodeAlreadyReconsidered,
		dErrors.CodeWindowExpired, dErrors.CodeWrongState:
		return http.StatusConflict
	case dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as an ErrorResponse. Internal errors never leak
// their message; state conflicts include the current state.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)

	resp := ErrorResponse{Error: string(code)}
	if status != http.StatusInternalServerError {
		if de, ok := dErrors.As(err); ok {
			resp.ErrorDescription = de.Message
			resp.CurrentState = de.State
		}
	}
	WriteJSON(w, status, resp)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes a bounded request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

// Validatable request bodies trim, parse and check themselves.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the body into a T and runs its Validate. On
// failure it writes the error response and returns ok=false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	if err := DecodeJSON(r, req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "invalid request body", "request_id", requestID, "error", err)
		}
		WriteError(w, err)
		return nil, false
	}
	if err := PT(req).Validate(); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request validation failed", "request_id", requestID, "error", err)
		}
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
