package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dealdesk/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("non-domain error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})

	t.Run("validation includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeReasonTooShort, "reason must be at least 50 characters"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "reason_too_short", body["error"])
		assert.Equal(t, "reason must be at least 50 characters", body["error_description"])
	})

	t.Run("state conflict reports current state", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Conflict(dErrors.CodeInvalidTransition, "cannot record decision", "approved"))

		assert.Equal(t, http.StatusConflict, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "invalid_transition", body["error"])
		assert.Equal(t, "approved", body["current_state"])
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeUnauthorized:          http.StatusUnauthorized,
		dErrors.CodeForbidden:             http.StatusForbidden,
		dErrors.CodeNotFound:              http.StatusNotFound,
		dErrors.CodeConflict:              http.StatusConflict,
		dErrors.CodeWindowExpired:         http.StatusConflict,
		dErrors.CodeAppealAlreadyPending:  http.StatusConflict,
		dErrors.CodeJustificationRequired: http.StatusBadRequest,
		dErrors.CodeTimeout:               http.StatusGatewayTimeout,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFor(code), string(code))
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Outcome string `json:"outcome"`
	}

	t.Run("decodes known fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"outcome":"approved"}`))
		var p payload
		require.NoError(t, DecodeJSON(r, &p))
		assert.Equal(t, "approved", p.Outcome)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"outcome":"approved","force":true}`))
		var p payload
		err := DecodeJSON(r, &p)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects empty body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var p payload
		err := DecodeJSON(r, &p)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

type noteRequest struct {
	Note string `json:"note"`
}

func (r *noteRequest) Validate() error {
	r.Note = strings.TrimSpace(r.Note)
	if r.Note == "" {
		return dErrors.New(dErrors.CodeValidation, "note is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("valid body is normalized", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"note":"  hi  "}`))
		req, ok := DecodeAndPrepare[noteRequest](w, r, nil, r.Context(), "")
		require.True(t, ok)
		assert.Equal(t, "hi", req.Note)
	})

	t.Run("validation failure writes 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"note":"   "}`))
		_, ok := DecodeAndPrepare[noteRequest](w, r, nil, r.Context(), "")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "validation_error")
	})
}
