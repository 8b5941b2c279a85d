package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tipjar/pkg/domain-errors"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("ledger rejection carries its description", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteError(rr, dErrors.New(dErrors.CodeInsufficientBalance, "balance 0.001 is below 0.002"))

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		body := decodeError(t, rr)
		assert.Equal(t, "insufficient_balance", body["error"])
		assert.Equal(t, "balance 0.001 is below 0.002", body["error_description"])
	})

	t.Run("internal error hides its description", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteError(rr, dErrors.New(dErrors.CodeInternal, "pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		body := decodeError(t, rr)
		assert.Equal(t, "internal_error", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("uncoded error is internal", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteError(rr, errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestWriteJSON_NilBody(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusNoContent, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeDonationTooSmall:    http.StatusUnprocessableEntity,
		dErrors.CodeZeroAmount:          http.StatusUnprocessableEntity,
		dErrors.CodeArithmeticOverflow:  http.StatusUnprocessableEntity,
		dErrors.CodeArithmeticUnderflow: http.StatusUnprocessableEntity,
		dErrors.CodeUnauthorizedAccount: http.StatusForbidden,
		dErrors.CodeInsufficientBalance: http.StatusConflict,
		dErrors.CodeInvalidOwner:        http.StatusBadRequest,
		dErrors.CodeValidation:          http.StatusBadRequest,
		dErrors.CodeUnauthorized:        http.StatusUnauthorized,
		dErrors.CodeNotFound:            http.StatusNotFound,
		dErrors.CodeTimeout:             http.StatusGatewayTimeout,
		dErrors.CodeInvariantViolation:  http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFor(code), "status for %s", code)
	}
}

func TestDecodeJSON(t *testing.T) {
	type donation struct {
		Amount string `json:"amount"`
	}

	t.Run("decodes known fields", func(t *testing.T) {
		var body donation
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"0.001"}`))
		require.NoError(t, DecodeJSON(req, &body))
		assert.Equal(t, "0.001", body.Amount)
	})

	for name, raw := range map[string]string{
		"unknown field": `{"amount":"1","extra":true}`,
		"malformed":     `{"amount":`,
		"empty":         ``,
	} {
		t.Run(name, func(t *testing.T) {
			var body donation
			err := DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw)), &body)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest), "got %v", err)
		})
	}
}
