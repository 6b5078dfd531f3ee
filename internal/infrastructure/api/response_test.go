package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storebridge-sync-core/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOK_WrapsDataInEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]string{"domain": "acme-outdoor.myshopify.com"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]interface{}{"domain": "acme-outdoor.myshopify.com"}, resp.Data)
}

func TestCreated_Uses201(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]string{"id": "store-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestError_MapsDomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unknown store", fmt.Errorf("%w: store-9", domain.ErrUnknownStore), http.StatusNotFound, "unknown_store"},
		{"remote not found", domain.ErrRemoteNotFound, http.StatusNotFound, "not_found"},
		{"bad signature", domain.ErrAuthenticationFailed, http.StatusUnauthorized, "authentication_failed"},
		{"validation", fmt.Errorf("%w: domain is required", domain.ErrValidation), http.StatusBadRequest, "validation_failed"},
		{"conflict", domain.ErrConflict, http.StatusConflict, "conflict"},
		{"duplicate event", domain.ErrDuplicateEvent, http.StatusConflict, "conflict"},
		{"rate limited", domain.ErrRateLimitExceeded, http.StatusTooManyRequests, "rate_limited"},
		{"anything else", errors.New("mongo timeout"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.err.Error(), resp.Error.Message)
		})
	}
}
