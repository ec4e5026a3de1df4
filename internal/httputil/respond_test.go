package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clockset/accountd/pkg/domain"
)

func TestDomainErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		reason string
	}{
		{domain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
		{domain.ErrCodeNotFound, http.StatusNotFound, "code_not_found"},
		{domain.ErrUserAlreadyExists, http.StatusConflict, "user_exists"},
		{domain.ErrUsernameTaken, http.StatusConflict, "username_taken"},
		{domain.ErrEmailTaken, http.StatusConflict, "email_in_use"},
		{domain.ErrInvalidCredentials, http.StatusBadRequest, "invalid_credentials"},
		{domain.ErrAccountLocked, http.StatusBadRequest, "account_locked"},
		{domain.ErrInvalidCode, http.StatusBadRequest, "invalid_code"},
		{domain.ErrCodeExpired, http.StatusBadRequest, "code_expired"},
		{domain.ErrPasswordTooShort, http.StatusBadRequest, "password_too_short"},
		{domain.ErrCredentialsOutOfRange, http.StatusBadRequest, "credentials_out_of_range"},
		{domain.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			w := httptest.NewRecorder()
			known := DomainError(w, tt.err)

			assert.True(t, known)
			assert.Equal(t, tt.status, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.reason, body["error"])
		})
	}
}

func TestDomainErrorUnexpected(t *testing.T) {
	w := httptest.NewRecorder()
	known := DomainError(w, errors.New("disk on fire"))

	assert.False(t, known)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// Internal detail must not leak to the client.
	assert.NotContains(t, w.Body.String(), "disk on fire")
	assert.Contains(t, w.Body.String(), "internal_error")
}

func TestWrappedErrorsStillMap(t *testing.T) {
	w := httptest.NewRecorder()
	wrapped := errors.Join(errors.New("context"), domain.ErrAccountLocked)

	assert.True(t, DomainError(w, wrapped))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
