package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clockset/accountd/pkg/domain"
)

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error response with a short machine-readable reason.
func Error(w http.ResponseWriter, status int, reason string) {
	JSON(w, status, map[string]string{"error": reason})
}

// statusOf maps a domain sentinel error to its HTTP status and reason.
// Anything outside the taxonomy is an internal failure.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, "code_not_found"
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return http.StatusConflict, "user_exists"
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, "username_taken"
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, "email_in_use"
	case errors.Is(err, domain.ErrPasswordTooShort):
		return http.StatusBadRequest, "password_too_short"
	case errors.Is(err, domain.ErrUsernameTooShort):
		return http.StatusBadRequest, "username_too_short"
	case errors.Is(err, domain.ErrCredentialsOutOfRange):
		return http.StatusBadRequest, "credentials_out_of_range"
	case errors.Is(err, domain.ErrMissingRequiredFields):
		return http.StatusBadRequest, "missing_required_fields"
	case errors.Is(err, domain.ErrUserIDNotNumeric):
		return http.StatusBadRequest, "user_id_not_numeric"
	case errors.Is(err, domain.ErrEmailRequired):
		return http.StatusBadRequest, "email_required"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusBadRequest, "invalid_credentials"
	case errors.Is(err, domain.ErrAccountLocked):
		return http.StatusBadRequest, "account_locked"
	case errors.Is(err, domain.ErrInvalidCode):
		return http.StatusBadRequest, "invalid_code"
	case errors.Is(err, domain.ErrCodeExpired):
		return http.StatusBadRequest, "code_expired"
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// DomainError maps a domain error to an HTTP error response. It returns
// true when the error was part of the taxonomy, so callers can log only
// the unexpected ones.
func DomainError(w http.ResponseWriter, err error) bool {
	status, reason := statusOf(err)
	Error(w, status, reason)
	return status != http.StatusInternalServerError
}
