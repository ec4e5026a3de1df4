package reset

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clockset/accountd/internal/httputil"
	"github.com/clockset/accountd/pkg/auth"
)

// Handler handles the password-reset flow.
type Handler struct {
	logger       *slog.Logger
	loginService *auth.LoginService
}

// NewHandler creates a new reset handler.
func NewHandler(logger *slog.Logger, loginService *auth.LoginService) *Handler {
	return &Handler{logger: logger, loginService: loginService}
}

// SendRequest is the body of a reset-email request.
type SendRequest struct {
	Email string `json:"email"`
}

// Send dispatches a reset link to a known email address.
// POST /reset_password/send
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid_request_body")
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "missing_email")
		return
	}

	if err := h.loginService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if !httputil.DomainError(w, err) {
			h.logger.Error("reset request failed", "error", err)
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// PerformRequest is the body of a reset completion.
type PerformRequest struct {
	Password string `json:"password"`
}

// Perform redeems a reset code and sets the new password.
// POST /reset_password/{code}
func (h *Handler) Perform(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req PerformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid_request_body")
		return
	}
	if req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "missing_password")
		return
	}

	if err := h.loginService.ResetPassword(r.Context(), code, req.Password); err != nil {
		if !httputil.DomainError(w, err) {
			h.logger.Error("password reset failed", "error", err)
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
