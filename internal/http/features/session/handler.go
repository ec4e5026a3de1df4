package session

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/clockset/accountd/internal/http/middleware"
	"github.com/clockset/accountd/internal/httputil"
	"github.com/clockset/accountd/pkg/auth"
	"github.com/clockset/accountd/pkg/domain"
)

// Handler handles login, token refresh, and logout.
type Handler struct {
	logger       *slog.Logger
	loginService *auth.LoginService
	tokenService *auth.TokenService
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, loginService *auth.LoginService, tokenService *auth.TokenService, cookieConfig httputil.CookieConfig) *Handler {
	return &Handler{
		logger:       logger,
		loginService: loginService,
		tokenService: tokenService,
		cookieConfig: cookieConfig,
	}
}

// LoginRequest carries either a credential pair or a 2FA code, never both.
type LoginRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"2fa_code"`
}

// UserSummary is the minimal identity payload returned on login.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Login handles both steps of authentication.
// POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	if req.TwoFactorCode != "" {
		h.completeTwoFactor(w, r, req.TwoFactorCode)
		return
	}

	if req.Username == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	result, err := h.loginService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if !httputil.DomainError(w, err) {
			h.logger.Error("login failed", "error", err)
		}
		return
	}

	if result.TwoFactorPending {
		httputil.JSON(w, http.StatusOK, map[string]string{"success": "2FA"})
		return
	}

	h.writeSession(w, result.User, result.Tokens)
}

func (h *Handler) completeTwoFactor(w http.ResponseWriter, r *http.Request, code string) {
	result, err := h.loginService.CompleteTwoFactor(r.Context(), code)
	if err != nil {
		if !httputil.DomainError(w, err) {
			h.logger.Error("2FA validation failed", "error", err)
		}
		return
	}
	h.writeSession(w, result.User, result.Tokens)
}

func (h *Handler) writeSession(w http.ResponseWriter, user *domain.User, tokens *domain.TokenPair) {
	httputil.SetAccessCookie(w, tokens.AccessToken, h.tokenService.AccessTokenTTL(), h.cookieConfig)
	httputil.SetRefreshCookie(w, tokens.RefreshToken, h.tokenService.RefreshTokenTTL(), h.cookieConfig)
	httputil.JSON(w, http.StatusOK, UserSummary{ID: user.ID, Username: user.Username})
}

// Refresh mints a new access token. The refresh token was validated by the
// RequireRefresh middleware; this handler only trusts the resolved subject.
// POST /refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "missing_authorization")
		return
	}

	user, access, err := h.loginService.RefreshAccess(r.Context(), userID)
	if err != nil {
		if !httputil.DomainError(w, err) {
			h.logger.Error("refresh failed", "error", err, "user_id", userID)
		}
		return
	}

	httputil.SetAccessCookie(w, access, h.tokenService.AccessTokenTTL(), h.cookieConfig)
	httputil.JSON(w, http.StatusOK, UserSummary{ID: user.ID, Username: user.Username})
}

// Logout clears the session cookies. Stateless: outstanding refresh
// tokens are not revoked server-side.
// DELETE /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	httputil.ClearAuthCookies(w, h.cookieConfig)
	w.WriteHeader(http.StatusNoContent)
}
