package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clockset/accountd/internal/http/features/reset"
	"github.com/clockset/accountd/internal/http/features/session"
	"github.com/clockset/accountd/internal/http/features/users"
	"github.com/clockset/accountd/internal/http/middleware"
	"github.com/clockset/accountd/internal/httputil"
	"github.com/clockset/accountd/pkg/auth"
	"github.com/clockset/accountd/pkg/repository"
)

// Request bodies on this surface are small JSON documents.
const maxRequestBodySize = 1 << 20

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger         *slog.Logger
	LoginService   *auth.LoginService
	TokenService   *auth.TokenService
	AccountService *auth.AccountService
	UsersRepo      *repository.UsersRepository
	CookieConfig   httputil.CookieConfig
}

// NewRouter creates the HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.RequestSizeLimit(maxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	sessionHandler := session.NewHandler(cfg.Logger, cfg.LoginService, cfg.TokenService, cfg.CookieConfig)
	resetHandler := reset.NewHandler(cfg.Logger, cfg.LoginService)
	usersHandler := users.NewHandler(cfg.Logger, cfg.UsersRepo, cfg.AccountService)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(10, time.Minute, cfg.Logger))
		r.Post("/login", sessionHandler.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(30, time.Minute, cfg.Logger))
		r.Use(middleware.RequireRefresh(cfg.TokenService))
		r.Post("/refresh", sessionHandler.Refresh)
	})

	r.With(middleware.Auth(cfg.TokenService)).Delete("/logout", sessionHandler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(5, time.Minute, cfg.Logger))
		r.Post("/reset_password/send", resetHandler.Send)
		r.Post("/reset_password/{code}", resetHandler.Perform)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.TokenService))
		r.Get("/user", usersHandler.Me)
		r.Get("/users", usersHandler.List)
		r.Post("/users", usersHandler.Create)
		r.Get("/users/{id}", usersHandler.Get)
		r.Patch("/users/{id}", usersHandler.Update)
		r.Delete("/users/{id}", usersHandler.Delete)
	})

	return r
}
