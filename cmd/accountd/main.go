package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clockset/accountd/internal/config"
	httpserver "github.com/clockset/accountd/internal/http"
	"github.com/clockset/accountd/internal/httputil"
	"github.com/clockset/accountd/internal/notification"
	"github.com/clockset/accountd/pkg/auth"
	"github.com/clockset/accountd/pkg/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	usersRepo := repository.NewUsersRepository(db)
	authCodesRepo := repository.NewAuthCodesRepository(db)

	credentialService := auth.NewCredentialService(usersRepo)
	codeService := auth.NewCodeService(authCodesRepo, usersRepo)
	accountService := auth.NewAccountService(logger, usersRepo, credentialService)

	tokenService, err := auth.NewTokenService(auth.TokenConfig{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		Secret:          []byte(cfg.JWTSecret),
		Issuer:          cfg.JWTIssuer,
	})
	if err != nil {
		logger.Error("failed to create token service", "error", err)
		os.Exit(1)
	}

	if !cfg.HasSMTP() && cfg.Production {
		logger.Error("SMTP configuration is required in production")
		os.Exit(1)
	}
	mailer := notification.NewEmailService(notification.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})

	loginService := auth.NewLoginService(auth.LoginConfig{
		BypassTwoFactor: cfg.BypassTwoFactor(),
		AppBaseURL:      cfg.AppBaseURL,
	}, logger, db, usersRepo, credentialService, codeService, tokenService, mailer)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:         logger,
		LoginService:   loginService,
		TokenService:   tokenService,
		AccountService: accountService,
		UsersRepo:      usersRepo,
		CookieConfig:   httputil.NewCookieConfig(cfg.Production, cfg.CookieDomain),
	})

	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", addr, "production", cfg.Production)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
