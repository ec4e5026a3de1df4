package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clockset/accountd/pkg/domain"
	"github.com/clockset/accountd/pkg/repository"
)

// Credential length bounds enforced on the login form.
const (
	MinCredentialLength = 5
	MaxCredentialLength = 25
)

// Mailer dispatches outbound notification email. Dispatch is a blocking
// external call with no retry; its failure surfaces to the caller.
type Mailer interface {
	SendTwoFactorCode(to, username, code string) error
	SendPasswordReset(to, resetURL string) error
}

// LoginConfig holds authentication flow configuration.
type LoginConfig struct {
	// BypassTwoFactor skips the email second factor. Development only.
	BypassTwoFactor bool
	// AppBaseURL is the public base used in password-reset links.
	AppBaseURL string
}

// LoginService orchestrates login and password-reset, coordinating the
// credential store, the one-time code registry, and the token issuer.
type LoginService struct {
	config LoginConfig
	logger *slog.Logger
	db     *sql.DB
	users  *repository.UsersRepository
	creds  *CredentialService
	codes  *CodeService
	tokens *TokenService
	mailer Mailer
}

// NewLoginService creates a new login service.
func NewLoginService(
	config LoginConfig,
	logger *slog.Logger,
	db *sql.DB,
	users *repository.UsersRepository,
	creds *CredentialService,
	codes *CodeService,
	tokens *TokenService,
	mailer Mailer,
) *LoginService {
	return &LoginService{
		config: config,
		logger: logger,
		db:     db,
		users:  users,
		creds:  creds,
		codes:  codes,
		tokens: tokens,
		mailer: mailer,
	}
}

// LoginResult is the outcome of a successful credential check. When
// TwoFactorPending is set no tokens have been issued yet; the caller must
// come back with the emailed code.
type LoginResult struct {
	User             *domain.User
	Tokens           *domain.TokenPair
	TwoFactorPending bool
}

// Login verifies a username/password pair and either issues a session
// (bypass posture) or dispatches a one-time code to the account email.
func (s *LoginService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if !lengthInBounds(username) || !lengthInBounds(password) {
		return nil, domain.ErrCredentialsOutOfRange
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	// Lock wins over password correctness.
	if user.Locked {
		return nil, domain.ErrAccountLocked
	}

	ok, err := s.creds.Verify(ctx, user, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	if s.config.BypassTwoFactor {
		return s.completeLogin(user)
	}

	// Second factor is mandatory outside bypass posture; an account
	// without an email cannot satisfy it.
	if !user.HasEmail() {
		return nil, domain.ErrEmailRequired
	}

	err = repository.Tx(ctx, s.db, func(tx *sql.Tx) error {
		code, err := s.codes.IssueTx(ctx, tx, *user.Email)
		if err != nil {
			return err
		}
		if err := s.mailer.SendTwoFactorCode(*user.Email, user.Username, code); err != nil {
			return fmt.Errorf("failed to send 2FA email: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("2FA code dispatched", "user_id", user.ID)
	return &LoginResult{User: user, TwoFactorPending: true}, nil
}

// CompleteTwoFactor redeems an emailed one-time code and issues a session.
func (s *LoginService) CompleteTwoFactor(ctx context.Context, code string) (*LoginResult, error) {
	ac, err := s.codes.Lookup(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrInvalidCode
		}
		return nil, err
	}

	if s.codes.IsExpired(ac) {
		// An expired code can never be redeemed; drop it now rather
		// than waiting for the next issuance to supersede it.
		if err := s.codes.Redeem(ctx, ac.Code); err != nil {
			s.logger.Warn("failed to delete expired auth code", "error", err)
		}
		return nil, domain.ErrCodeExpired
	}

	user, err := s.codes.ResolveUser(ctx, ac)
	if err != nil {
		return nil, err
	}

	if err := s.codes.Redeem(ctx, ac.Code); err != nil {
		return nil, fmt.Errorf("failed to redeem auth code: %w", err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	return s.completeLogin(user)
}

// RequestPasswordReset issues a reset code for the account matching the
// email and dispatches the reset link. The code insert and the dispatch
// share one transaction so a failed send leaves no orphaned code behind.
func (s *LoginService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	err = repository.Tx(ctx, s.db, func(tx *sql.Tx) error {
		code, err := s.codes.IssueTx(ctx, tx, *user.Email)
		if err != nil {
			return err
		}
		resetURL := fmt.Sprintf("%s/reset_password/%s", s.config.AppBaseURL, code)
		if err := s.mailer.SendPasswordReset(*user.Email, resetURL); err != nil {
			return fmt.Errorf("failed to send reset email: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("password reset email sent", "user_id", user.ID)
	return nil
}

// ResetPassword redeems a reset code and replaces the account password.
// Knowledge of the old password is not required and Verify is not called.
func (s *LoginService) ResetPassword(ctx context.Context, code, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return domain.ErrPasswordTooShort
	}

	ac, err := s.codes.Lookup(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) {
			return domain.ErrInvalidCode
		}
		return err
	}

	if s.codes.IsExpired(ac) {
		return domain.ErrCodeExpired
	}

	user, err := s.codes.ResolveUser(ctx, ac)
	if err != nil {
		return err
	}

	return repository.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.creds.SetPasswordTx(ctx, tx, user.ID, newPassword); err != nil {
			return err
		}
		return s.codes.RedeemTx(ctx, tx, ac.Code)
	})
}

// RefreshAccess mints a new access token for an identity whose refresh
// token was already validated at the transport boundary.
func (s *LoginService) RefreshAccess(ctx context.Context, userID string) (*domain.User, string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	access, err := s.tokens.RefreshAccess(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, access, nil
}

func (s *LoginService) completeLogin(user *domain.User) (*LoginResult, error) {
	tokens, err := s.tokens.IssueSession(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return &LoginResult{User: user, Tokens: tokens}, nil
}

func lengthInBounds(s string) bool {
	return len(s) >= MinCredentialLength && len(s) <= MaxCredentialLength
}
