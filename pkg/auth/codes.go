package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clockset/accountd/pkg/domain"
	"github.com/clockset/accountd/pkg/repository"
)

// Length of the opaque code identifier handed to the user.
const codeLength = 8

// CodeService issues, looks up, expires, and invalidates single-use codes
// keyed by an opaque identifier and scoped to an email address. The same
// registry serves the 2FA and password-reset flows.
type CodeService struct {
	codes *repository.AuthCodesRepository
	users *repository.UsersRepository
}

// NewCodeService creates a new code service.
func NewCodeService(codes *repository.AuthCodesRepository, users *repository.UsersRepository) *CodeService {
	return &CodeService{codes: codes, users: users}
}

// IssueTx supersedes every outstanding code for the email and stores a
// fresh one, scoped to the caller's transaction so the new code rolls back
// together with the caller's own failures (e.g. email dispatch).
func (s *CodeService) IssueTx(ctx context.Context, tx *sql.Tx, email string) (string, error) {
	if err := s.codes.DeleteByEmailTx(ctx, tx, email); err != nil {
		return "", fmt.Errorf("failed to delete stale auth codes: %w", err)
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return "", err
	}

	ac := &domain.AuthCode{
		Code:      code,
		Email:     email,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.codes.CreateTx(ctx, tx, ac); err != nil {
		return "", fmt.Errorf("failed to store auth code: %w", err)
	}
	return code, nil
}

// uniqueCode generates a random opaque identifier, retrying until it does
// not collide with an existing code.
func (s *CodeService) uniqueCode(ctx context.Context) (string, error) {
	for {
		code := uuid.New().String()[:codeLength]
		exists, err := s.codes.ExistsByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
}

// Lookup retrieves a code by its identifier.
func (s *CodeService) Lookup(ctx context.Context, code string) (*domain.AuthCode, error) {
	return s.codes.GetByCode(ctx, code)
}

// IsExpired reports whether the code has outlived its 5-minute window.
func (s *CodeService) IsExpired(code *domain.AuthCode) bool {
	return code.ExpiredAt(time.Now().UTC())
}

// Redeem consumes a code. The caller must have checked existence and
// expiry; after redemption the code never again passes Lookup.
func (s *CodeService) Redeem(ctx context.Context, code string) error {
	return s.codes.Delete(ctx, code)
}

// RedeemTx is Redeem scoped to a transaction.
func (s *CodeService) RedeemTx(ctx context.Context, tx *sql.Tx, code string) error {
	return s.codes.DeleteTx(ctx, tx, code)
}

// ResolveUser finds the account the code belongs to by matching its email
// case-insensitively. A missing account surfaces as ErrUserNotFound,
// distinct from an invalid or expired code.
func (s *CodeService) ResolveUser(ctx context.Context, code *domain.AuthCode) (*domain.User, error) {
	return s.users.GetByEmail(ctx, code.Email)
}
