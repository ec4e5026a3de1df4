package auth

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/clockset/accountd/pkg/domain"
	"github.com/clockset/accountd/pkg/repository"
)

// MinPasswordLength is the minimum accepted plaintext password length.
const MinPasswordLength = 5

// MinUsernameLength is the minimum accepted username length.
const MinUsernameLength = 5

// CredentialService owns password hashing, verification, and the
// login-attempt/lockout counter for a user identity.
type CredentialService struct {
	users *repository.UsersRepository
}

// NewCredentialService creates a new credential service.
func NewCredentialService(users *repository.UsersRepository) *CredentialService {
	return &CredentialService{users: users}
}

// HashPassword hashes a plaintext password with bcrypt and encodes the raw
// hash bytes as base64 for storage. The encoding is reversible: Verify
// decodes back to the hash bytes before comparison.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return base64.StdEncoding.EncodeToString(hash), nil
}

// VerifyPassword compares a plaintext password against a stored encoded
// hash. A hash that fails to decode counts as a mismatch, not an error.
func VerifyPassword(password, encodedHash string) bool {
	hash, err := base64.StdEncoding.DecodeString(encodedHash)
	if err != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// SetPassword validates, hashes, and stores a new password for the user.
func (s *CredentialService) SetPassword(ctx context.Context, userID, password string) error {
	if len(password) < MinPasswordLength {
		return domain.ErrPasswordTooShort
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(ctx, userID, hash)
}

// SetPasswordTx is SetPassword scoped to a transaction.
func (s *CredentialService) SetPasswordTx(ctx context.Context, tx *sql.Tx, userID, password string) error {
	if len(password) < MinPasswordLength {
		return domain.ErrPasswordTooShort
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHashTx(ctx, tx, userID, hash)
}

// Verify checks a plaintext password against the user's stored hash and
// persists the updated attempt counter and lock state regardless of the
// outcome. On a mismatch the counter increments and the account locks once
// the resulting count reaches domain.MaxLoginAttempts; on a match the
// counter resets to zero. The lock flag is never cleared here.
func (s *CredentialService) Verify(ctx context.Context, user *domain.User, password string) (bool, error) {
	ok := VerifyPassword(password, user.PasswordHash)

	if ok {
		user.LoginAttempts = 0
	} else {
		user.LoginAttempts++
		if user.LoginAttempts >= domain.MaxLoginAttempts {
			user.Locked = true
		}
	}

	if err := s.users.SetLoginState(ctx, user.ID, user.LoginAttempts, user.Locked); err != nil {
		return false, fmt.Errorf("failed to persist login state: %w", err)
	}
	return ok, nil
}

// CheckUsername validates a username for length and uniqueness. The
// excluded ID lets an existing record keep its own username.
func (s *CredentialService) CheckUsername(ctx context.Context, username, excludeID string) error {
	if len(username) < MinUsernameLength {
		return domain.ErrUsernameTooShort
	}
	taken, err := s.users.UsernameInUse(ctx, username, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrUsernameTaken
	}
	return nil
}

// CheckEmail validates email uniqueness. An empty email is always allowed.
func (s *CredentialService) CheckEmail(ctx context.Context, email, excludeID string) error {
	if email == "" {
		return nil
	}
	taken, err := s.users.EmailInUse(ctx, email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrEmailTaken
	}
	return nil
}
