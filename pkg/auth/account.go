package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clockset/accountd/pkg/domain"
	"github.com/clockset/accountd/pkg/repository"
)

// AccountService owns user record lifecycle: creation, allow-listed field
// updates, and deletion.
type AccountService struct {
	logger *slog.Logger
	users  *repository.UsersRepository
	creds  *CredentialService
}

// NewAccountService creates a new account service.
func NewAccountService(logger *slog.Logger, users *repository.UsersRepository, creds *CredentialService) *AccountService {
	return &AccountService{logger: logger, users: users, creds: creds}
}

// CreateUserParams holds the fields accepted when creating a user.
// Password is optional; an 8-character random secret is generated when it
// is empty.
type CreateUserParams struct {
	ID        string
	Username  string
	Password  string
	Email     *string
	FirstName *string
	LastName  *string
	StartDate *string
	Status    *string
}

// CreateUser validates and stores a new user record.
func (s *AccountService) CreateUser(ctx context.Context, params CreateUserParams) (*domain.User, error) {
	if params.ID == "" || params.Username == "" {
		return nil, domain.ErrMissingRequiredFields
	}
	if !isNumeric(params.ID) {
		return nil, domain.ErrUserIDNotNumeric
	}

	exists, err := s.users.ExistsByID(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	if err := s.creds.CheckUsername(ctx, params.Username, params.ID); err != nil {
		return nil, err
	}
	// Empty email means no email on file; stored as NULL so the unique
	// index never sees it.
	email := normalizeEmail(params.Email)
	if email != nil {
		if err := s.creds.CheckEmail(ctx, *email, params.ID); err != nil {
			return nil, err
		}
	}

	password := params.Password
	if password == "" {
		password = uuid.New().String()[:8]
	}
	if len(password) < MinPasswordLength {
		return nil, domain.ErrPasswordTooShort
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	status := domain.DefaultStatus
	if params.Status != nil && *params.Status != "" {
		status = *params.Status
	}

	user := &domain.User{
		ID:           params.ID,
		Username:     params.Username,
		PasswordHash: hash,
		Status:       status,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Email:        email,
		StartDate:    params.StartDate,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", user.ID)
	return user, nil
}

// UpdateUserParams names the fields a PATCH may change. Each field is
// independently optional and validated on its own.
type UpdateUserParams struct {
	Username  *string
	Email     *string
	Status    *string
	StartDate *string
	FirstName *string
	LastName  *string
	Locked    *bool
	Password  *string
}

// UpdateUser applies an allow-listed field update to an existing user.
// Setting Locked to false also clears the attempt counter. A new password
// goes through the same length rule as any other password change.
func (s *AccountService) UpdateUser(ctx context.Context, id string, params UpdateUserParams) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return err
	}

	if params.Username != nil {
		if err := s.creds.CheckUsername(ctx, *params.Username, id); err != nil {
			return err
		}
	}
	if params.Email != nil {
		if err := s.creds.CheckEmail(ctx, *params.Email, id); err != nil {
			return err
		}
	}

	upd := repository.UserUpdate{
		Username:  params.Username,
		Email:     params.Email,
		Status:    params.Status,
		StartDate: params.StartDate,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Locked:    params.Locked,
	}
	if err := s.users.Update(ctx, id, upd); err != nil {
		return err
	}

	if params.Password != nil {
		if err := s.creds.SetPassword(ctx, id, *params.Password); err != nil {
			return err
		}
	}
	return nil
}

// DeleteUser permanently removes a user record.
func (s *AccountService) DeleteUser(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

// normalizeEmail maps an empty string to nil. The repository stores nil as
// NULL, keeping cleared emails out of the case-insensitive unique index.
func normalizeEmail(email *string) *string {
	if email != nil && *email == "" {
		return nil
	}
	return email
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
