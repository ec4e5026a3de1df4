package domain

import "time"

// User represents the account.
type User struct {
	ID            string
	Username      string
	PasswordHash  string
	LoginAttempts int
	Locked        bool
	Status        string
	FirstName     *string
	LastName      *string
	Email         *string
	StartDate     *string
	CreatedAt     time.Time
	LastLogin     *time.Time
}

// HasEmail returns true if the account has a non-empty email on file.
func (u *User) HasEmail() bool {
	return u.Email != nil && *u.Email != ""
}

// DefaultStatus is assigned to newly created accounts.
const DefaultStatus = "Active"

// MaxLoginAttempts is the failed-verification count at which the account locks.
// The lock must be cleared explicitly; clearing it also resets the counter.
const MaxLoginAttempts = 5

// TokenPair represents the access and refresh token pair for a session.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}
