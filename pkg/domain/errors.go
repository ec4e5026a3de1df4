package domain

import "errors"

// Validation errors
var (
	ErrPasswordTooShort       = errors.New("password must be at least 5 characters long")
	ErrUsernameTooShort       = errors.New("username must be at least 5 characters long")
	ErrCredentialsOutOfRange  = errors.New("username and password must be between 5 and 25 characters")
	ErrMissingRequiredFields  = errors.New("missing required fields")
	ErrUserIDNotNumeric       = errors.New("user id must only contain numbers")
	ErrEmailRequired          = errors.New("account has no email associated with it")
)

// Not-found errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrCodeNotFound = errors.New("auth code not found")
)

// Conflict errors
var (
	ErrUserAlreadyExists = errors.New("a user with that id already exists")
	ErrUsernameTaken     = errors.New("username is taken")
	ErrEmailTaken        = errors.New("email address is already in use")
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid password")
	ErrAccountLocked      = errors.New("account is locked")
	ErrInvalidCode        = errors.New("invalid auth code")
	ErrCodeExpired        = errors.New("auth code has expired")
	ErrInvalidToken       = errors.New("invalid token")
)
