package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clockset/accountd/pkg/domain"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Token type claim values.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenConfig holds session token configuration.
type TokenConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Secret          []byte
	Issuer          string
}

// TokenService mints and refreshes access/refresh session tokens bound to
// a user identity. Tokens are opaque signed artifacts to the rest of the
// system; only the transport boundary validates them.
type TokenService struct {
	config TokenConfig
}

// NewTokenService creates a token service. The refresh window must exceed
// the access window.
func NewTokenService(config TokenConfig) (*TokenService, error) {
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if config.RefreshTokenTTL == 0 {
		config.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if config.RefreshTokenTTL <= config.AccessTokenTTL {
		return nil, errors.New("refresh token TTL must exceed access token TTL")
	}
	if len(config.Secret) == 0 {
		return nil, errors.New("token signing secret is required")
	}
	return &TokenService{config: config}, nil
}

// AccessTokenTTL returns the access token TTL.
func (s *TokenService) AccessTokenTTL() time.Duration {
	return s.config.AccessTokenTTL
}

// RefreshTokenTTL returns the refresh token TTL.
func (s *TokenService) RefreshTokenTTL() time.Duration {
	return s.config.RefreshTokenTTL
}

// SessionClaims are the claims carried by both session tokens.
type SessionClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"typ"`
}

// IssueSession mints a new access/refresh token pair for the user.
func (s *TokenService) IssueSession(userID string) (*domain.TokenPair, error) {
	now := time.Now()

	access, accessExpiry, err := s.sign(userID, tokenTypeAccess, now, s.config.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.sign(userID, tokenTypeRefresh, now, s.config.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExpiry,
	}, nil
}

// RefreshAccess mints a new access token without re-authentication. The
// caller is responsible for having verified a valid refresh token first.
func (s *TokenService) RefreshAccess(userID string) (string, error) {
	access, _, err := s.sign(userID, tokenTypeAccess, time.Now(), s.config.AccessTokenTTL)
	return access, err
}

func (s *TokenService) sign(userID, tokenType string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiry := now.Add(ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		TokenType: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiry, nil
}

// ValidateAccess validates an access token and returns its subject.
func (s *TokenService) ValidateAccess(tokenString string) (string, error) {
	return s.validate(tokenString, tokenTypeAccess)
}

// ValidateRefresh validates a refresh token and returns its subject.
func (s *TokenService) ValidateRefresh(tokenString string) (string, error) {
	return s.validate(tokenString, tokenTypeRefresh)
}

func (s *TokenService) validate(tokenString, wantType string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.Secret, nil
	})
	if err != nil {
		return "", domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.TokenType != wantType {
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}
