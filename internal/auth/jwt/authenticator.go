// Package jwt issues and validates signed access tokens.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/hotel-admin/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, forged or expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// Config contains token settings.
type Config struct {
	SecretKey     string
	Issuer        string
	TokenDuration time.Duration
}

// Token is a signed access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type claims struct {
	Kind        domain.PrincipalKind `json:"kind"`
	Authorities []string             `json:"authorities"`
	jwt.RegisteredClaims
}

// Authenticator signs tokens with HS256.
type Authenticator struct {
	config Config
	secret []byte
	now    func() time.Time
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(config Config) *Authenticator {
	return &Authenticator{
		config: config,
		secret: []byte(config.SecretKey),
		now:    time.Now,
	}
}

// GenerateToken issues a token for principal.
func (a *Authenticator) GenerateToken(principal *domain.Principal) (*Token, error) {
	now := a.now()
	expiresAt := now.Add(a.config.TokenDuration)

	c := claims{
		Kind:        principal.Kind,
		Authorities: principal.Authorities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.LoginName,
			Issuer:    a.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// ValidateToken parses token and returns the principal it was issued for.
// The returned principal carries no password hash.
func (a *Authenticator) ValidateToken(_ context.Context, token string) (*domain.Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if c.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &domain.Principal{
		Kind:        c.Kind,
		LoginName:   c.Subject,
		Enabled:     true,
		Authorities: c.Authorities,
	}, nil
}
