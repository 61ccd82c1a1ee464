// Package auth authenticates accounts and staff users and issues access tokens.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/hotel-admin/internal/account"
	"github.com/bissquit/hotel-admin/internal/admin"
	"github.com/bissquit/hotel-admin/internal/auth/jwt"
	"github.com/bissquit/hotel-admin/internal/domain"
	"github.com/bissquit/hotel-admin/internal/pkg/ctxlog"
	"github.com/bissquit/hotel-admin/internal/pkg/metrics"
	"github.com/bissquit/hotel-admin/internal/pkg/password"
)

// PrincipalLoader loads the credentials of one kind of principal.
type PrincipalLoader interface {
	LoadCredentials(ctx context.Context, loginName string) (*domain.Principal, error)
}

// Comparer checks a plaintext password against a stored hash.
type Comparer interface {
	Compare(hash, plain string) error
}

// TokenIssuer issues access tokens.
type TokenIssuer interface {
	GenerateToken(principal *domain.Principal) (*jwt.Token, error)
}

// Service performs logins.
type Service struct {
	comparer Comparer
	issuer   TokenIssuer
}

// NewService creates a new auth service.
func NewService(comparer Comparer, issuer TokenIssuer) *Service {
	return &Service{
		comparer: comparer,
		issuer:   issuer,
	}
}

// LoginInput contains login credentials.
type LoginInput struct {
	LoginName string
	Password  string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	LoginName   string               `json:"login_name"`
	Kind        domain.PrincipalKind `json:"kind"`
	Authorities []string             `json:"authorities"`
	*jwt.Token
}

// Login verifies credentials with loader and issues a token.
func (s *Service) Login(ctx context.Context, loader PrincipalLoader, input LoginInput) (*LoginResult, error) {
	loginName := domain.NormalizeLoginName(input.LoginName)

	principal, err := loader.LoadCredentials(ctx, loginName)
	if err != nil {
		if isUnknownPrincipal(err) {
			metrics.Logins.WithLabelValues("unknown", "invalid").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	kind := string(principal.Kind)

	if err := s.comparer.Compare(principal.PasswordHash, input.Password); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			metrics.Logins.WithLabelValues(kind, "invalid").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !principal.Enabled {
		metrics.Logins.WithLabelValues(kind, "disabled").Inc()
		return nil, ErrAccountDisabled
	}

	token, err := s.issuer.GenerateToken(principal)
	if err != nil {
		return nil, err
	}

	metrics.Logins.WithLabelValues(kind, "success").Inc()
	ctxlog.FromContext(ctx).Info("login succeeded", "login_name", principal.LoginName, "kind", kind)

	authorities := principal.Authorities
	if authorities == nil {
		authorities = make([]string, 0)
	}
	return &LoginResult{
		LoginName:   principal.LoginName,
		Kind:        principal.Kind,
		Authorities: authorities,
		Token:       token,
	}, nil
}

// Reload fetches the stored principal behind an authenticated one. It fails
// with ErrPrincipalRevoked when the holder was deleted and ErrAccountDisabled
// when it was disabled.
func (s *Service) Reload(ctx context.Context, loader PrincipalLoader, principal *domain.Principal) (*domain.Principal, error) {
	current, err := loader.LoadCredentials(ctx, principal.LoginName)
	if err != nil {
		if isUnknownPrincipal(err) {
			return nil, ErrPrincipalRevoked
		}
		return nil, fmt.Errorf("reload principal: %w", err)
	}
	if !current.Enabled {
		return nil, ErrAccountDisabled
	}
	return current, nil
}

func isUnknownPrincipal(err error) bool {
	return errors.Is(err, account.ErrAccountNotFound) || errors.Is(err, admin.ErrUserNotFound)
}
