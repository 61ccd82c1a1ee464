package auth

import "errors"

// Authentication errors.
var (
	ErrInvalidCredentials = errors.New("invalid login name or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrPrincipalRevoked   = errors.New("token holder no longer exists")
)
