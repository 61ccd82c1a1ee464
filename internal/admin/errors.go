package admin

import (
	"errors"
	"fmt"
)

// User management errors.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrRoleNotFound     = errors.New("role not found")
	ErrLoginNameExists  = errors.New("login name already exists")
	ErrInvalidLoginName = errors.New("login name must be 3 to 64 characters")
	ErrInvalidStatus    = errors.New("status must be 0 or 1")
	ErrIDMismatch       = errors.New("id in body does not match id in path")
	ErrInvalidID        = errors.New("id must be a positive integer")
	ErrInvalidIDList    = errors.New("ids must be a comma-separated list of positive integers")
)

// MissingUsersError reports the ids a batch operation could not find.
// It matches ErrUserNotFound with errors.Is.
type MissingUsersError struct {
	IDs []int64
}

func (e *MissingUsersError) Error() string {
	return fmt.Sprintf("users not found: %v", e.IDs)
}

func (e *MissingUsersError) Unwrap() error {
	return ErrUserNotFound
}
