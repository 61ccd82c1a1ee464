package account

import "errors"

// Account errors.
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrLoginNameExists  = errors.New("login name already exists")
	ErrInvalidLoginName = errors.New("login name must be 3 to 64 characters")
	ErrInvalidStatus    = errors.New("status must be 0 or 1")
	ErrIDMismatch       = errors.New("id in body does not match id in path")
)
