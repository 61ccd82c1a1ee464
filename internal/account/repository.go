// Package account implements front-of-house account registration, credential
// lookup and registration statistics.
package account

import (
	"context"
	"time"

	"github.com/bissquit/hotel-admin/internal/domain"
)

// Repository defines the persistence operations for accounts.
type Repository interface {
	// GetAccountByLoginName returns the account with its roles, or ErrAccountNotFound.
	GetAccountByLoginName(ctx context.Context, loginName string) (*domain.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*domain.Account, error)
	// CreateAccount inserts the account and its association with roleID atomically.
	// Returns ErrLoginNameExists when the unique constraint rejects the name.
	CreateAccount(ctx context.Context, account *domain.Account, roleID int64) error
	CountAccounts(ctx context.Context, filter CountFilter) (int, error)
	ListAccounts(ctx context.Context, filter ListFilter) ([]domain.Account, int, error)
	UpdateAccountStatus(ctx context.Context, id int64, status domain.Status) error
	// UpdateAccount writes the editable profile fields and status.
	// Returns ErrLoginNameExists when the new name is taken.
	UpdateAccount(ctx context.Context, account *domain.Account) error
	// DeleteAccount removes the account; its role associations cascade.
	DeleteAccount(ctx context.Context, id int64) error
}

// CountFilter restricts CountAccounts to a registration time range. Nil bounds are open.
type CountFilter struct {
	RegisteredFrom *time.Time
	RegisteredTo   *time.Time
}

// ListFilter represents filter criteria for listing accounts.
type ListFilter struct {
	LoginName string
	Status    *domain.Status
	Limit     int
	Offset    int
}
