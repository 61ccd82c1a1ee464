// Package admin implements staff user management for the admin surface.
package admin

import (
	"context"

	"github.com/bissquit/hotel-admin/internal/domain"
)

// Repository defines the persistence operations for staff users and roles.
type Repository interface {
	ListUsers(ctx context.Context, filter ListFilter) ([]domain.User, int, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByLoginName(ctx context.Context, loginName string) (*domain.User, error)
	// CreateUser inserts the user together with the given role associations.
	CreateUser(ctx context.Context, user *domain.User, roleIDs []int64) error
	UpdateUser(ctx context.Context, user *domain.User) error
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	// DeleteUser removes the user and its role associations.
	DeleteUser(ctx context.Context, id int64) error
	// DeleteUsers removes all ids or none of them. Missing ids are reported
	// with *MissingUsersError.
	DeleteUsers(ctx context.Context, ids []int64) error
	// SetUserRoles replaces the role associations of a user.
	SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) error
	GetUserRoles(ctx context.Context, userID int64) ([]domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
}

// ListFilter represents filter criteria for listing users.
type ListFilter struct {
	LoginName string
	Status    *domain.Status
	Limit     int
	Offset    int
}
