package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bissquit/hotel-admin/internal/domain"
	"github.com/bissquit/hotel-admin/internal/pkg/ctxlog"
	"github.com/bissquit/hotel-admin/internal/pkg/password"
)

// DefaultGeneratedPasswordLength is used when Config leaves it unset.
const DefaultGeneratedPasswordLength = 12

// Hasher hashes plaintext passwords one way.
type Hasher interface {
	Hash(plain string) (string, error)
}

// Config holds the user management settings.
type Config struct {
	// ResetPassword, when set, is the fixed password every reset assigns.
	// When empty a random password of GeneratedPasswordLength is generated.
	ResetPassword           string
	GeneratedPasswordLength int
}

// Service provides staff user management.
type Service struct {
	repo     Repository
	hasher   Hasher
	config   Config
	generate func(n int) (string, error)
}

// NewService creates a new user management service.
func NewService(repo Repository, hasher Hasher, config Config) *Service {
	if config.GeneratedPasswordLength <= 0 {
		config.GeneratedPasswordLength = DefaultGeneratedPasswordLength
	}
	return &Service{
		repo:     repo,
		hasher:   hasher,
		config:   config,
		generate: password.Generate,
	}
}

// Page is one page of users.
type Page struct {
	Items []domain.User `json:"items"`
	Total int           `json:"total"`
}

// ListUsers returns users matching filter.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter) (*Page, error) {
	filter.LoginName = domain.NormalizeLoginName(filter.LoginName)

	items, total, err := s.repo.ListUsers(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total}, nil
}

// CreateUserInput contains data for a new staff user.
type CreateUserInput struct {
	LoginName string
	Password  string
	RealName  string
	Phone     string
	Email     string
	Status    *domain.Status
}

// AddUser creates a staff user with no roles. Status defaults to enabled.
func (s *Service) AddUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	status := domain.StatusEnabled
	if input.Status != nil {
		status = *input.Status
	}

	user := &domain.User{
		LoginName: domain.NormalizeLoginName(input.LoginName),
		RealName:  strings.TrimSpace(input.RealName),
		Phone:     input.Phone,
		Email:     input.Email,
		Status:    status,
	}
	if err := s.create(ctx, user, input.Password, nil); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("user created", "user_id", user.ID, "login_name", user.LoginName)
	return user, nil
}

func (s *Service) create(ctx context.Context, user *domain.User, plain string, roleIDs []int64) error {
	if !domain.ValidLoginName(user.LoginName) {
		return ErrInvalidLoginName
	}
	if !user.Status.Valid() {
		return ErrInvalidStatus
	}
	if err := s.ensureLoginNameFree(ctx, user.LoginName, 0); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return err
	}
	user.Password = hash

	return s.repo.CreateUser(ctx, user, roleIDs)
}

// ensureLoginNameFree fails with ErrLoginNameExists when a user other than
// exceptID holds loginName.
func (s *Service) ensureLoginNameFree(ctx context.Context, loginName string, exceptID int64) error {
	existing, err := s.repo.GetUserByLoginName(ctx, loginName)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check login name: %w", err)
	case existing.ID != exceptID:
		return ErrLoginNameExists
	default:
		return nil
	}
}

// UpdateUserInput contains the editable fields of a staff user.
// ID is optional; when non-zero it must equal the id being modified.
type UpdateUserInput struct {
	ID        int64
	LoginName string
	RealName  string
	Phone     string
	Email     string
	Status    domain.Status
}

// ModifyUser updates the user identified by id.
func (s *Service) ModifyUser(ctx context.Context, id int64, input UpdateUserInput) (*domain.User, error) {
	if input.ID != 0 && input.ID != id {
		return nil, ErrIDMismatch
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	loginName := domain.NormalizeLoginName(input.LoginName)
	if !domain.ValidLoginName(loginName) {
		return nil, ErrInvalidLoginName
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if loginName != user.LoginName {
		if err := s.ensureLoginNameFree(ctx, loginName, id); err != nil {
			return nil, err
		}
	}

	user.LoginName = loginName
	user.RealName = strings.TrimSpace(input.RealName)
	user.Phone = input.Phone
	user.Email = input.Email
	user.Status = input.Status

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("user modified", "user_id", id)
	return user, nil
}

// RemoveUser deletes one user and its role associations.
func (s *Service) RemoveUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("user removed", "user_id", id)
	return nil
}

// RemoveUsers deletes every user in the comma-separated id list, or none of
// them if any id is unknown. Returns the ids that were deleted.
func (s *Service) RemoveUsers(ctx context.Context, idList string) ([]int64, error) {
	ids, err := ParseIDList(idList)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteUsers(ctx, ids); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("users removed", "user_ids", ids)
	return ids, nil
}

// ParseIDList parses "1, 2,3" into distinct ids in first-seen order.
func ParseIDList(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	seen := make(map[int64]struct{}, len(parts))
	ids := make([]int64, 0, len(parts))

	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, ErrInvalidIDList
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids, nil
}

// PasswordReset carries the new plaintext password back to the administrator once.
type PasswordReset struct {
	UserID   int64  `json:"user_id"`
	Password string `json:"password"`
}

// ResetPassword assigns the configured fixed password, or a random one when
// none is configured, and stores its hash.
func (s *Service) ResetPassword(ctx context.Context, id int64) (*PasswordReset, error) {
	plain := s.config.ResetPassword
	if plain == "" {
		generated, err := s.generate(s.config.GeneratedPasswordLength)
		if err != nil {
			return nil, err
		}
		plain = generated
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateUserPassword(ctx, id, hash); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("user password reset", "user_id", id)
	return &PasswordReset{UserID: id, Password: plain}, nil
}

// AssignRoles replaces the roles of a user and returns the resulting set.
func (s *Service) AssignRoles(ctx context.Context, userID int64, roleIDs []int64) ([]domain.Role, error) {
	unique := make([]int64, 0, len(roleIDs))
	seen := make(map[int64]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	if err := s.repo.SetUserRoles(ctx, userID, unique); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("user roles assigned", "user_id", userID, "role_ids", unique)
	return s.repo.GetUserRoles(ctx, userID)
}

// UserRoles returns the roles currently granted to a user.
func (s *Service) UserRoles(ctx context.Context, userID int64) ([]domain.Role, error) {
	return s.repo.GetUserRoles(ctx, userID)
}

// ListRoles returns every role.
func (s *Service) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.repo.ListRoles(ctx)
}

// LoadCredentials returns the principal of a staff user.
func (s *Service) LoadCredentials(ctx context.Context, loginName string) (*domain.Principal, error) {
	user, err := s.repo.GetUserByLoginName(ctx, domain.NormalizeLoginName(loginName))
	if err != nil {
		return nil, err
	}

	return &domain.Principal{
		Kind:         domain.PrincipalStaff,
		LoginName:    user.LoginName,
		PasswordHash: user.Password,
		Enabled:      user.Status.Enabled(),
		Authorities:  domain.RoleCodes(user.Roles),
	}, nil
}

// EnsureBootstrapAdmin creates an enabled admin user unless loginName is taken.
// It reports whether a user was created.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, loginName, plain string) (bool, error) {
	user := &domain.User{
		LoginName: domain.NormalizeLoginName(loginName),
		RealName:  "Administrator",
		Status:    domain.StatusEnabled,
	}

	err := s.create(ctx, user, plain, []int64{domain.AdminRoleID})
	if errors.Is(err, ErrLoginNameExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	ctxlog.FromContext(ctx).Info("bootstrap admin created", "user_id", user.ID, "login_name", user.LoginName)
	return true, nil
}
