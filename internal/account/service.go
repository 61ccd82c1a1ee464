package account

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bissquit/hotel-admin/internal/domain"
	"github.com/bissquit/hotel-admin/internal/pkg/ctxlog"
	"github.com/bissquit/hotel-admin/internal/pkg/metrics"
)

// Hasher hashes plaintext passwords one way.
type Hasher interface {
	Hash(plain string) (string, error)
}

// Config holds the account service settings.
type Config struct {
	// DefaultRoleID is granted to every newly registered account.
	DefaultRoleID int64
	// Location defines the day boundaries used by UserCount.
	Location *time.Location
}

// Service provides account business logic.
type Service struct {
	repo   Repository
	hasher Hasher
	config Config
	now    func() time.Time
}

// NewService creates a new account service.
func NewService(repo Repository, hasher Hasher, config Config) *Service {
	if config.DefaultRoleID == 0 {
		config.DefaultRoleID = domain.DefaultAccountRoleID
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	return &Service{
		repo:   repo,
		hasher: hasher,
		config: config,
		now:    time.Now,
	}
}

// LoadCredentials returns the principal for loginName.
func (s *Service) LoadCredentials(ctx context.Context, loginName string) (*domain.Principal, error) {
	account, err := s.repo.GetAccountByLoginName(ctx, domain.NormalizeLoginName(loginName))
	if err != nil {
		return nil, err
	}

	return &domain.Principal{
		Kind:         domain.PrincipalAccount,
		LoginName:    account.LoginName,
		PasswordHash: account.Password,
		Enabled:      account.Status.Enabled(),
		Authorities:  domain.RoleCodes(account.Roles),
	}, nil
}

// RegisterInput contains data for a new account.
type RegisterInput struct {
	LoginName string
	Password  string
	Nickname  string
	Phone     string
	Email     string
}

// Register creates an enabled account holding the default role.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	account, err := s.register(ctx, input)
	if err != nil {
		result := "error"
		if errors.Is(err, ErrLoginNameExists) {
			result = "conflict"
		}
		metrics.Registrations.WithLabelValues(result).Inc()
		return nil, err
	}

	metrics.Registrations.WithLabelValues("success").Inc()
	ctxlog.FromContext(ctx).Info("account registered", "account_id", account.ID, "login_name", account.LoginName)
	return account, nil
}

func (s *Service) register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	loginName := domain.NormalizeLoginName(input.LoginName)
	if !domain.ValidLoginName(loginName) {
		return nil, ErrInvalidLoginName
	}

	// Pre-flight only; the unique constraint settles races.
	status, err := s.CheckLoginName(ctx, loginName)
	if err != nil {
		return nil, err
	}
	if status == LoginNameExists {
		return nil, ErrLoginNameExists
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		LoginName:    loginName,
		Password:     hash,
		Nickname:     input.Nickname,
		Phone:        input.Phone,
		Email:        input.Email,
		Status:       domain.StatusEnabled,
		RegisteredAt: s.now(),
	}

	if err := s.repo.CreateAccount(ctx, account, s.config.DefaultRoleID); err != nil {
		return nil, err
	}

	return account, nil
}

// LoginNameStatus is the outcome of CheckLoginName.
type LoginNameStatus string

// Login name availability values.
const (
	LoginNameExists    LoginNameStatus = "exists"
	LoginNameAvailable LoginNameStatus = "available"
)

// CheckLoginName reports whether an account already uses loginName.
func (s *Service) CheckLoginName(ctx context.Context, loginName string) (LoginNameStatus, error) {
	_, err := s.repo.GetAccountByLoginName(ctx, domain.NormalizeLoginName(loginName))
	switch {
	case err == nil:
		return LoginNameExists, nil
	case errors.Is(err, ErrAccountNotFound):
		return LoginNameAvailable, nil
	default:
		return "", fmt.Errorf("check login name: %w", err)
	}
}

// UserCount holds the registration statistics rendered as decimal strings.
type UserCount struct {
	AllCount     string `json:"all_count"`
	YesterdayAdd string `json:"yesterday_add"`
	WeekAdd      string `json:"week_add"`
}

// UserCount counts all accounts, accounts registered yesterday and accounts
// registered during the trailing seven days.
func (s *Service) UserCount(ctx context.Context) (*UserCount, error) {
	windows := countWindows(s.now(), s.config.Location)

	counts := make([]string, 0, len(windows))
	for _, w := range windows {
		n, err := s.repo.CountAccounts(ctx, w.filter)
		if err != nil {
			return nil, fmt.Errorf("count %s accounts: %w", w.name, err)
		}
		counts = append(counts, strconv.Itoa(n))
	}

	return &UserCount{
		AllCount:     counts[0],
		YesterdayAdd: counts[1],
		WeekAdd:      counts[2],
	}, nil
}

type countWindow struct {
	name   string
	filter CountFilter
}

// countWindows returns the unbounded, yesterday and trailing-week filters, in that order.
func countWindows(now time.Time, loc *time.Location) []countWindow {
	local := now.In(loc)
	yesterdayStart := time.Date(local.Year(), local.Month(), local.Day()-1, 0, 0, 0, 0, loc)
	yesterdayEnd := yesterdayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)
	weekStart := local.AddDate(0, 0, -7)

	return []countWindow{
		{name: "all", filter: CountFilter{}},
		{name: "yesterday", filter: CountFilter{RegisteredFrom: &yesterdayStart, RegisteredTo: &yesterdayEnd}},
		{name: "week", filter: CountFilter{RegisteredFrom: &weekStart, RegisteredTo: &local}},
	}
}

// Page is one page of accounts.
type Page struct {
	Items []domain.Account `json:"items"`
	Total int              `json:"total"`
}

// ListAccounts returns accounts matching filter.
func (s *Service) ListAccounts(ctx context.Context, filter ListFilter) (*Page, error) {
	filter.LoginName = domain.NormalizeLoginName(filter.LoginName)

	items, total, err := s.repo.ListAccounts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total}, nil
}

// SetStatus enables or disables an account.
func (s *Service) SetStatus(ctx context.Context, id int64, status domain.Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if err := s.repo.UpdateAccountStatus(ctx, id, status); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("account status changed", "account_id", id, "status", status)
	return nil
}

// GetAccount returns one account with its roles.
func (s *Service) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return s.repo.GetAccountByID(ctx, id)
}

// UpdateAccountInput contains the editable fields of an account.
// ID is optional; when non-zero it must equal the id being modified.
type UpdateAccountInput struct {
	ID        int64
	LoginName string
	Nickname  string
	Phone     string
	Email     string
	Status    domain.Status
}

// UpdateAccount modifies the account identified by id. The password and
// registration time are left untouched.
func (s *Service) UpdateAccount(ctx context.Context, id int64, input UpdateAccountInput) (*domain.Account, error) {
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

	account, err := s.repo.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if loginName != account.LoginName {
		existing, err := s.repo.GetAccountByLoginName(ctx, loginName)
		switch {
		case err == nil && existing.ID != id:
			return nil, ErrLoginNameExists
		case err != nil && !errors.Is(err, ErrAccountNotFound):
			return nil, fmt.Errorf("check login name: %w", err)
		}
	}

	account.LoginName = loginName
	account.Nickname = input.Nickname
	account.Phone = input.Phone
	account.Email = input.Email
	account.Status = input.Status

	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("account modified", "account_id", id)
	return account, nil
}

// DeleteAccount removes an account together with its role associations.
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	if err := s.repo.DeleteAccount(ctx, id); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("account deleted", "account_id", id)
	return nil
}
