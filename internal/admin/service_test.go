package admin

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/bissquit/hotel-admin/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	users     map[int64]*domain.User
	roles     map[int64]domain.Role
	userRoles map[int64][]int64
	nextID    int64
	updates   int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users: make(map[int64]*domain.User),
		roles: map[int64]domain.Role{
			1: {ID: 1, Code: domain.RoleCodeMember, Name: "Member"},
			2: {ID: 2, Code: domain.RoleCodeAdmin, Name: "Administrator"},
			3: {ID: 3, Code: domain.RoleCodeStaff, Name: "Staff"},
		},
		userRoles: make(map[int64][]int64),
	}
}

func (m *mockRepository) addUser(id int64, loginName string, roleIDs ...int64) {
	m.users[id] = &domain.User{ID: id, LoginName: loginName, Status: domain.StatusEnabled}
	m.userRoles[id] = roleIDs
	if id > m.nextID {
		m.nextID = id
	}
}

func (m *mockRepository) rolesOf(id int64) []domain.Role {
	roles := make([]domain.Role, 0, len(m.userRoles[id]))
	for _, roleID := range m.userRoles[id] {
		roles = append(roles, m.roles[roleID])
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles
}

func (m *mockRepository) ListUsers(_ context.Context, filter ListFilter) ([]domain.User, int, error) {
	var items []domain.User
	for _, u := range m.users {
		if filter.LoginName != "" && !strings.Contains(u.LoginName, filter.LoginName) {
			continue
		}
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		items = append(items, *u)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, len(items), nil
}

func (m *mockRepository) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	copied.Roles = m.rolesOf(id)
	return &copied, nil
}

func (m *mockRepository) GetUserByLoginName(_ context.Context, loginName string) (*domain.User, error) {
	for _, u := range m.users {
		if u.LoginName == loginName {
			copied := *u
			copied.Roles = m.rolesOf(u.ID)
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) CreateUser(_ context.Context, u *domain.User, roleIDs []int64) error {
	for _, roleID := range roleIDs {
		if _, ok := m.roles[roleID]; !ok {
			return ErrRoleNotFound
		}
	}
	m.nextID++
	u.ID = m.nextID
	stored := *u
	m.users[u.ID] = &stored
	m.userRoles[u.ID] = roleIDs
	u.Roles = m.rolesOf(u.ID)
	return nil
}

func (m *mockRepository) UpdateUser(_ context.Context, u *domain.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	m.updates++
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *mockRepository) UpdateUserPassword(_ context.Context, id int64, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Password = hash
	return nil
}

func (m *mockRepository) DeleteUser(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, id)
	delete(m.userRoles, id)
	return nil
}

func (m *mockRepository) DeleteUsers(_ context.Context, ids []int64) error {
	var missing []int64
	for _, id := range ids {
		if _, ok := m.users[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &MissingUsersError{IDs: missing}
	}
	for _, id := range ids {
		delete(m.users, id)
		delete(m.userRoles, id)
	}
	return nil
}

func (m *mockRepository) SetUserRoles(_ context.Context, userID int64, roleIDs []int64) error {
	if _, ok := m.users[userID]; !ok {
		return ErrUserNotFound
	}
	for _, roleID := range roleIDs {
		if _, ok := m.roles[roleID]; !ok {
			return ErrRoleNotFound
		}
	}
	m.userRoles[userID] = slices.Clone(roleIDs)
	return nil
}

func (m *mockRepository) GetUserRoles(_ context.Context, userID int64) ([]domain.Role, error) {
	if _, ok := m.users[userID]; !ok {
		return nil, ErrUserNotFound
	}
	return m.rolesOf(userID), nil
}

func (m *mockRepository) ListRoles(_ context.Context) ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(m.roles))
	for _, r := range m.roles {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

// prefixHasher marks hashes so tests can tell them from plaintext.
type prefixHasher struct{}

func (prefixHasher) Hash(plain string) (string, error) {
	return "hashed:" + plain, nil
}

func TestService_AddUser(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, prefixHasher{}, Config{})

	user, err := svc.AddUser(context.Background(), CreateUserInput{
		LoginName: "  clerk01 ",
		Password:  "secret1",
		RealName:  "Front Desk",
	})
	require.NoError(t, err)

	assert.Equal(t, "clerk01", user.LoginName)
	assert.Equal(t, domain.StatusEnabled, user.Status)
	assert.Equal(t, "hashed:secret1", repo.users[user.ID].Password)
	assert.Empty(t, user.Roles)
}

func TestService_AddUser_Duplicate(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01")
	svc := NewService(repo, prefixHasher{}, Config{})

	_, err := svc.AddUser(context.Background(), CreateUserInput{LoginName: "clerk01", Password: "secret1"})
	assert.ErrorIs(t, err, ErrLoginNameExists)
}

func TestService_AddUser_InvalidStatus(t *testing.T) {
	svc := NewService(newMockRepository(), prefixHasher{}, Config{})
	status := domain.Status(7)

	_, err := svc.AddUser(context.Background(), CreateUserInput{LoginName: "clerk01", Password: "secret1", Status: &status})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_ModifyUser(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01")
	repo.addUser(2, "clerk02")
	svc := NewService(repo, prefixHasher{}, Config{})
	ctx := context.Background()

	t.Run("updates fields", func(t *testing.T) {
		user, err := svc.ModifyUser(ctx, 1, UpdateUserInput{
			LoginName: "clerk01",
			RealName:  "Night Shift",
			Status:    domain.StatusDisabled,
		})
		require.NoError(t, err)
		assert.Equal(t, "Night Shift", user.RealName)
		assert.Equal(t, domain.StatusDisabled, repo.users[1].Status)
	})

	t.Run("body id must match path id", func(t *testing.T) {
		before := repo.updates
		_, err := svc.ModifyUser(ctx, 1, UpdateUserInput{ID: 2, LoginName: "clerk01", Status: domain.StatusEnabled})
		assert.ErrorIs(t, err, ErrIDMismatch)
		assert.Equal(t, before, repo.updates, "nothing written")
	})

	t.Run("login name too short once trimmed", func(t *testing.T) {
		before := repo.updates
		_, err := svc.ModifyUser(ctx, 1, UpdateUserInput{LoginName: "  a  ", Status: domain.StatusEnabled})
		assert.ErrorIs(t, err, ErrInvalidLoginName)
		assert.Equal(t, before, repo.updates, "nothing written")
	})

	t.Run("renaming to a taken login name", func(t *testing.T) {
		_, err := svc.ModifyUser(ctx, 1, UpdateUserInput{LoginName: "clerk02", Status: domain.StatusEnabled})
		assert.ErrorIs(t, err, ErrLoginNameExists)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.ModifyUser(ctx, 99, UpdateUserInput{LoginName: "ghost", Status: domain.StatusEnabled})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestService_RemoveUser(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01", 3)
	svc := NewService(repo, prefixHasher{}, Config{})

	require.NoError(t, svc.RemoveUser(context.Background(), 1))
	assert.Empty(t, repo.users)
	assert.Empty(t, repo.userRoles)

	assert.ErrorIs(t, svc.RemoveUser(context.Background(), 1), ErrUserNotFound)
	assert.ErrorIs(t, svc.RemoveUser(context.Background(), 0), ErrInvalidID)
}

func TestService_RemoveUsers_AllOrNothing(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01")
	repo.addUser(3, "clerk03")
	svc := NewService(repo, prefixHasher{}, Config{})

	_, err := svc.RemoveUsers(context.Background(), "1,2,3")
	require.ErrorIs(t, err, ErrUserNotFound)

	var missing *MissingUsersError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []int64{2}, missing.IDs)
	assert.Contains(t, repo.users, int64(1))
	assert.Contains(t, repo.users, int64(3))

	ids, err := svc.RemoveUsers(context.Background(), "3, 1,3")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids)
	assert.Empty(t, repo.users)
}

func TestParseIDList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int64
		wantErr bool
	}{
		{name: "single", input: "7", want: []int64{7}},
		{name: "spaces", input: " 1 , 2,3 ", want: []int64{1, 2, 3}},
		{name: "duplicates collapsed", input: "2,1,2", want: []int64{2, 1}},
		{name: "empty", input: "", wantErr: true},
		{name: "trailing comma", input: "1,", wantErr: true},
		{name: "not a number", input: "1,abc", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIDList(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIDList)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_ResetPassword_Fixed(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01")
	svc := NewService(repo, prefixHasher{}, Config{ResetPassword: "changeme"})

	reset, err := svc.ResetPassword(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "changeme", reset.Password)
	assert.Equal(t, "hashed:changeme", repo.users[1].Password)
}

func TestService_ResetPassword_Random(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01")
	svc := NewService(repo, prefixHasher{}, Config{})

	first, err := svc.ResetPassword(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, first.Password, DefaultGeneratedPasswordLength)
	assert.Equal(t, "hashed:"+first.Password, repo.users[1].Password)

	second, err := svc.ResetPassword(context.Background(), 1)
	require.NoError(t, err)
	assert.NotEqual(t, first.Password, second.Password)
}

func TestService_ResetPassword_UnknownUser(t *testing.T) {
	svc := NewService(newMockRepository(), prefixHasher{}, Config{ResetPassword: "changeme"})

	_, err := svc.ResetPassword(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_ResetPassword_GeneratorError(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01")
	svc := NewService(repo, prefixHasher{}, Config{})
	svc.generate = func(int) (string, error) { return "", errors.New("entropy exhausted") }

	_, err := svc.ResetPassword(context.Background(), 1)
	assert.Error(t, err)
	assert.Empty(t, repo.users[1].Password)
}

func TestService_AssignRoles_Replaces(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01", 1, 2)
	svc := NewService(repo, prefixHasher{}, Config{})

	roles, err := svc.AssignRoles(context.Background(), 1, []int64{3, 3})
	require.NoError(t, err)

	assert.Equal(t, []string{domain.RoleCodeStaff}, domain.RoleCodes(roles))
	assert.Equal(t, []int64{3}, repo.userRoles[1])

	_, err = svc.AssignRoles(context.Background(), 1, []int64{99})
	assert.ErrorIs(t, err, ErrRoleNotFound)

	_, err = svc.AssignRoles(context.Background(), 42, []int64{1})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_AssignRoles_Empty(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01", 2)
	svc := NewService(repo, prefixHasher{}, Config{})

	roles, err := svc.AssignRoles(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestService_LoadCredentials(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "manager", 2, 3)
	repo.users[1].Password = "hashed:secret1"
	svc := NewService(repo, prefixHasher{}, Config{})

	principal, err := svc.LoadCredentials(context.Background(), " manager ")
	require.NoError(t, err)

	assert.Equal(t, domain.PrincipalStaff, principal.Kind)
	assert.Equal(t, "hashed:secret1", principal.PasswordHash)
	assert.True(t, principal.Enabled)
	assert.True(t, principal.HasAuthority(domain.RoleCodeAdmin))

	_, err = svc.LoadCredentials(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_EnsureBootstrapAdmin(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, prefixHasher{}, Config{})
	ctx := context.Background()

	created, err := svc.EnsureBootstrapAdmin(ctx, "admin", "bootstrap1")
	require.NoError(t, err)
	assert.True(t, created)

	principal, err := svc.LoadCredentials(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RoleCodeAdmin}, principal.Authorities)

	created, err = svc.EnsureBootstrapAdmin(ctx, "admin", "bootstrap1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, repo.users, 1)
}
