package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bissquit/hotel-admin/internal/domain"
	"github.com/bissquit/hotel-admin/internal/pkg/password"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(repo *mockRepository, config Config) http.Handler {
	handler := NewHandler(NewService(repo, prefixHasher{}, config))

	r := chi.NewRouter()
	r.Route("/admin", handler.RegisterRoutes)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	assert.Equal(t, rec.Code, env.Code, "envelope code mirrors HTTP status")
	return rec, env
}

func TestHandler_AddUser(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(repo, Config{})

	rec, env := doRequest(t, router, http.MethodPost, "/admin/users", map[string]any{
		"login_name": "clerk01",
		"password":   "secret1",
		"real_name":  "Front Desk",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, string(env.Data), "password")

	var user domain.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "clerk01", user.LoginName)

	rec, _ = doRequest(t, router, http.MethodPost, "/admin/users", map[string]any{
		"login_name": "clerk01",
		"password":   "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = doRequest(t, router, http.MethodPost, "/admin/users", map[string]any{
		"login_name": "c",
		"password":   "secret1",
		"email":      "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "Email")
}

func TestHandler_AddUser_NormalizedInput(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(repo, Config{})

	rec, env := doRequest(t, router, http.MethodPost, "/admin/users", map[string]any{
		"login_name": "  c  ",
		"password":   "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "LoginName")

	bcryptRouter := chi.NewRouter()
	bcryptRouter.Route("/admin", NewHandler(NewService(repo, password.NewBcrypt(bcrypt.MinCost), Config{})).RegisterRoutes)

	rec, env = doRequest(t, bcryptRouter, http.MethodPost, "/admin/users", map[string]any{
		"login_name": "clerk-multibyte",
		"password":   strings.Repeat("é", 40),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, password.ErrTooLong.Error(), env.Message)

	assert.Empty(t, repo.users)
}

func TestHandler_ModifyUser_PaddedShortLoginName(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01")
	router := newTestRouter(repo, Config{})

	rec, _ := doRequest(t, router, http.MethodPut, "/admin/users/1", map[string]any{
		"login_name": " x ",
		"status":     1,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "clerk01", repo.users[1].LoginName)
	assert.Zero(t, repo.updates)
}

func TestHandler_ListUsers(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01", 3)
	repo.addUser(2, "manager", 2)
	router := newTestRouter(repo, Config{})

	rec, env := doRequest(t, router, http.MethodGet, "/admin/users?login_name=clerk&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Items []domain.User `json:"items"`
		Total int           `json:"total"`
		Limit int           `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, "clerk01", page.Items[0].LoginName)

	rec, _ = doRequest(t, router, http.MethodGet, "/admin/users?status=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ModifyUser_IDMismatch(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01")
	router := newTestRouter(repo, Config{})

	rec, env := doRequest(t, router, http.MethodPut, "/admin/users/1", map[string]any{
		"id":         2,
		"login_name": "renamed",
		"status":     1,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrIDMismatch.Error(), env.Message)
	assert.Equal(t, "clerk01", repo.users[1].LoginName)
	assert.Zero(t, repo.updates)
}

func TestHandler_ModifyUser(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01")
	router := newTestRouter(repo, Config{})

	rec, _ := doRequest(t, router, http.MethodPut, "/admin/users/1", map[string]any{
		"id":         1,
		"login_name": "clerk-one",
		"status":     0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "clerk-one", repo.users[1].LoginName)
	assert.Equal(t, domain.StatusDisabled, repo.users[1].Status)

	rec, _ = doRequest(t, router, http.MethodPut, "/admin/users/5", map[string]any{
		"login_name": "ghost",
		"status":     1,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doRequest(t, router, http.MethodPut, "/admin/users/1", map[string]any{
		"login_name": "clerk-one",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "status is required")
}

func TestHandler_RemoveUser(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01")
	router := newTestRouter(repo, Config{})

	rec, _ := doRequest(t, router, http.MethodDelete, "/admin/user/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := doRequest(t, router, http.MethodDelete, "/admin/user/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrUserNotFound.Error(), env.Message)

	rec, _ = doRequest(t, router, http.MethodDelete, "/admin/user/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_RemoveUsers(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01")
	repo.addUser(3, "clerk03")
	router := newTestRouter(repo, Config{})

	rec, env := doRequest(t, router, http.MethodDelete, "/admin/users/1,2,3", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, env.Message, "2")
	assert.Len(t, repo.users, 2, "nothing deleted")

	rec, _ = doRequest(t, router, http.MethodDelete, "/admin/users/1,x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = doRequest(t, router, http.MethodDelete, "/admin/users/1,3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ids":[1,3]}`, string(env.Data))
	assert.Empty(t, repo.users)
}

func TestHandler_ResetPassword(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01")
	router := newTestRouter(repo, Config{ResetPassword: "changeme"})

	rec, env := doRequest(t, router, http.MethodPut, "/admin/resetPwd/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":1,"password":"changeme"}`, string(env.Data))

	rec, _ = doRequest(t, router, http.MethodPut, "/admin/resetPwd/2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_AssignRoles(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "clerk01", 1)
	router := newTestRouter(repo, Config{})

	rec, env := doRequest(t, router, http.MethodPost, "/admin/userRoles/1", map[string]any{
		"role_ids": []int64{2, 3},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var roles []domain.Role
	require.NoError(t, json.Unmarshal(env.Data, &roles))
	assert.Equal(t, []string{domain.RoleCodeAdmin, domain.RoleCodeStaff}, domain.RoleCodes(roles))

	rec, env = doRequest(t, router, http.MethodGet, "/admin/userRoles/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &roles))
	assert.Len(t, roles, 2)

	rec, _ = doRequest(t, router, http.MethodPost, "/admin/userRoles/1", map[string]any{
		"user_id":  9,
		"role_ids": []int64{2},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, router, http.MethodPost, "/admin/userRoles/1", map[string]any{
		"role_ids": []int64{0},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, router, http.MethodPost, "/admin/userRoles/1", map[string]any{
		"role_ids": []int64{77},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doRequest(t, router, http.MethodGet, "/admin/userRoles/8", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ListRoles(t *testing.T) {
	router := newTestRouter(newMockRepository(), Config{})

	rec, env := doRequest(t, router, http.MethodGet, "/admin/roles", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var roles []domain.Role
	require.NoError(t, json.Unmarshal(env.Data, &roles))
	assert.Equal(t, []string{domain.RoleCodeMember, domain.RoleCodeAdmin, domain.RoleCodeStaff}, domain.RoleCodes(roles))
}
