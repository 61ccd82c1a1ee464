package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/hotel-admin/internal/domain"
	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	principal *domain.Principal
	err       error
	gotToken  string
}

func (s *stubValidator) ValidateToken(_ context.Context, token string) (*domain.Principal, error) {
	s.gotToken = token
	return s.principal, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	principal := &domain.Principal{LoginName: "root", Authorities: []string{domain.RoleCodeAdmin}}

	tests := []struct {
		name       string
		header     string
		validator  *stubValidator
		wantStatus int
	}{
		{"missing header", "", &stubValidator{principal: principal}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", &stubValidator{principal: principal}, http.StatusUnauthorized},
		{"empty token", "Bearer ", &stubValidator{principal: principal}, http.StatusUnauthorized},
		{"invalid token", "Bearer bad", &stubValidator{err: errors.New("expired")}, http.StatusUnauthorized},
		{"valid token", "bearer good", &stubValidator{principal: principal}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *domain.Principal
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(tt.validator)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "good", tt.validator.gotToken)
				assert.Same(t, principal, seen)
			}
		})
	}
}

func TestRequireAuthority(t *testing.T) {
	t.Run("no principal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireAuthority(domain.RoleCodeAdmin)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing authority", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), principalKey{}, &domain.Principal{
			Authorities: []string{domain.RoleCodeMember},
		}))
		rec := httptest.NewRecorder()

		RequireAuthority(domain.RoleCodeAdmin)(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("granted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), principalKey{}, &domain.Principal{
			Authorities: []string{domain.RoleCodeAdmin},
		}))
		rec := httptest.NewRecorder()

		RequireAuthority(domain.RoleCodeAdmin)(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"https://frontdesk.example.com"})(okHandler())

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/admin/users", nil)
		req.Header.Set("Origin", "https://frontdesk.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://frontdesk.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
