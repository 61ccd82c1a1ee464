package auth

import (
	"encoding/json"
	"net/http"

	"github.com/bissquit/hotel-admin/internal/domain"
	"github.com/bissquit/hotel-admin/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles login requests for accounts and staff users.
type Handler struct {
	service   *Service
	accounts  PrincipalLoader
	staff     PrincipalLoader
	validator *validator.Validate
}

// NewHandler creates a new auth handler.
func NewHandler(service *Service, accounts, staff PrincipalLoader) *Handler {
	return &Handler{
		service:   service,
		accounts:  accounts,
		staff:     staff,
		validator: validator.New(),
	}
}

// RegisterAccountRoutes registers the account login route.
func (h *Handler) RegisterAccountRoutes(r chi.Router) {
	r.Post("/auth/login", h.login(h.accounts))
}

// RegisterStaffRoutes registers the staff login route.
func (h *Handler) RegisterStaffRoutes(r chi.Router) {
	r.Post("/login", h.login(h.staff))
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrInvalidCredentials, Status: http.StatusUnauthorized},
	{Error: ErrAccountDisabled, Status: http.StatusUnauthorized},
	{Error: ErrPrincipalRevoked, Status: http.StatusUnauthorized},
}

// CurrentPrincipal runs after httputil.AuthMiddleware and swaps the token's
// principal for the stored one, so role and status changes apply to tokens
// already issued.
func (h *Handler) CurrentPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := httputil.PrincipalFromContext(r.Context())
		if principal == nil {
			httputil.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		loader := h.accounts
		if principal.Kind == domain.PrincipalStaff {
			loader = h.staff
		}

		current, err := h.service.Reload(r.Context(), loader, principal)
		if err != nil {
			httputil.HandleError(r.Context(), w, err, errorMappings)
			return
		}

		next.ServeHTTP(w, r.WithContext(httputil.WithPrincipal(r.Context(), current)))
	})
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	LoginName string `json:"login_name" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

func (h *Handler) login(loader PrincipalLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		if err := h.validator.Struct(req); err != nil {
			httputil.ValidationError(w, err)
			return
		}

		result, err := h.service.Login(r.Context(), loader, LoginInput(req))
		if err != nil {
			httputil.HandleError(r.Context(), w, err, errorMappings)
			return
		}

		httputil.Success(w, http.StatusOK, "login succeeded", result)
	}
}
