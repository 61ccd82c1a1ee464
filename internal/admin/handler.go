package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bissquit/hotel-admin/internal/domain"
	"github.com/bissquit/hotel-admin/internal/pkg/httputil"
	"github.com/bissquit/hotel-admin/internal/pkg/password"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for staff user management.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new admin handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers the admin routes. The caller is responsible for
// authentication and authorization middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.AddUser)
		r.Put("/{id}", h.ModifyUser)
		// Same segment as PUT, so the param shares its name; it holds an id list.
		r.Delete("/{id}", h.RemoveUsers)
	})
	r.Delete("/user/{id}", h.RemoveUser)
	r.Put("/resetPwd/{id}", h.ResetPassword)
	r.Route("/userRoles/{userId}", func(r chi.Router) {
		r.Get("/", h.UserRoles)
		r.Post("/", h.AssignRoles)
	})
	r.Get("/roles", h.ListRoles)
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrUserNotFound, Status: http.StatusNotFound},
	{Error: ErrRoleNotFound, Status: http.StatusNotFound},
	{Error: ErrLoginNameExists, Status: http.StatusConflict},
	{Error: ErrInvalidLoginName, Status: http.StatusBadRequest},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
	{Error: ErrIDMismatch, Status: http.StatusBadRequest},
	{Error: ErrInvalidID, Status: http.StatusBadRequest},
	{Error: ErrInvalidIDList, Status: http.StatusBadRequest},
	{Error: password.ErrTooLong, Status: http.StatusBadRequest},
}

func parseID(r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePage(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := ListFilter{
		LoginName: r.URL.Query().Get("login_name"),
		Limit:     page.Limit,
		Offset:    page.Offset(),
	}

	if v := r.URL.Query().Get("status"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || !domain.Status(n).Valid() {
			httputil.Error(w, http.StatusBadRequest, ErrInvalidStatus.Error())
			return
		}
		status := domain.Status(n)
		filter.Status = &status
	}

	result, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, "ok", map[string]any{
		"items": result.Items,
		"total": result.Total,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

// AddUserRequest represents the request body for creating a staff user.
type AddUserRequest struct {
	LoginName string         `json:"login_name" validate:"required,min=3,max=64"`
	Password  string         `json:"password" validate:"required,min=6,max=72"`
	RealName  string         `json:"real_name" validate:"max=64"`
	Phone     string         `json:"phone" validate:"omitempty,max=32"`
	Email     string         `json:"email" validate:"omitempty,email,max=255"`
	Status    *domain.Status `json:"status" validate:"omitempty"`
}

// AddUser handles POST /users.
func (h *Handler) AddUser(w http.ResponseWriter, r *http.Request) {
	var req AddUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.LoginName = domain.NormalizeLoginName(req.LoginName)

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, err := h.service.AddUser(r.Context(), CreateUserInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, "user created", user)
}

// ModifyUserRequest represents the request body for updating a staff user.
// ID may be omitted; when present it must match the path.
type ModifyUserRequest struct {
	ID        int64          `json:"id" validate:"gte=0"`
	LoginName string         `json:"login_name" validate:"required,min=3,max=64"`
	RealName  string         `json:"real_name" validate:"max=64"`
	Phone     string         `json:"phone" validate:"omitempty,max=32"`
	Email     string         `json:"email" validate:"omitempty,email,max=255"`
	Status    *domain.Status `json:"status" validate:"required"`
}

// ModifyUser handles PUT /users/{id}.
func (h *Handler) ModifyUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, ErrInvalidID.Error())
		return
	}

	var req ModifyUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.LoginName = domain.NormalizeLoginName(req.LoginName)

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, err := h.service.ModifyUser(r.Context(), id, UpdateUserInput{
		ID:        req.ID,
		LoginName: req.LoginName,
		RealName:  req.RealName,
		Phone:     req.Phone,
		Email:     req.Email,
		Status:    *req.Status,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, "user modified", user)
}

// RemoveUser handles DELETE /user/{id}.
func (h *Handler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, ErrInvalidID.Error())
		return
	}

	if err := h.service.RemoveUser(r.Context(), id); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, "user removed", nil)
}

// RemoveUsers handles DELETE /users/{ids} where ids is comma-separated.
func (h *Handler) RemoveUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.RemoveUsers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, "users removed", map[string]any{"ids": ids})
}

// ResetPassword handles PUT /resetPwd/{id}.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, ErrInvalidID.Error())
		return
	}

	reset, err := h.service.ResetPassword(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, "password reset", reset)
}

// AssignRolesRequest represents the request body for replacing user roles.
type AssignRolesRequest struct {
	UserID  int64   `json:"user_id" validate:"gte=0"`
	RoleIDs []int64 `json:"role_ids" validate:"dive,gt=0"`
}

// AssignRoles handles POST /userRoles/{userId}.
func (h *Handler) AssignRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(r, "userId")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, ErrInvalidID.Error())
		return
	}

	var req AssignRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if req.UserID != 0 && req.UserID != userID {
		httputil.Error(w, http.StatusBadRequest, ErrIDMismatch.Error())
		return
	}

	roles, err := h.service.AssignRoles(r.Context(), userID, req.RoleIDs)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, "roles assigned", roles)
}

// UserRoles handles GET /userRoles/{userId}.
func (h *Handler) UserRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(r, "userId")
	if !ok {
		httputil.Error(w, http.StatusBadRequest, ErrInvalidID.Error())
		return
	}

	roles, err := h.service.UserRoles(r.Context(), userID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, "ok", roles)
}

// ListRoles handles GET /roles.
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, "ok", roles)
}
