package account

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

// Handler handles HTTP requests for the account module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new account handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers the public account routes.
// The throttle middleware wraps registration only.
func (h *Handler) RegisterRoutes(r chi.Router, throttle func(http.Handler) http.Handler) {
	r.Route("/accounts", func(r chi.Router) {
		r.With(throttle).Post("/register", h.Register)
		r.Get("/check", h.CheckLoginName)
	})
}

// RegisterAdminRoutes registers account routes for administrators.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.ListAccounts)
		r.Get("/count", h.UserCount)
		r.Get("/{id}", h.GetAccount)
		r.Put("/{id}", h.UpdateAccount)
		r.Delete("/{id}", h.DeleteAccount)
		r.Put("/{id}/status", h.SetStatus)
	})
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrAccountNotFound, Status: http.StatusNotFound},
	{Error: ErrLoginNameExists, Status: http.StatusConflict},
	{Error: ErrInvalidLoginName, Status: http.StatusBadRequest},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
	{Error: ErrIDMismatch, Status: http.StatusBadRequest},
	{Error: password.ErrTooLong, Status: http.StatusBadRequest},
}

const errInvalidAccountID = "invalid account id"

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	LoginName string `json:"login_name" validate:"required,min=3,max=64"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	Nickname  string `json:"nickname" validate:"max=64"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Email     string `json:"email" validate:"omitempty,email,max=255"`
}

// Register handles POST /accounts/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.LoginName = domain.NormalizeLoginName(req.LoginName)

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	account, err := h.service.Register(r.Context(), RegisterInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, "registration succeeded", account)
}

// CheckLoginName handles GET /accounts/check?login_name=...
func (h *Handler) CheckLoginName(w http.ResponseWriter, r *http.Request) {
	loginName := domain.NormalizeLoginName(r.URL.Query().Get("login_name"))
	if loginName == "" {
		httputil.Error(w, http.StatusBadRequest, ErrInvalidLoginName.Error())
		return
	}

	status, err := h.service.CheckLoginName(r.Context(), loginName)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	if status == LoginNameExists {
		httputil.Error(w, http.StatusConflict, ErrLoginNameExists.Error())
		return
	}
	httputil.Success(w, http.StatusOK, "login name available", nil)
}

// UserCount handles GET /accounts/count.
func (h *Handler) UserCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.UserCount(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, "ok", count)
}

// ListAccounts handles GET /accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.service.ListAccounts(r.Context(), filter)
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

// SetStatusRequest represents the request body for changing account status.
type SetStatusRequest struct {
	Status *domain.Status `json:"status" validate:"required"`
}

// SetStatus handles PUT /accounts/{id}/status.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httputil.Error(w, http.StatusBadRequest, errInvalidAccountID)
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if err := h.service.SetStatus(r.Context(), id, *req.Status); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, "status updated", nil)
}

// GetAccount handles GET /accounts/{id}.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httputil.Error(w, http.StatusBadRequest, errInvalidAccountID)
		return
	}

	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, "ok", account)
}

// UpdateAccountRequest represents the request body for modifying an account.
// ID may be omitted; when present it must match the path.
type UpdateAccountRequest struct {
	ID        int64          `json:"id" validate:"gte=0"`
	LoginName string         `json:"login_name" validate:"required,min=3,max=64"`
	Nickname  string         `json:"nickname" validate:"max=64"`
	Phone     string         `json:"phone" validate:"omitempty,max=32"`
	Email     string         `json:"email" validate:"omitempty,email,max=255"`
	Status    *domain.Status `json:"status" validate:"required"`
}

// UpdateAccount handles PUT /accounts/{id}.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httputil.Error(w, http.StatusBadRequest, errInvalidAccountID)
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.LoginName = domain.NormalizeLoginName(req.LoginName)

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	account, err := h.service.UpdateAccount(r.Context(), id, UpdateAccountInput{
		ID:        req.ID,
		LoginName: req.LoginName,
		Nickname:  req.Nickname,
		Phone:     req.Phone,
		Email:     req.Email,
		Status:    *req.Status,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, "account modified", account)
}

// DeleteAccount handles DELETE /accounts/{id}.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httputil.Error(w, http.StatusBadRequest, errInvalidAccountID)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, "account deleted", nil)
}
