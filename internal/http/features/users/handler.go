package users

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clockset/accountd/internal/http/middleware"
	"github.com/clockset/accountd/internal/httputil"
	"github.com/clockset/accountd/pkg/auth"
	"github.com/clockset/accountd/pkg/domain"
	"github.com/clockset/accountd/pkg/repository"
)

// Handler handles the user CRUD surface.
type Handler struct {
	logger   *slog.Logger
	users    *repository.UsersRepository
	accounts *auth.AccountService
}

// NewHandler creates a new users handler.
func NewHandler(logger *slog.Logger, users *repository.UsersRepository, accounts *auth.AccountService) *Handler {
	return &Handler{logger: logger, users: users, accounts: accounts}
}

// UserResponse is the serialized user. The password hash is never part of
// any response shape.
type UserResponse struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Email         *string `json:"email"`
	Status        string  `json:"status"`
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	StartDate     *string `json:"start_date"`
	Locked        bool    `json:"locked"`
	LoginAttempts int     `json:"login_attempts"`
}

func toResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Status:        u.Status,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		StartDate:     u.StartDate,
		Locked:        u.Locked,
		LoginAttempts: u.LoginAttempts,
	}
}

// Pagination is the list metadata block.
type Pagination struct {
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	CurrentPage int  `json:"current_page"`
	PerPage     int  `json:"per_page"`
	HasPrev     bool `json:"has_prev"`
	HasNext     bool `json:"has_next"`
}

// ListResponse is the paginated user list.
type ListResponse struct {
	Items      []UserResponse `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

// List returns a page of users with optional search, ID filter, and sort.
// GET /users
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := repository.ListParams{
		Page:       queryInt(q.Get("page"), 1),
		PerPage:    queryInt(q.Get("per_page"), 10),
		SearchTerm: q.Get("search_term"),
		SortBy:     q.Get("sort_by"),
		SortDir:    q.Get("sort_dir"),
	}
	if ids := q.Get("user_ids"); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				params.UserIDs = append(params.UserIDs, id)
			}
		}
	}

	users, total, err := h.users.List(r.Context(), params)
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	items := make([]UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toResponse(u))
	}

	totalPages := (total + params.PerPage - 1) / params.PerPage
	httputil.JSON(w, http.StatusOK, ListResponse{
		Items: items,
		Pagination: Pagination{
			TotalItems:  total,
			TotalPages:  totalPages,
			CurrentPage: params.Page,
			PerPage:     params.PerPage,
			HasPrev:     params.Page > 1,
			HasNext:     params.Page < totalPages,
		},
	})
}

// CreateRequest is the body of a user creation request.
type CreateRequest struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Password  string  `json:"password"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	StartDate *string `json:"start_date"`
	Status    *string `json:"status"`
}

// Create creates a new user.
// POST /users
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	user, err := h.accounts.CreateUser(r.Context(), auth.CreateUserParams{
		ID:        req.ID,
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		StartDate: req.StartDate,
		Status:    req.Status,
	})
	if err != nil {
		if !httputil.DomainError(w, err) {
			h.logger.Error("failed to create user", "error", err)
		}
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]string{"success": user.ID})
}

// Get returns a single user by ID.
// GET /users/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !httputil.DomainError(w, err) {
			h.logger.Error("failed to get user", "error", err)
		}
		return
	}
	httputil.JSON(w, http.StatusOK, toResponse(user))
}

// UpdateRequest is the body of a user PATCH. Every field is optional;
// absent fields are left unchanged.
type UpdateRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Status    *string `json:"status"`
	StartDate *string `json:"start_date"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Locked    *bool   `json:"locked"`
	Password  *string `json:"password"`
}

// Update applies an allow-listed field update to a user.
// PATCH /users/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	err := h.accounts.UpdateUser(r.Context(), chi.URLParam(r, "id"), auth.UpdateUserParams{
		Username:  req.Username,
		Email:     req.Email,
		Status:    req.Status,
		StartDate: req.StartDate,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Locked:    req.Locked,
		Password:  req.Password,
	})
	if err != nil {
		if !httputil.DomainError(w, err) {
			h.logger.Error("failed to update user", "error", err)
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Delete removes a user.
// DELETE /users/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		if !httputil.DomainError(w, err) {
			h.logger.Error("failed to delete user", "error", err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MeSummary is the current-identity payload.
type MeSummary struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// Me returns the authenticated caller's own record summary.
// GET /user
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "missing_authorization")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if !httputil.DomainError(w, err) {
			h.logger.Error("failed to get current user", "error", err)
		}
		return
	}

	httputil.JSON(w, http.StatusOK, MeSummary{
		ID:        user.ID,
		Username:  user.Username,
		LastLogin: user.LastLogin,
	})
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
