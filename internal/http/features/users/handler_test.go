package users

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clockset/accountd/internal/http/middleware"
	"github.com/clockset/accountd/pkg/auth"
	"github.com/clockset/accountd/pkg/repository"
)

var userColumns = []string{
	"id", "username", "password_hash", "login_attempts", "locked", "status",
	"first_name", "last_name", "email", "start_date", "created_at", "last_login",
}

func newFixture(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	usersRepo := repository.NewUsersRepository(db)
	h := NewHandler(logger, usersRepo, auth.NewAccountService(logger, usersRepo, auth.NewCredentialService(usersRepo)))

	r := chi.NewRouter()
	r.Get("/users", h.List)
	r.Post("/users", h.Create)
	r.Get("/users/{id}", h.Get)
	r.Patch("/users/{id}", h.Update)
	r.Delete("/users/{id}", h.Delete)
	r.Get("/user", h.Me)
	return r, mock
}

func TestGetUserOmitsPasswordHash(t *testing.T) {
	router, mock := newFixture(t)

	email := "alice@example.com"
	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("1001").
		WillReturnRows(mock.NewRows(userColumns).AddRow(
			"1001", "alice", "c2VjcmV0aGFzaA==", 2, false, "Active",
			"Alice", "Smith", email, "2024-01-15", time.Now().UTC(), nil,
		))

	r := httptest.NewRequest(http.MethodGet, "/users/1001", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "c2VjcmV0aGFzaA==")
	assert.NotContains(t, w.Body.String(), "password_hash")

	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, 2, resp.LoginAttempts)
	require.NotNil(t, resp.Email)
	assert.Equal(t, email, *resp.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnknownUser(t *testing.T) {
	router, mock := newFixture(t)

	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("9999").
		WillReturnRows(mock.NewRows(userColumns))

	r := httptest.NewRequest(http.MethodGet, "/users/9999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "user_not_found")
}

func TestListPaginationMetadata(t *testing.T) {
	router, mock := newFixture(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(23))
	mock.ExpectQuery("ORDER BY username ASC").
		WithArgs(10, 10).
		WillReturnRows(mock.NewRows(userColumns).AddRow(
			"1001", "alice", "aGFzaA==", 0, false, "Active",
			nil, nil, nil, nil, time.Now().UTC(), nil,
		))

	r := httptest.NewRequest(http.MethodGet, "/users?page=2&per_page=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 23, resp.Pagination.TotalItems)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.Equal(t, 2, resp.Pagination.CurrentPage)
	assert.True(t, resp.Pagination.HasPrev)
	assert.True(t, resp.Pagination.HasNext)
	require.Len(t, resp.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateValidationErrors(t *testing.T) {
	router, _ := newFixture(t)

	tests := []struct {
		name   string
		body   string
		status int
		reason string
	}{
		{"malformed body", "{", http.StatusBadRequest, "invalid_request_body"},
		{"missing id", `{"username":"alice"}`, http.StatusBadRequest, "missing_required_fields"},
		{"non-numeric id", `{"id":"10x1","username":"alice"}`, http.StatusBadRequest, "user_id_not_numeric"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.reason)
		})
	}
}

func TestCreateReturnsNewID(t *testing.T) {
	router, mock := newFixture(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("1001").
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("alice", "1001").
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := httptest.NewRequest(http.MethodPost, "/users",
		strings.NewReader(`{"id":"1001","username":"alice","password":"secret"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":"1001"}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser(t *testing.T) {
	router, mock := newFixture(t)

	mock.ExpectExec("DELETE FROM users WHERE id").
		WithArgs("1001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := httptest.NewRequest(http.MethodDelete, "/users/1001", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeReturnsCallerIdentity(t *testing.T) {
	router, mock := newFixture(t)

	lastLogin := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("1001").
		WillReturnRows(mock.NewRows(userColumns).AddRow(
			"1001", "alice", "aGFzaA==", 0, false, "Active",
			nil, nil, nil, nil, time.Now().UTC(), lastLogin,
		))

	r := httptest.NewRequest(http.MethodGet, "/user", nil)
	r = r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, "1001"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var me MeSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.Username)
	require.NotNil(t, me.LastLogin)
	assert.True(t, me.LastLogin.Equal(lastLogin))
	assert.NoError(t, mock.ExpectationsWereMet())
}
