package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clockset/accountd/pkg/domain"
)

const userColumns = `id, username, password_hash, login_attempts, locked, status,
	       first_name, last_name, email, start_date, created_at, last_login`

// UsersRepository handles user persistence.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.LoginAttempts,
		&user.Locked, &user.Status, &user.FirstName, &user.LastName,
		&user.Email, &user.StartDate, &user.CreatedAt, &user.LastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create creates a new user.
func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, login_attempts, locked, status,
		                   first_name, last_name, email, start_date, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.LoginAttempts,
		user.Locked, user.Status, user.FirstName, user.LastName,
		user.Email, user.StartDate, user.CreatedAt, user.LastLogin,
	)
	return err
}

// GetByID retrieves a user by ID.
func (r *UsersRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsername retrieves a user by username, matched case-insensitively.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

// GetByEmail retrieves a user by email, matched case-insensitively.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// ExistsByID checks whether a user with the given ID exists.
func (r *UsersRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// UsernameInUse checks whether a username is bound to a different user.
// The excluded ID lets a record keep its own username unchanged.
func (r *UsersRepository) UsernameInUse(ctx context.Context, username, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1) AND id <> $2)`,
		username, excludeID).Scan(&exists)
	return exists, err
}

// EmailInUse checks whether an email is bound to a different user.
func (r *UsersRepository) EmailInUse(ctx context.Context, email, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2)`,
		email, excludeID).Scan(&exists)
	return exists, err
}

// SetLoginState persists the login attempt counter and lock flag.
func (r *UsersRepository) SetLoginState(ctx context.Context, id string, attempts int, locked bool) error {
	query := `UPDATE users SET login_attempts = $2, locked = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, attempts, locked)
	return err
}

// UpdateLastLogin stamps the user's last successful authentication time.
func (r *UsersRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET last_login = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, at)
	return err
}

// UpdatePasswordHash replaces the stored password hash.
func (r *UsersRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.execUpdateHash(ctx, r.db.ExecContext, id, hash)
}

// UpdatePasswordHashTx replaces the stored password hash within a transaction.
func (r *UsersRepository) UpdatePasswordHashTx(ctx context.Context, tx *sql.Tx, id, hash string) error {
	return r.execUpdateHash(ctx, tx.ExecContext, id, hash)
}

type execFunc func(ctx context.Context, query string, args ...any) (sql.Result, error)

func (r *UsersRepository) execUpdateHash(ctx context.Context, exec execFunc, id, hash string) error {
	result, err := exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UserUpdate names the fields a caller may change on a user record. Each
// field is independently optional; nil means "leave unchanged".
type UserUpdate struct {
	Username  *string
	Email     *string
	Status    *string
	StartDate *string
	FirstName *string
	LastName  *string
	Locked    *bool
}

// Update applies the set fields of a UserUpdate one column at a time.
// Clearing the lock also resets the attempt counter.
func (r *UsersRepository) Update(ctx context.Context, id string, upd UserUpdate) error {
	set := []string{}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Username != nil {
		add("username", *upd.Username)
	}
	if upd.Email != nil {
		// An empty string clears the email. NULL keeps the row out of
		// the unique lower(email) index.
		if *upd.Email == "" {
			add("email", nil)
		} else {
			add("email", *upd.Email)
		}
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.StartDate != nil {
		add("start_date", *upd.StartDate)
	}
	if upd.FirstName != nil {
		add("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		add("last_name", *upd.LastName)
	}
	if upd.Locked != nil {
		add("locked", *upd.Locked)
		if !*upd.Locked {
			set = append(set, "login_attempts = 0")
		}
	}

	if len(set) == 0 {
		return nil
	}

	query := `UPDATE users SET ` + strings.Join(set, ", ") + ` WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete permanently deletes a user.
func (r *UsersRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ListParams controls pagination, filtering, and ordering of the user list.
type ListParams struct {
	Page       int
	PerPage    int
	SearchTerm string
	UserIDs    []string
	SortBy     string
	SortDir    string
}

// Columns the list endpoint may sort by. Anything else falls back to username.
var sortableColumns = map[string]bool{
	"id":         true,
	"username":   true,
	"email":      true,
	"status":     true,
	"first_name": true,
	"last_name":  true,
}

// List returns a page of users plus the total number of matches.
func (r *UsersRepository) List(ctx context.Context, params ListParams) ([]*domain.User, int, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = 10
	}

	where := []string{}
	args := []any{}

	if len(params.UserIDs) > 0 {
		placeholders := make([]string, len(params.UserIDs))
		for i, id := range params.UserIDs {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		where = append(where, "id IN ("+strings.Join(placeholders, ", ")+")")
	}

	if params.SearchTerm != "" {
		args = append(args, "%"+strings.ToLower(params.SearchTerm)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			`(LOWER(username) LIKE $%d OR LOWER(COALESCE(email, '')) LIKE $%d OR LOWER(id) LIKE $%d
			  OR LOWER(COALESCE(first_name, '')) LIKE $%d OR LOWER(COALESCE(last_name, '')) LIKE $%d)`,
			n, n, n, n, n))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM users` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortBy := params.SortBy
	if !sortableColumns[sortBy] {
		sortBy = "username"
	}
	direction := "ASC"
	if params.SortDir == "desc" {
		direction = "DESC"
	}

	args = append(args, params.PerPage, (params.Page-1)*params.PerPage)
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, sortBy, direction, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user := &domain.User{}
		err := rows.Scan(
			&user.ID, &user.Username, &user.PasswordHash, &user.LoginAttempts,
			&user.Locked, &user.Status, &user.FirstName, &user.LastName,
			&user.Email, &user.StartDate, &user.CreatedAt, &user.LastLogin,
		)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}
