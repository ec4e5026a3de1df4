package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clockset/accountd/pkg/domain"
)

// AuthCodesRepository handles one-time code persistence.
type AuthCodesRepository struct {
	db *sql.DB
}

// NewAuthCodesRepository creates a new auth codes repository.
func NewAuthCodesRepository(db *sql.DB) *AuthCodesRepository {
	return &AuthCodesRepository{db: db}
}

// CreateTx stores a new code within a transaction.
func (r *AuthCodesRepository) CreateTx(ctx context.Context, tx *sql.Tx, code *domain.AuthCode) error {
	query := `INSERT INTO auth_codes (code, email, created_at) VALUES ($1, $2, $3)`
	_, err := tx.ExecContext(ctx, query, code.Code, code.Email, code.CreatedAt)
	return err
}

// GetByCode retrieves a code by its identifier.
func (r *AuthCodesRepository) GetByCode(ctx context.Context, code string) (*domain.AuthCode, error) {
	query := `SELECT code, email, created_at FROM auth_codes WHERE code = $1`
	ac := &domain.AuthCode{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(&ac.Code, &ac.Email, &ac.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return ac, nil
}

// ExistsByCode checks whether a code identifier is already in use.
func (r *AuthCodesRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM auth_codes WHERE code = $1)`, code).Scan(&exists)
	return exists, err
}

// Delete removes a code. Deleting an already-absent code is not an error.
func (r *AuthCodesRepository) Delete(ctx context.Context, code string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_codes WHERE code = $1`, code)
	return err
}

// DeleteTx removes a code within a transaction.
func (r *AuthCodesRepository) DeleteTx(ctx context.Context, tx *sql.Tx, code string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM auth_codes WHERE code = $1`, code)
	return err
}

// DeleteByEmailTx removes every outstanding code for an email address
// within a transaction.
func (r *AuthCodesRepository) DeleteByEmailTx(ctx context.Context, tx *sql.Tx, email string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM auth_codes WHERE email = $1`, email)
	return err
}
