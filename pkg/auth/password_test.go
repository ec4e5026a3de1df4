package auth

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clockset/accountd/pkg/domain"
	"github.com/clockset/accountd/pkg/repository"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	// Stored form is base64 of the raw bcrypt hash bytes.
	raw, err := base64.StdEncoding.DecodeString(hash)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "$2a$")

	assert.True(t, VerifyPassword("correct horse", hash))
	assert.False(t, VerifyPassword("wrong horse", hash))
}

func TestVerifyPasswordCorruptHash(t *testing.T) {
	assert.False(t, VerifyPassword("anything", "!!!not-base64!!!"))
	assert.False(t, VerifyPassword("anything", base64.StdEncoding.EncodeToString([]byte("not a bcrypt hash"))))
	assert.False(t, VerifyPassword("anything", ""))
}

func TestSetPasswordTooShort(t *testing.T) {
	svc := NewCredentialService(nil)
	err := svc.SetPassword(context.Background(), "1001", "abcd")
	assert.ErrorIs(t, err, domain.ErrPasswordTooShort)
}

func TestVerifyIncrementsAndLocks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewCredentialService(repository.NewUsersRepository(db))

	hash, err := HashPassword("letmein")
	require.NoError(t, err)

	user := &domain.User{ID: "1001", Username: "alice", PasswordHash: hash, LoginAttempts: 3}

	// Fourth failure increments but does not lock.
	mock.ExpectExec("UPDATE users SET login_attempts").
		WithArgs("1001", 4, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := svc.Verify(context.Background(), user, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 4, user.LoginAttempts)
	assert.False(t, user.Locked)

	// Fifth failure reaches the threshold and locks the account.
	mock.ExpectExec("UPDATE users SET login_attempts").
		WithArgs("1001", 5, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err = svc.Verify(context.Background(), user, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, user.Locked)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifySuccessResetsCounterButNotLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewCredentialService(repository.NewUsersRepository(db))

	hash, err := HashPassword("letmein")
	require.NoError(t, err)

	user := &domain.User{ID: "1001", Username: "alice", PasswordHash: hash, LoginAttempts: 5, Locked: true}

	// Counter resets; the lock flag stays up even on a correct password.
	mock.ExpectExec("UPDATE users SET login_attempts").
		WithArgs("1001", 0, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := svc.Verify(context.Background(), user, "letmein")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, user.LoginAttempts)
	assert.True(t, user.Locked)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewCredentialService(repository.NewUsersRepository(db))
	ctx := context.Background()

	assert.ErrorIs(t, svc.CheckUsername(ctx, "bob", ""), domain.ErrUsernameTooShort)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("alice", "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	assert.ErrorIs(t, svc.CheckUsername(ctx, "alice", ""), domain.ErrUsernameTaken)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("carol", "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	assert.NoError(t, svc.CheckUsername(ctx, "carol", ""))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckEmailEmptyAllowed(t *testing.T) {
	svc := NewCredentialService(nil)
	assert.NoError(t, svc.CheckEmail(context.Background(), "", "1001"))
}
