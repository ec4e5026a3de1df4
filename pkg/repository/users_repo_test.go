package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clockset/accountd/pkg/domain"
)

var userTestColumns = []string{
	"id", "username", "password_hash", "login_attempts", "locked", "status",
	"first_name", "last_name", "email", "start_date", "created_at", "last_login",
}

func testUserRow(mock sqlmock.Sqlmock, id, username string) *sqlmock.Rows {
	return mock.NewRows(userTestColumns).AddRow(
		id, username, "aGFzaA==", 0, false, "Active",
		nil, nil, nil, nil, time.Now().UTC(), nil,
	)
}

func TestGetByUsernameCaseInsensitive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUsersRepository(db)

	// The lookup lowercases both sides; the stored casing comes back intact.
	mock.ExpectQuery(`WHERE LOWER\(username\) = LOWER\(\$1\)`).
		WithArgs("ALICE").
		WillReturnRows(testUserRow(mock, "1001", "Alice"))

	user, err := repo.GetByUsername(context.Background(), "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUsersRepository(db)

	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("9999").
		WillReturnRows(mock.NewRows(userTestColumns))

	_, err = repo.GetByID(context.Background(), "9999")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePasswordHashMissingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUsersRepository(db)

	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("9999", "newhash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdatePasswordHash(context.Background(), "9999", "newhash")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBuildsOnlySetColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUsersRepository(db)
	ctx := context.Background()

	email := "new@example.com"
	status := "Inactive"
	mock.ExpectExec(`UPDATE users SET email = \$2, status = \$3 WHERE id = \$1`).
		WithArgs("1001", email, status).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Update(ctx, "1001", UserUpdate{Email: &email, Status: &status})
	require.NoError(t, err)

	// No set fields means no statement at all.
	require.NoError(t, repo.Update(ctx, "1001", UserUpdate{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateClearsEmailToNull(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUsersRepository(db)

	// An empty string clears the email. NULL is written so two cleared
	// accounts never collide under the unique lower(email) index.
	empty := ""
	mock.ExpectExec(`UPDATE users SET email = \$2 WHERE id = \$1`).
		WithArgs("1001", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Update(context.Background(), "1001", UserUpdate{Email: &empty})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWithSearchAndPagination(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUsersRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE`).
		WithArgs("%ali%").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`ORDER BY username ASC LIMIT \$2 OFFSET \$3`).
		WithArgs("%ali%", 5, 5).
		WillReturnRows(testUserRow(mock, "1001", "alice"))

	users, total, err := repo.List(context.Background(), ListParams{
		Page:       2,
		PerPage:    5,
		SearchTerm: "Ali",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSortFallsBackToUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUsersRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY username DESC`).
		WithArgs(10, 0).
		WillReturnRows(mock.NewRows(userTestColumns))

	// "password_hash" is not a sortable column.
	_, _, err = repo.List(context.Background(), ListParams{
		SortBy:  "password_hash",
		SortDir: "desc",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFiltersByUserIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUsersRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE id IN \(\$1, \$2\)`).
		WithArgs("1001", "1002").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`WHERE id IN \(\$1, \$2\)`).
		WithArgs("1001", "1002", 10, 0).
		WillReturnRows(testUserRow(mock, "1001", "alice").AddRow(
			"1002", "bobby", "aGFzaA==", 0, false, "Active",
			nil, nil, nil, nil, time.Now().UTC(), nil,
		))

	users, total, err := repo.List(context.Background(), ListParams{UserIDs: []string{"1001", "1002"}})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, users, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
