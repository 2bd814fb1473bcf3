package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func newSQLMockRepo(t *testing.T) (*SQLUserRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewSQLUserRepository(sqlxDB), mock, func() { db.Close() }
}

func TestSQLUserRepository_FindByUsername_NotFound(t *testing.T) {
	repo, mock, closeDB := newSQLMockRepo(t)
	defer closeDB()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE username").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(nil))

	rec, err := repo.FindByUsername(context.Background(), "ghost")
	require.NoError(t, err)
	require.Nil(t, rec)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUserRepository_FindByUsername_Found(t *testing.T) {
	repo, mock, closeDB := newSQLMockRepo(t)
	defer closeDB()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "salt", "status", "roles", "created_at", "updated_at"}).
		AddRow(uint64(1), "alice", "alice@example.com", "hash", "salt", "active", pq.StringArray{"player"}, now, now)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE username").
		WithArgs("alice").
		WillReturnRows(rows)

	rec, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "alice", rec.Username)
	require.Equal(t, UserStatusActive, rec.Status)
	require.Equal(t, []string{"player"}, rec.Roles)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUserRepository_Create(t *testing.T) {
	repo, mock, closeDB := newSQLMockRepo(t)
	defer closeDB()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("bob", "bob@example.com", "hash", "salt", "active", pq.StringArray{"player"}).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uint64(42)))

	id, err := repo.Create(context.Background(), UserRecord{
		Username:     "bob",
		Email:        "bob@example.com",
		PasswordHash: "hash",
		Salt:         "salt",
		Status:       UserStatusActive,
		Roles:        []string{"player"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 42, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUserRepository_Update(t *testing.T) {
	repo, mock, closeDB := newSQLMockRepo(t)
	defer closeDB()

	mock.ExpectExec("UPDATE users").
		WithArgs(uint64(1), "alice", "alice@example.com", "hash", "salt", "suspended", pq.StringArray{"player"}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Update(context.Background(), UserRecord{
		ID: 1, Username: "alice", Email: "alice@example.com",
		PasswordHash: "hash", Salt: "salt", Status: UserStatusSuspended,
		Roles: []string{"player"},
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
