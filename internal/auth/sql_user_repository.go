package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// sqlUserRow mirrors the users table for sqlx's StructScan.
type sqlUserRow struct {
	ID           uint64         `db:"id"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	Salt         string         `db:"salt"`
	Status       string         `db:"status"`
	Roles        pq.StringArray `db:"roles"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r sqlUserRow) toRecord() UserRecord {
	return UserRecord{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Salt:         r.Salt,
		Status:       UserStatus(r.Status),
		Roles:        []string(r.Roles),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// SQLUserRepository is the production IUserRepository, backed by the
// "users" table in PostgreSQL via sqlx and lib/pq.
type SQLUserRepository struct {
	db *sqlx.DB
}

// NewSQLUserRepository wraps an open *sqlx.DB (see
// internal/platform/database.Open).
func NewSQLUserRepository(db *sqlx.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

func (r *SQLUserRepository) FindByID(ctx context.Context, id uint64) (*UserRecord, error) {
	var row sqlUserRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, username, email, password_hash, salt, status, roles, created_at, updated_at
		FROM users WHERE id = $1`, id)
	return rowOrNil(row, err)
}

func (r *SQLUserRepository) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	var row sqlUserRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, username, email, password_hash, salt, status, roles, created_at, updated_at
		FROM users WHERE username = $1`, username)
	return rowOrNil(row, err)
}

func (r *SQLUserRepository) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	var row sqlUserRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, username, email, password_hash, salt, status, roles, created_at, updated_at
		FROM users WHERE lower(email) = lower($1)`, email)
	return rowOrNil(row, err)
}

func (r *SQLUserRepository) Create(ctx context.Context, record UserRecord) (uint64, error) {
	if record.Status == "" {
		record.Status = UserStatusActive
	}
	if len(record.Roles) == 0 {
		record.Roles = []string{"player"}
	}

	var id uint64
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO users (username, email, password_hash, salt, status, roles)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		record.Username, record.Email, record.PasswordHash, record.Salt,
		string(record.Status), pq.StringArray(record.Roles),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (r *SQLUserRepository) Update(ctx context.Context, record UserRecord) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, salt = $5,
		    status = $6, roles = $7, updated_at = now()
		WHERE id = $1`,
		record.ID, record.Username, record.Email, record.PasswordHash, record.Salt,
		string(record.Status), pq.StringArray(record.Roles),
	)
	if err != nil {
		return false, fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func rowOrNil(row sqlUserRow, err error) (*UserRecord, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	rec := row.toRecord()
	return &rec, nil
}
