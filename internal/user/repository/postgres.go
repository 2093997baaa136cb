package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"jobhive/backend/internal/user/domain"
)

const userColumns = `id, email_hash, encrypted_email, password_hash, security_stamp, role, status, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmailHash returns the user whose keyed email hash matches, or nil if
// not found. Lookups never touch the plaintext email.
func (r *PostgresRepository) GetByEmailHash(ctx context.Context, emailHash string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_hash = $1`, emailHash)
	return scanUser(row)
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.EmailHash, u.EncryptedEmail, u.PasswordHash, u.SecurityStamp,
		string(u.Role), string(u.Status), u.CreatedAt, u.UpdatedAt)
	return err
}

// UpdateCredentials replaces the password hash and rotates the security stamp
// in one statement.
func (r *PostgresRepository) UpdateCredentials(ctx context.Context, userID, passwordHash, securityStamp string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, security_stamp = $3, updated_at = $4 WHERE id = $1`,
		userID, passwordHash, securityStamp, at)
	return err
}

// UpdateStatus sets the account status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, userID string, status domain.UserStatus, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = $2, updated_at = $3 WHERE id = $1`,
		userID, string(status), at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var role, status string
	err := row.Scan(&u.ID, &u.EmailHash, &u.EncryptedEmail, &u.PasswordHash,
		&u.SecurityStamp, &role, &status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	u.Status = domain.UserStatus(status)
	return &u, nil
}
