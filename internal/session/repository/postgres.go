package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"jobhive/backend/internal/session/domain"
)

// PostgresRepository persists sessions in the sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, role, remember_me, created_at, updated_at, expires_at, absolute_expires_at, revoked_at`

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.Role, s.RememberMe,
		s.CreatedAt, s.UpdatedAt, s.ExpiresAt, s.AbsoluteExpiresAt,
		timeToNullTime(s.RevokedAt),
	)
	return err
}

// Update writes the mutable fields of the row in a single statement, so a
// refresh or revoke is one atomic store operation.
func (r *PostgresRepository) Update(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions
		 SET updated_at = $2, expires_at = $3, revoked_at = $4
		 WHERE id = $1`,
		s.ID, s.UpdatedAt, s.ExpiresAt, timeToNullTime(s.RevokedAt),
	)
	return err
}

// Delete removes the session row and reports whether it existed.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAllByUser removes the user's sessions except keepID and returns the
// deleted ids for cache eviction.
func (r *PostgresRepository) DeleteAllByUser(ctx context.Context, userID, keepID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND id <> $2 RETURNING id`,
		userID, keepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

// RevokeAllByUser marks the user's live sessions revoked except keepID and
// returns the affected ids.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID, keepID string, at time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE sessions
		 SET revoked_at = $3, updated_at = $3
		 WHERE user_id = $1 AND id <> $2 AND revoked_at IS NULL
		 RETURNING id`,
		userID, keepID, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

// List returns one keyset page of the user's sessions.
func (r *PostgresRepository) List(ctx context.Context, q ListQuery) ([]*domain.Session, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	var (
		rows *sql.Rows
		err  error
	)
	if q.Ascending {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+sessionColumns+` FROM sessions
			 WHERE user_id = $1
			   AND (NOT $2::bool OR (revoked_at IS NULL AND expires_at > now() AND absolute_expires_at > now()))
			   AND ($3::timestamptz IS NULL OR (created_at, id) > ($3, $4))
			 ORDER BY created_at ASC, id ASC
			 LIMIT $5`,
			q.UserID, q.ActiveOnly, zeroTimeToNull(q.AfterCreatedAt), q.AfterID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+sessionColumns+` FROM sessions
			 WHERE user_id = $1
			   AND (NOT $2::bool OR (revoked_at IS NULL AND expires_at > now() AND absolute_expires_at > now()))
			   AND ($3::timestamptz IS NULL OR (created_at, id) < ($3, $4))
			 ORDER BY created_at DESC, id DESC
			 LIMIT $5`,
			q.UserID, q.ActiveOnly, zeroTimeToNull(q.AfterCreatedAt), q.AfterID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s       domain.Session
		revoked sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.Role, &s.RememberMe,
		&s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt, &s.AbsoluteExpiresAt,
		&revoked,
	)
	if err != nil {
		return nil, err
	}
	s.RevokedAt = nullTimeToPtr(revoked)
	return &s, nil
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func zeroTimeToNull(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
