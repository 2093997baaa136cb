package repository

import (
	"context"
	"database/sql"
	"errors"

	"jobhive/backend/internal/audit/domain"
)

const auditColumns = `id, user_id, session_id, action, ip, trace_id, metadata, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the audit log for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+auditColumns+` FROM audit_logs WHERE id = $1`, id)
	a, err := scanAuditLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// List returns one keyset page of the user's audit events, newest first.
func (r *PostgresRepository) List(ctx context.Context, q ListQuery) ([]*domain.AuditLog, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	after := sql.NullTime{Time: q.AfterCreatedAt, Valid: !q.AfterCreatedAt.IsZero()}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_logs
		 WHERE user_id = $1
		   AND ($2::timestamptz IS NULL OR (created_at, id) < ($2, $3))
		 ORDER BY created_at DESC, id DESC
		 LIMIT $4`, q.UserID, after, q.AfterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		a, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	sid := sql.NullString{String: a.SessionID, Valid: a.SessionID != ""}
	trace := sql.NullString{String: a.TraceID, Valid: a.TraceID != ""}
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (`+auditColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.UserID, sid, a.Action, a.IP, trace, meta, a.CreatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditLog(row rowScanner) (*domain.AuditLog, error) {
	var a domain.AuditLog
	var sid, trace, meta sql.NullString
	err := row.Scan(&a.ID, &a.UserID, &sid, &a.Action, &a.IP, &trace, &meta, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.SessionID = sid.String
	a.TraceID = trace.String
	a.Metadata = meta.String
	return &a, nil
}
