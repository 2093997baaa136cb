package repository

import (
	"context"
	"time"

	"jobhive/backend/internal/audit/domain"
)

// ListQuery selects one keyset page of a user's audit events, newest first.
// AfterCreatedAt/AfterID identify the last row of the previous page; zero
// values start from the newest event.
type ListQuery struct {
	UserID         string
	AfterCreatedAt time.Time
	AfterID        string
	Limit          int
}

// Repository defines persistence for audit logs.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.AuditLog, error)
	// List returns an audit event page per q, ordered by (created_at, id)
	// descending.
	List(ctx context.Context, q ListQuery) ([]*domain.AuditLog, error)
	Create(ctx context.Context, a *domain.AuditLog) error
}
