package repository

import (
	"context"
	"time"

	"jobhive/backend/internal/session/domain"
)

// ListQuery selects a page of a user's sessions with keyset pagination.
// AfterCreatedAt/AfterID identify the last row of the previous page; zero
// values start from the beginning. Ascending false orders newest-first.
type ListQuery struct {
	UserID         string
	ActiveOnly     bool
	Ascending      bool
	AfterCreatedAt time.Time
	AfterID        string
	Limit          int
}

// Repository defines persistence for sessions. Implementations return
// (nil, nil) for missing rows and errors only for store failures.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// Update persists the mutable session fields (expiry, revocation,
	// UpdatedAt) as one atomic row write.
	Update(ctx context.Context, s *domain.Session) error
	// Delete removes the row; reports whether a row existed.
	Delete(ctx context.Context, id string) (bool, error)
	// DeleteAllByUser removes every session of the user except keepID
	// (empty keeps none) and returns the deleted ids so callers can evict
	// each corresponding cache entry.
	DeleteAllByUser(ctx context.Context, userID, keepID string) ([]string, error)
	// RevokeAllByUser marks every live session of the user revoked except
	// keepID and returns the affected ids.
	RevokeAllByUser(ctx context.Context, userID, keepID string, at time.Time) ([]string, error)
	// List returns a session page per q, ordered by (created_at, id).
	List(ctx context.Context, q ListQuery) ([]*domain.Session, error)
}
