package repository

import (
	"context"
	"time"

	"jobhive/backend/internal/user/domain"
)

// Repository is the persistence boundary for users. Implementations return
// (nil, nil) for missing rows and reserve errors for storage failures.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmailHash(ctx context.Context, emailHash string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// UpdateCredentials replaces the password hash and security stamp in a
	// single statement so token invalidation cannot observe a half-applied
	// change.
	UpdateCredentials(ctx context.Context, userID, passwordHash, securityStamp string, at time.Time) error
	UpdateStatus(ctx context.Context, userID string, status domain.UserStatus, at time.Time) error
}
