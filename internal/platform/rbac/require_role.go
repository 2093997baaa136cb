package rbac

import (
	"context"

	"jobhive/backend/internal/platform/outcome"
	"jobhive/backend/internal/server/middleware"
	"jobhive/backend/internal/user/domain"
)

// RequireAuthenticated ensures the request carries a resolved identity.
// Returns (userID, sessionID, success) on success; an unauthenticated
// outcome otherwise.
func RequireAuthenticated(ctx context.Context) (userID, sessionID string, res outcome.Result) {
	userID, okUser := middleware.GetUserID(ctx)
	sessionID, okSession := middleware.GetSessionID(ctx)
	if !okUser || userID == "" || !okSession || sessionID == "" {
		return "", "", outcome.Unauthenticated("authentication required")
	}
	return userID, sessionID, outcome.Success(nil)
}

// RequireRole ensures the caller is authenticated and holds one of the
// allowed roles. Role comparison is exact string equality against the
// session's role claim; there is no role hierarchy.
func RequireRole(ctx context.Context, allowed ...domain.Role) (userID string, res outcome.Result) {
	userID, _, res = RequireAuthenticated(ctx)
	if !res.OK {
		return "", res
	}
	role, ok := middleware.GetRole(ctx)
	if !ok || role == "" {
		return "", outcome.Unauthenticated("authentication required")
	}
	for _, a := range allowed {
		if domain.Role(role) == a {
			return userID, outcome.Success(nil)
		}
	}
	return "", outcome.RoleMismatch("insufficient role")
}
