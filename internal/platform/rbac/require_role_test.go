package rbac

import (
	"context"
	"testing"

	"jobhive/backend/internal/platform/outcome"
	"jobhive/backend/internal/server/middleware"
	"jobhive/backend/internal/user/domain"
)

func TestRequireAuthenticated_Success(t *testing.T) {
	ctx := middleware.WithIdentity(context.Background(), "user-1", "worker", "session-1")

	userID, sessionID, res := RequireAuthenticated(ctx)
	if !res.OK {
		t.Fatalf("RequireAuthenticated failed: %v", res.Message)
	}
	if userID != "user-1" || sessionID != "session-1" {
		t.Errorf("got (%q, %q)", userID, sessionID)
	}
}

func TestRequireAuthenticated_MissingIdentity(t *testing.T) {
	_, _, res := RequireAuthenticated(context.Background())
	if res.OK {
		t.Fatal("expected failure on anonymous context")
	}
	if res.Kind != outcome.KindUnauthenticated {
		t.Errorf("kind = %q, want %q", res.Kind, outcome.KindUnauthenticated)
	}
}

func TestRequireRole_Allowed(t *testing.T) {
	ctx := middleware.WithIdentity(context.Background(), "user-1", "employer", "session-1")

	userID, res := RequireRole(ctx, domain.RoleWorker, domain.RoleEmployer)
	if !res.OK {
		t.Fatalf("RequireRole failed: %v", res.Message)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q", userID)
	}
}

func TestRequireRole_Mismatch(t *testing.T) {
	ctx := middleware.WithIdentity(context.Background(), "user-1", "worker", "session-1")

	_, res := RequireRole(ctx, domain.RoleAdmin)
	if res.OK {
		t.Fatal("worker must not pass an admin-only guard")
	}
	if res.Kind != outcome.KindRoleMismatch {
		t.Errorf("kind = %q, want %q", res.Kind, outcome.KindRoleMismatch)
	}
	if res.HTTPStatus() != 403 {
		t.Errorf("status = %d, want 403", res.HTTPStatus())
	}
}

func TestRequireRole_Unauthenticated(t *testing.T) {
	_, res := RequireRole(context.Background(), domain.RoleWorker)
	if res.OK || res.Kind != outcome.KindUnauthenticated {
		t.Fatalf("res = %+v, want unauthenticated failure", res)
	}
	if res.HTTPStatus() != 401 {
		t.Errorf("status = %d, want 401", res.HTTPStatus())
	}
}
