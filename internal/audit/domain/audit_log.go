package domain

import "time"

// AuditLog represents one security-relevant event on an account.
type AuditLog struct {
	ID        string
	UserID    string
	SessionID string
	Action    string
	IP        string
	TraceID   string
	Metadata  string
	CreatedAt time.Time
}

// Actions recorded by the auth and session code paths.
const (
	ActionRegister       = "register"
	ActionLogin          = "login"
	ActionLoginFailure   = "login_failure"
	ActionTokenRefresh   = "token_refresh"
	ActionLogout         = "logout"
	ActionLogoutAll      = "logout_all"
	ActionPasswordChange = "password_change"
	ActionDeactivate     = "account_deactivate"
)
