package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	auditdomain "jobhive/backend/internal/audit/domain"
	auditrepo "jobhive/backend/internal/audit/repository"
	"jobhive/backend/internal/cursor"
	"jobhive/backend/internal/security"
	"jobhive/backend/internal/server/middleware"
	sessiondomain "jobhive/backend/internal/session/domain"
	sessionrepo "jobhive/backend/internal/session/repository"
	userdomain "jobhive/backend/internal/user/domain"
)

// Sentinel errors for the auth service; the handler maps them to outcomes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidRefreshToken    = errors.New("invalid or expired refresh token")
	ErrUnauthenticated        = errors.New("authentication required")
	ErrNotFound               = errors.New("not found")

	// ErrValidation wraps every input validation failure so handlers can map
	// the whole family to a bad request.
	ErrValidation = errors.New("invalid input")
)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AuthResult holds the outcome of Register (user id only), Login, or Refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
	Role         string
	SessionID    string
}

// SessionInfo is one entry in a session listing.
type SessionInfo struct {
	ID         string
	Current    bool
	RememberMe bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// SessionPage is one page of a session listing.
type SessionPage struct {
	Sessions   []SessionInfo
	NextCursor string
	HasMore    bool
}

// ListOptions selects filtering and ordering for the first page of a session
// listing. The zero value gives the defaults: live sessions only, newest
// first. A cursor seals the options it was opened with; on cursor requests
// the sealed values win, so the result set cannot drift between pages.
type ListOptions struct {
	IncludeRevoked bool
	OldestFirst    bool
}

// EventInfo is one entry in an account activity listing.
type EventInfo struct {
	ID        string
	SessionID string
	Action    string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// EventPage is one page of an account activity listing.
type EventPage struct {
	Events     []EventInfo
	NextCursor string
	HasMore    bool
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmailHash(ctx context.Context, emailHash string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	UpdateCredentials(ctx context.Context, userID, passwordHash, securityStamp string, at time.Time) error
	UpdateStatus(ctx context.Context, userID string, status userdomain.UserStatus, at time.Time) error
}

// Sessions is the session lifecycle surface needed by the auth service.
// Satisfied by the session manager.
type Sessions interface {
	Create(ctx context.Context, userID, role string, rememberMe bool) (*sessiondomain.Session, error)
	Refresh(ctx context.Context, sessionID string) (*sessiondomain.Session, error)
	Revoke(ctx context.Context, sessionID string) (bool, error)
	RevokeAllExcept(ctx context.Context, userID, keepID string) (int, error)
	List(ctx context.Context, q sessionrepo.ListQuery) ([]*sessiondomain.Session, error)
}

// AuditLogger records security events, best-effort.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, sessionID, action, metadata string)
}

// AuditReader is the audit history surface behind the account activity
// listing. Satisfied by the audit repository.
type AuditReader interface {
	GetByID(ctx context.Context, id string) (*auditdomain.AuditLog, error)
	List(ctx context.Context, q auditrepo.ListQuery) ([]*auditdomain.AuditLog, error)
}

// AuthService implements register, login, refresh, logout, password change,
// and session listing.
type AuthService struct {
	users    UserRepo
	sessions Sessions
	hasher   *security.Hasher
	emails   *security.EmailHasher
	cipher   *security.FieldCipher
	tokens   *security.TokenProvider
	cursors  *cursor.Protector
	auditor  AuditLogger
	events   AuditReader
}

// NewAuthService returns an AuthService with the given dependencies.
// auditor and events may be nil to disable audit logging and the account
// activity listing.
func NewAuthService(
	users UserRepo,
	sessions Sessions,
	hasher *security.Hasher,
	emails *security.EmailHasher,
	cipher *security.FieldCipher,
	tokens *security.TokenProvider,
	cursors *cursor.Protector,
	auditor AuditLogger,
	events AuditReader,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		emails:   emails,
		cipher:   cipher,
		tokens:   tokens,
		cursors:  cursors,
		auditor:  auditor,
		events:   events,
	}
}

// Register creates a user with the given email, password, and role.
// The plaintext email is stored only as a keyed hash plus ciphertext.
// Returns AuthResult with UserID only; the caller must Login for tokens.
func (s *AuthService) Register(ctx context.Context, email, password string, role userdomain.Role) (*AuthResult, error) {
	email = security.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if role == "" {
		role = userdomain.RoleWorker
	}
	// Admin accounts are provisioned out of band, never self-registered.
	if role == userdomain.RoleAdmin || !userdomain.ValidRole(role) {
		return nil, validationError("invalid role")
	}

	emailHash := s.emails.Hash(email)
	existing, err := s.users.GetByEmailHash(ctx, emailHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}

	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	encrypted, err := s.cipher.Encrypt([]byte(email), userdomain.EmailCipherPurpose)
	if err != nil {
		return nil, err
	}
	stamp, err := security.NewSecurityStamp()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		ID:             uuid.New().String(),
		EmailHash:      emailHash,
		EncryptedEmail: encrypted,
		PasswordHash:   hashed,
		SecurityStamp:  stamp,
		Role:           role,
		Status:         userdomain.UserStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.audit(ctx, user.ID, "", auditdomain.ActionRegister, "")
	return &AuthResult{UserID: user.ID, Role: string(role)}, nil
}

// Login authenticates with email/password, creates a session, and returns
// tokens. Unknown emails, wrong passwords, and disabled accounts all fail
// with the same error.
func (s *AuthService) Login(ctx context.Context, email, password string, rememberMe bool) (*AuthResult, error) {
	email = security.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmailHash(ctx, s.emails.Hash(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active() {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.audit(ctx, user.ID, "", auditdomain.ActionLoginFailure, "")
		return nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user.ID, string(user.Role), rememberMe)
	if err != nil {
		return nil, err
	}
	result, err := s.issueTokens(user, sess.ID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, user.ID, sess.ID, auditdomain.ActionLogin, "")
	return result, nil
}

// Refresh validates the refresh token against the user's current security
// stamp and the backing session, slides the session window if due, and
// returns a fresh token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	claims, err := s.tokens.Validate(refreshToken, security.TokenKindRefresh)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active() {
		return nil, ErrInvalidRefreshToken
	}
	// A rotated stamp invalidates every token minted before the rotation.
	if claims.Stamp != user.SecurityStamp {
		return nil, ErrInvalidRefreshToken
	}
	sess, err := s.sessions.Refresh(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInvalidRefreshToken
	}
	result, err := s.issueTokens(user, sess.ID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, user.ID, sess.ID, auditdomain.ActionTokenRefresh, "")
	return result, nil
}

// Logout revokes the session identified by the request context. Revoking an
// already-revoked session is a no-op.
func (s *AuthService) Logout(ctx context.Context) error {
	userID, _ := middleware.GetUserID(ctx)
	sessionID, ok := middleware.GetSessionID(ctx)
	if !ok || sessionID == "" {
		return ErrUnauthenticated
	}
	revoked, err := s.sessions.Revoke(ctx, sessionID)
	if err != nil {
		return err
	}
	if revoked {
		s.audit(ctx, userID, sessionID, auditdomain.ActionLogout, "")
	}
	return nil
}

// LogoutAll revokes every session of the authenticated user, including the
// current one. Returns the number of sessions revoked.
func (s *AuthService) LogoutAll(ctx context.Context) (int, error) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok || userID == "" {
		return 0, ErrUnauthenticated
	}
	n, err := s.sessions.RevokeAllExcept(ctx, userID, "")
	if err != nil {
		return 0, err
	}
	sessionID, _ := middleware.GetSessionID(ctx)
	s.audit(ctx, userID, sessionID, auditdomain.ActionLogoutAll, "")
	return n, nil
}

// ChangePassword verifies the current password, stores the new hash, rotates
// the security stamp, and revokes every other session. Tokens minted before
// the change stop validating once the stamp rotates, including the caller's
// own, so a fresh pair for the surviving session is returned.
func (s *AuthService) ChangePassword(ctx context.Context, currentPassword, newPassword string) (*AuthResult, error) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok || userID == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active() {
		return nil, ErrUnauthenticated
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(currentPassword)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}
	hashed, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return nil, err
	}
	stamp, err := security.NewSecurityStamp()
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateCredentials(ctx, userID, hashed, stamp, time.Now().UTC()); err != nil {
		return nil, err
	}
	sessionID, _ := middleware.GetSessionID(ctx)
	if _, err := s.sessions.RevokeAllExcept(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	user.PasswordHash = hashed
	user.SecurityStamp = stamp
	result, err := s.issueTokens(user, sessionID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, userID, sessionID, auditdomain.ActionPasswordChange, "")
	return result, nil
}

// ListSessions returns one page of the user's sessions. opts applies to the
// first page only; later pages replay the filter and ordering sealed into the
// cursor. An invalid cursor fails with cursor.ErrInvalidCursor; a cursor at
// the depth ceiling yields an empty final page rather than an error.
func (s *AuthService) ListSessions(ctx context.Context, cursorToken string, limit int, opts ListOptions) (*SessionPage, error) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok || userID == "" {
		return nil, ErrUnauthenticated
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	activeOnly := !opts.IncludeRevoked
	ascending := opts.OldestFirst
	var cur cursor.Cursor
	if cursorToken != "" {
		var err error
		cur, err = s.cursors.Open(cursorToken)
		if err != nil {
			return nil, err
		}
		if s.cursors.Exhausted(cur) {
			return &SessionPage{}, nil
		}
		activeOnly = cur.ActiveOnly
		ascending = cur.Ascending
	}

	q := sessionrepo.ListQuery{
		UserID:         userID,
		ActiveOnly:     activeOnly,
		Ascending:      ascending,
		AfterCreatedAt: cur.CreatedAt,
		AfterID:        cur.ID,
		Limit:          limit + 1,
	}
	sessions, err := s.sessions.List(ctx, q)
	if err != nil {
		return nil, err
	}
	hasMore := len(sessions) > limit
	if hasMore {
		sessions = sessions[:limit]
	}

	currentID, _ := middleware.GetSessionID(ctx)
	page := &SessionPage{HasMore: hasMore}
	for _, sess := range sessions {
		page.Sessions = append(page.Sessions, SessionInfo{
			ID:         sess.ID,
			Current:    sess.ID == currentID,
			RememberMe: sess.RememberMe,
			CreatedAt:  sess.CreatedAt,
			ExpiresAt:  sess.ExpiresAt,
		})
	}
	if hasMore {
		last := sessions[len(sessions)-1]
		next, err := s.cursors.Seal(cursor.Cursor{
			CreatedAt:  last.CreatedAt,
			ID:         last.ID,
			Depth:      cur.Depth + 1,
			ActiveOnly: activeOnly,
			Ascending:  ascending,
		})
		if err != nil {
			return nil, err
		}
		page.NextCursor = next
	}
	return page, nil
}

// ListEvents returns one page of the caller's audit events, newest first.
// Cursor handling matches ListSessions.
func (s *AuthService) ListEvents(ctx context.Context, cursorToken string, limit int) (*EventPage, error) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok || userID == "" {
		return nil, ErrUnauthenticated
	}
	if s.events == nil {
		return &EventPage{}, nil
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var cur cursor.Cursor
	if cursorToken != "" {
		var err error
		cur, err = s.cursors.Open(cursorToken)
		if err != nil {
			return nil, err
		}
		if s.cursors.Exhausted(cur) {
			return &EventPage{}, nil
		}
	}

	logs, err := s.events.List(ctx, auditrepo.ListQuery{
		UserID:         userID,
		AfterCreatedAt: cur.CreatedAt,
		AfterID:        cur.ID,
		Limit:          limit + 1,
	})
	if err != nil {
		return nil, err
	}
	hasMore := len(logs) > limit
	if hasMore {
		logs = logs[:limit]
	}

	page := &EventPage{HasMore: hasMore}
	for _, entry := range logs {
		page.Events = append(page.Events, EventInfo{
			ID:        entry.ID,
			SessionID: entry.SessionID,
			Action:    entry.Action,
			IP:        entry.IP,
			Metadata:  entry.Metadata,
			CreatedAt: entry.CreatedAt,
		})
	}
	if hasMore {
		last := logs[len(logs)-1]
		next, err := s.cursors.Seal(cursor.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
			Depth:     cur.Depth + 1,
		})
		if err != nil {
			return nil, err
		}
		page.NextCursor = next
	}
	return page, nil
}

// GetEvent returns one of the caller's audit events. Events belonging to
// other users read as not found.
func (s *AuthService) GetEvent(ctx context.Context, id string) (*EventInfo, error) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok || userID == "" {
		return nil, ErrUnauthenticated
	}
	if s.events == nil {
		return nil, ErrNotFound
	}
	entry, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.UserID != userID {
		return nil, ErrNotFound
	}
	return &EventInfo{
		ID:        entry.ID,
		SessionID: entry.SessionID,
		Action:    entry.Action,
		IP:        entry.IP,
		Metadata:  entry.Metadata,
		CreatedAt: entry.CreatedAt,
	}, nil
}

// DeactivateAccount disables the caller's account after password confirmation
// and revokes every session. A disabled account stops authenticating
// immediately; reactivation is an operator task.
func (s *AuthService) DeactivateAccount(ctx context.Context, password string) error {
	userID, ok := middleware.GetUserID(ctx)
	if !ok || userID == "" {
		return ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || !user.Active() {
		return ErrUnauthenticated
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	if err := s.users.UpdateStatus(ctx, userID, userdomain.UserStatusDisabled, time.Now().UTC()); err != nil {
		return err
	}
	if _, err := s.sessions.RevokeAllExcept(ctx, userID, ""); err != nil {
		return err
	}
	sessionID, _ := middleware.GetSessionID(ctx)
	s.audit(ctx, userID, sessionID, auditdomain.ActionDeactivate, "")
	return nil
}

// Email decrypts the stored email for display on the caller's own profile.
func (s *AuthService) Email(user *userdomain.User) (string, error) {
	plain, err := s.cipher.Decrypt(user.EncryptedEmail, userdomain.EmailCipherPurpose)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (s *AuthService) issueTokens(user *userdomain.User, sessionID string) (*AuthResult, error) {
	access, _, accessExp, err := s.tokens.Issue(user.ID, string(user.Role), user.SecurityStamp, sessionID, security.TokenKindAccess)
	if err != nil {
		return nil, err
	}
	refresh, _, _, err := s.tokens.Issue(user.ID, string(user.Role), user.SecurityStamp, sessionID, security.TokenKindRefresh)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp,
		UserID:       user.ID,
		Role:         string(user.Role),
		SessionID:    sessionID,
	}, nil
}

func (s *AuthService) audit(ctx context.Context, userID, sessionID, action, metadata string) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogEvent(ctx, userID, sessionID, action, metadata)
}

func validateEmail(email string) error {
	if email == "" {
		return validationError("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return validationError("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 12 {
		return validationError("password must be at least 12 characters")
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper {
		return validationError("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return validationError("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return validationError("password must contain at least one number")
	}
	if !hasSymbol {
		return validationError("password must contain at least one symbol")
	}
	return nil
}
