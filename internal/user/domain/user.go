package domain

import (
	"errors"
	"time"
)

// User is the core account entity. The plaintext email is never stored:
// EmailHash is a keyed hash used for lookups and uniqueness, EncryptedEmail
// holds the recoverable ciphertext for display.
type User struct {
	ID             string
	EmailHash      string
	EncryptedEmail []byte
	PasswordHash   string
	SecurityStamp  string
	Role           Role
	Status         UserStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EmailCipherPurpose is the AAD binding email ciphertexts to this field.
const EmailCipherPurpose = "user_email"

type Role string

const (
	RoleWorker   Role = "worker"
	RoleEmployer Role = "employer"
	RoleAdmin    Role = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleWorker, RoleEmployer, RoleAdmin:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.EmailHash == "" {
		return errors.New("email hash is required")
	}
	if len(u.EncryptedEmail) == 0 {
		return errors.New("encrypted email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if u.SecurityStamp == "" {
		return errors.New("security stamp is required")
	}
	if !ValidRole(u.Role) {
		return errors.New("unknown role")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// Active reports whether the account may authenticate.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}
