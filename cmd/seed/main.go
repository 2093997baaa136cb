package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"jobhive/backend/internal/config"
	"jobhive/backend/internal/db"
	"jobhive/backend/internal/security"
	userdomain "jobhive/backend/internal/user/domain"
	userrepo "jobhive/backend/internal/user/repository"
)

const devPassword = "DevPassword123!"

// Seeds idempotent development logins through the real credential path:
// hashed email lookup, bcrypt password hash, encrypted email, fresh stamp.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	emails, err := security.NewEmailHasher(mustDecodeKey("EMAIL_HASH_KEY", cfg.EmailHashKey))
	if err != nil {
		log.Fatalf("email hasher: %v", err)
	}
	cipher, err := security.NewFieldCipher(mustDecodeKey("DATA_ENCRYPTION_KEY", cfg.DataKey))
	if err != nil {
		log.Fatalf("field cipher: %v", err)
	}
	hasher := security.NewHasher(cfg.BcryptCost)

	users := userrepo.NewPostgresRepository(database)
	ctx := context.Background()

	seeds := []struct {
		email string
		role  userdomain.Role
	}{
		{"dev-worker@jobhive.local", userdomain.RoleWorker},
		{"dev-employer@jobhive.local", userdomain.RoleEmployer},
		{"dev-admin@jobhive.local", userdomain.RoleAdmin},
	}

	for _, s := range seeds {
		existing, err := users.GetByEmailHash(ctx, emails.Hash(s.email))
		if err != nil {
			log.Fatalf("lookup %s: %v", s.email, err)
		}
		if existing != nil {
			log.Printf("Seed already applied for %s. Skipping.", s.email)
			continue
		}

		passwordHash, err := hasher.Hash([]byte(devPassword))
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		encryptedEmail, err := cipher.Encrypt([]byte(s.email), userdomain.EmailCipherPurpose)
		if err != nil {
			log.Fatalf("encrypt email: %v", err)
		}
		stamp, err := security.NewSecurityStamp()
		if err != nil {
			log.Fatalf("security stamp: %v", err)
		}

		now := time.Now().UTC()
		u := &userdomain.User{
			ID:             uuid.New().String(),
			EmailHash:      emails.Hash(s.email),
			EncryptedEmail: encryptedEmail,
			PasswordHash:   passwordHash,
			SecurityStamp:  stamp,
			Role:           s.role,
			Status:         userdomain.UserStatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := u.Validate(); err != nil {
			log.Fatalf("validate %s: %v", s.email, err)
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create %s: %v", s.email, err)
		}
		log.Printf("seeded %s (%s)", s.email, s.role)
	}

	log.Println("Seed completed successfully.")
	fmt.Println("Dev logins (password for all):", devPassword)
	for _, s := range seeds {
		fmt.Printf("  %-10s %s\n", s.role, s.email)
	}
}

func mustDecodeKey(name, value string) []byte {
	if value == "" {
		log.Fatalf("config: %s must be set", name)
	}
	key, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		log.Fatalf("config: %s is not valid base64: %v", name, err)
	}
	return key
}
