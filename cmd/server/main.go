package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobhive/backend/internal/audit"
	auditrepo "jobhive/backend/internal/audit/repository"
	"jobhive/backend/internal/cache"
	"jobhive/backend/internal/config"
	"jobhive/backend/internal/cursor"
	"jobhive/backend/internal/db"
	identityservice "jobhive/backend/internal/identity/service"
	"jobhive/backend/internal/security"
	"jobhive/backend/internal/server"
	"jobhive/backend/internal/server/middleware"
	sessionrepo "jobhive/backend/internal/session/repository"
	sessionservice "jobhive/backend/internal/session/service"
	"jobhive/backend/internal/telemetry/otel"
	"jobhive/backend/internal/trust"
	userrepo "jobhive/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "jobhive-trust", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	redisClient, err := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	var sessionCache *cache.Store
	if redisClient != nil {
		sessionCache = cache.New(redisClient, "jobhive")
	}

	sessions := sessionservice.NewManager(sessionrepo.NewPostgresRepository(database), sessionCache, sessionservice.Config{
		SlidingTTL:          cfg.SlidingTTL(false),
		RememberSlidingTTL:  cfg.SlidingTTL(true),
		AbsoluteTTL:         cfg.AbsoluteTTL(false),
		RememberAbsoluteTTL: cfg.AbsoluteTTL(true),
		RefreshTriggerPct:   cfg.SessionRefreshTriggerPct,
		CacheCeiling:        cfg.CacheCeiling(),
	})

	tokens, err := security.NewTokenProvider(mustDecodeKey("TOKEN_SECRET", cfg.TokenSecret), cfg.TokenIssuer, cfg.TokenAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	emails, err := security.NewEmailHasher(mustDecodeKey("EMAIL_HASH_KEY", cfg.EmailHashKey))
	if err != nil {
		log.Fatalf("email hasher: %v", err)
	}
	cipher, err := security.NewFieldCipher(mustDecodeKey("DATA_ENCRYPTION_KEY", cfg.DataKey))
	if err != nil {
		log.Fatalf("field cipher: %v", err)
	}
	cursors, err := cursor.NewProtector(mustDecodeKey("CURSOR_HMAC_KEY", cfg.CursorKey), cfg.CursorMaxDepth)
	if err != nil {
		log.Fatalf("cursors: %v", err)
	}

	auditRepo := auditrepo.NewPostgresRepository(database)
	auditor := audit.NewLogger(auditRepo, func(ctx context.Context) string {
		ip, ok := middleware.GetClientIP(ctx)
		if !ok {
			return "unknown"
		}
		return ip
	})

	var receiver *trust.Receiver
	if cfg.InternalVerifyKey != "" {
		pub, err := security.ParseRSAPublicKey(cfg.InternalVerifyKey)
		if err != nil {
			log.Fatalf("internal verify key: %v", err)
		}
		verifier, err := trust.NewVerifier(pub)
		if err != nil {
			log.Fatalf("trust verifier: %v", err)
		}
		receiver = trust.NewReceiver(verifier)
	}

	users := userrepo.NewPostgresRepository(database)
	authService := identityservice.NewAuthService(
		users,
		sessions,
		security.NewHasher(cfg.BcryptCost),
		emails,
		cipher,
		tokens,
		cursors,
		auditor,
		auditRepo,
	)

	router := server.NewRouter(server.Deps{
		Auth:          authService,
		Tokens:        tokens,
		Sessions:      sessions,
		DB:            database,
		Cache:         sessionCache,
		Users:         users,
		Cipher:        cipher,
		TrustReceiver: receiver,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
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
