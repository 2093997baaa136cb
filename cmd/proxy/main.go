package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobhive/backend/internal/cache"
	"jobhive/backend/internal/config"
	"jobhive/backend/internal/db"
	"jobhive/backend/internal/security"
	sessionrepo "jobhive/backend/internal/session/repository"
	sessionservice "jobhive/backend/internal/session/service"
	"jobhive/backend/internal/telemetry/otel"
	"jobhive/backend/internal/trust"
)

// The edge proxy terminates client traffic, swaps bearer tokens for signed
// internal identity assertions, and forwards everything to the API upstream.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "jobhive-edge", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	upstream, err := url.Parse(cfg.ProxyUpstream)
	if err != nil {
		log.Fatalf("config: PROXY_UPSTREAM: %v", err)
	}

	signingKey, err := security.ParseRSAPrivateKey(cfg.InternalSigningKey)
	if err != nil {
		log.Fatalf("internal signing key: %v", err)
	}
	signer, err := trust.NewSigner(signingKey, cfg.AssertionTTL())
	if err != nil {
		log.Fatalf("trust signer: %v", err)
	}

	tokens, err := security.NewTokenProvider(mustDecodeKey("TOKEN_SECRET", cfg.TokenSecret), cfg.TokenIssuer, cfg.TokenAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

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

	sender := trust.NewSender(signer, tokens, sessions)
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
			sender.Decorate(pr.Out)
		},
	}

	srv := &http.Server{
		Addr:              cfg.ProxyAddr,
		Handler:           proxy,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("edge proxy listening on %s, upstream %s", cfg.ProxyAddr, cfg.ProxyUpstream)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down edge proxy...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("edge proxy stopped")
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
