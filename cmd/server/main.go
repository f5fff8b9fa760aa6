package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"learngate/internal/accounts"
	"learngate/internal/catalog"
	"learngate/internal/config"
	"learngate/internal/enrollment"
	"learngate/internal/ordering"
	"learngate/internal/progress"
	"learngate/internal/ratelimit"
	"learngate/internal/server"
	"learngate/internal/util"
	"learngate/pkg/events"
	"learngate/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}
	if sessionTTL == 0 {
		sessionTTL = 24 * time.Hour
	}

	logger := util.InitLogger(cfg.LogLevel)

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init postgres store: %v", err)
	}

	// Redis-backed sessions are revocable on logout; without Redis the
	// service falls back to stateless JWT sessions.
	var sessions store.SessionStore
	if cfg.RedisAddr != "" {
		sessions = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, sessionTTL)
	} else {
		sessions = store.NewJWTSessionStore(cfg.JWTSecret, sessionTTL)
	}

	var authLimiter, writeLimiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" {
		if cfg.AuthRateLimitPerMinute > 0 {
			authLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
				cfg.RedisAddr, cfg.RedisPassword, "learngate:ratelimit:auth",
				cfg.AuthRateLimitPerMinute, time.Minute)
			if err != nil {
				log.Fatalf("failed to init auth rate limiter: %v", err)
			}
		}
		if cfg.WriteRateLimitPerMinute > 0 {
			writeLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
				cfg.RedisAddr, cfg.RedisPassword, "learngate:ratelimit:write",
				cfg.WriteRateLimitPerMinute, time.Minute)
			if err != nil {
				log.Fatalf("failed to init write rate limiter: %v", err)
			}
		}
	}

	var eventStream *events.Stream
	if cfg.RedisAddr != "" {
		eventStream, err = events.NewStream(cfg.RedisAddr, cfg.RedisPassword, "learngate:events", 0)
		if err != nil {
			log.Fatalf("failed to init event stream: %v", err)
		}
	}

	proxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	httpServer := server.New(server.Config{
		Store:        dataStore,
		Accounts:     accounts.New(dataStore, sessions),
		Catalog:      catalog.New(dataStore),
		Enrollments:  enrollment.New(dataStore, dataStore),
		Ordering:     ordering.New(dataStore),
		Progress:     progress.New(dataStore, dataStore),
		AuthLimiter:  authLimiter,
		WriteLimiter: writeLimiter,
		Proxies:      proxies,
		Events:       eventStream,
	})

	handler := util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(httpServer.Router()))))

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
