package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/stockledger/internal/featureflags"
	"github.com/yourorg/stockledger/internal/handler"
	"github.com/yourorg/stockledger/internal/infrastructure/logger"
	redisinfra "github.com/yourorg/stockledger/internal/infrastructure/redis"
	"github.com/yourorg/stockledger/internal/observability/metrics"
	"github.com/yourorg/stockledger/internal/observability/tracing"
	"github.com/yourorg/stockledger/internal/repository"
	"github.com/yourorg/stockledger/internal/security"
	"github.com/yourorg/stockledger/internal/security/audit"
	"github.com/yourorg/stockledger/internal/security/auth"
	"github.com/yourorg/stockledger/internal/security/middleware"
	"github.com/yourorg/stockledger/internal/security/ratelimit"
	"github.com/yourorg/stockledger/internal/service"
	"github.com/yourorg/stockledger/internal/stream"
	"github.com/yourorg/stockledger/pkg/cache"
	"github.com/yourorg/stockledger/pkg/config"
	"github.com/yourorg/stockledger/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting stockledger server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op unless an OTLP endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, "stockledger", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Database pool + schema
	pool, err := database.NewConnectionPool(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		log.Error("failed to migrate schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Stats cache: Redis when configured, in-memory otherwise
	readiness := map[string]handler.Pinger{
		"database": pingerFunc(pool.Health),
	}
	var statsCache service.StatsCache
	if cfg.RedisURL != "" {
		redisClient, err := redisinfra.NewClient(cfg.RedisURL, log)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		statsCache = redisClient
		readiness["redis"] = pingerFunc(redisClient.Ping)
	} else {
		log.Info("REDIS_URL not set, using in-memory stats cache")
		statsCache = cache.New()
	}

	// 6. Repositories
	userRepo := repository.NewPostgresUserRepository(pool.GetDB(), log)
	itemRepo := repository.NewPostgresItemRepository(pool.GetDB(), log)
	auditRepo := repository.NewPostgresAuditRepository(pool.GetDB(), log)

	// 7. Security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "stockledger",
		time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	loginLimiter := ratelimit.NewLimiter(cfg.LoginRatePerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 8. Services
	auditHub := stream.NewHub()
	authService := service.NewAuthService(userRepo, tokenManager, log)
	inventoryService := service.NewInventoryService(
		itemRepo, service.NewAuditRecorder(), statsCache, auditHub, log)

	// 9. Handlers
	authHandler := handler.NewAuthHandler(authService, auditLogger, log, cfg.Debug)
	inventoryHandler := handler.NewInventoryHandler(inventoryService, log, cfg.Debug)
	auditHandler := handler.NewAuditHandler(auditRepo, log, cfg.Debug)
	healthHandler := handler.NewHealthHandler(readiness, log)

	// 10. Routes
	authed := middleware.ResolveActor(tokenManager, userRepo, log)
	gate := func(op security.Operation) func(http.Handler) http.Handler {
		return middleware.RequireOperation(op, auditLogger)
	}
	route := func(h http.HandlerFunc, op security.Operation) http.Handler {
		return authed(gate(op)(h))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /auth/register",
		middleware.RateLimitLogin(loginLimiter, log)(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /auth/login",
		middleware.RateLimitLogin(loginLimiter, log)(http.HandlerFunc(authHandler.Login)))
	mux.Handle("GET /auth/me", route(authHandler.Me, security.OpViewProfile))

	mux.Handle("GET /inventory", route(inventoryHandler.List, security.OpListItems))
	mux.Handle("GET /inventory/stats", route(inventoryHandler.Stats, security.OpViewStats))
	mux.Handle("GET /inventory/{id}", route(inventoryHandler.Get, security.OpReadItem))
	mux.Handle("POST /inventory", route(inventoryHandler.Create, security.OpCreateItem))
	mux.Handle("PUT /inventory/{id}", route(inventoryHandler.Update, security.OpUpdateItem))
	mux.Handle("DELETE /inventory/{id}", route(inventoryHandler.Delete, security.OpDeleteItem))

	mux.Handle("GET /audit", route(auditHandler.List, security.OpViewAuditLogs))
	mux.Handle("GET /audit/item/{id}", route(auditHandler.ListForItem, security.OpViewAuditLogs))

	if featureflags.Enabled("audit_stream") {
		streamHandler := handler.NewAuditStreamHandler(
			auditHub, tokenManager, userRepo, log, cfg.CORSAllowedOrigins)
		mux.Handle("GET /ws/audit", streamHandler)
		log.Info("audit stream enabled")
	}

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	// Middleware chain: request ID -> metrics -> CORS -> content type -> mux
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			withCORS(cfg.CORSAllowedOrigins,
				middleware.ValidateJSONContentType(log)(mux),
			),
		),
		log,
	)
	rootHandler = otelhttp.NewHandler(rootHandler, "stockledger")

	// 11. HTTP server with graceful shutdown
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("token_ttl_minutes", cfg.TokenTTLMinutes),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	loginLimiter.Stop()
	log.Info("server stopped")
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func withCORS(allowed []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(allowed, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(allowed) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", allowed[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
