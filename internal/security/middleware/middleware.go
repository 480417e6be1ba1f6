package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/stockledger/internal/domain"
	"github.com/yourorg/stockledger/internal/security"
	"github.com/yourorg/stockledger/internal/security/audit"
	"github.com/yourorg/stockledger/internal/security/auth"
	"github.com/yourorg/stockledger/internal/security/ratelimit"
)

type ActorContextKey struct{}

// ResolveActor authenticates every request: it validates the bearer
// token, loads the subject's user row, and rejects tokens whose account
// no longer exists or is inactive. The user lookup runs on every
// request on purpose, so deactivating an account takes effect before
// its tokens expire.
func ResolveActor(tm *auth.TokenManager, users domain.UserRepository, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid authorization header"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.DecodeToken(tokenString)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			actor, err := users.GetByEmail(r.Context(), claims.Subject)
			if err != nil {
				log.Warn("token subject no longer resolvable",
					slog.String("subject", claims.Subject),
					slog.String("error", err.Error()),
				)
				http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
				return
			}
			if !actor.IsActive {
				http.Error(w, `{"error":"inactive user account"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ActorContextKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOperation gates a handler on the flat policy table. It assumes
// ResolveActor already ran.
func RequireOperation(op security.Operation, auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if err := security.RequireRole(actor, op); err != nil {
				if errors.Is(err, domain.ErrForbidden) {
					if auditLog != nil {
						email := ""
						if actor != nil {
							email = actor.Email
						}
						auditLog.LogDenied(r.Context(), email, string(op), err.Error())
					}
					http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
					return
				}
				http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitLogin throttles credential endpoints per remote address.
func RateLimitLogin(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.RemoteAddr) {
				log.Warn("login rate limit exceeded", slog.String("remote", r.RemoteAddr))
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorFromContext returns the authenticated user, or nil.
func ActorFromContext(ctx context.Context) *domain.User {
	if a := ctx.Value(ActorContextKey{}); a != nil {
		return a.(*domain.User)
	}
	return nil
}
