// Package audit emits structured security events to the process log.
// This is the observability side channel; the durable audit trail of
// inventory mutations lives in the audit_logs table and is written
// transactionally by the inventory service.
package audit

import (
	"context"
	"log/slog"
	"time"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, actorEmail, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("actor", actorEmail),
		slog.String("status", status),
		slog.String("details", details),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogDenied(ctx context.Context, actorEmail, operation, reason string) {
	al.LogAction(ctx, actorEmail, "access_denied", "api", operation, "denied", reason)
}

func (al *Logger) LogLoginFailure(ctx context.Context, email, reason string) {
	al.LogAction(ctx, email, "login_failed", "auth", "", "denied", reason)
}
