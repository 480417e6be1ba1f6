package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourorg/stockledger/internal/domain"
	"github.com/yourorg/stockledger/internal/security"
	"github.com/yourorg/stockledger/internal/security/auth"
	"github.com/yourorg/stockledger/internal/stream"
)

const streamPingInterval = 30 * time.Second

// AuditStreamHandler pushes audit entries committed after subscribe to
// websocket clients. Browsers cannot set an Authorization header on a
// websocket, so the bearer token travels as a query parameter.
type AuditStreamHandler struct {
	hub            *stream.Hub
	tokens         *auth.TokenManager
	users          domain.UserRepository
	logger         *slog.Logger
	allowedOrigins []string
}

// NewAuditStreamHandler creates a new audit stream handler
func NewAuditStreamHandler(
	hub *stream.Hub,
	tokens *auth.TokenManager,
	users domain.UserRepository,
	logger *slog.Logger,
	allowedOrigins []string,
) *AuditStreamHandler {
	return &AuditStreamHandler{
		hub:            hub,
		tokens:         tokens,
		users:          users,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

func (h *AuditStreamHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no origin.
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/audit?token=...
func (h *AuditStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		writeError(w, h.logger, false, err)
		return
	}
	if err := security.RequireRole(actor, security.OpViewAuditLogs); err != nil {
		writeError(w, h.logger, false, err)
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	entries, cancel := h.hub.Subscribe()
	defer cancel()

	h.logger.Debug("audit stream opened", slog.String("actor", actor.Email))

	// Reader goroutine: the client never sends data, but reading is
	// how close frames and connection drops are noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if err := ws.WriteJSON(entry); err != nil {
				h.logger.Debug("audit stream ended", slog.String("reason", err.Error()))
				return
			}
		}
	}
}

func (h *AuditStreamHandler) resolveActor(r *http.Request) (*domain.User, error) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		if header := r.Header.Get("Authorization"); header != "" {
			var err error
			tokenString, err = auth.ExtractToken(header)
			if err != nil {
				return nil, domain.ErrUnauthenticated
			}
		}
	}
	if tokenString == "" {
		return nil, domain.ErrUnauthenticated
	}

	claims, err := h.tokens.DecodeToken(tokenString)
	if err != nil {
		return nil, err
	}

	actor, err := h.users.GetByEmail(r.Context(), claims.Subject)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	if !actor.IsActive {
		return nil, domain.ErrInactiveAccount
	}
	return actor, nil
}
