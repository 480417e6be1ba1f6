package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/stockledger/internal/observability/metrics"
	"github.com/yourorg/stockledger/internal/security/audit"
	"github.com/yourorg/stockledger/internal/security/middleware"
	"github.com/yourorg/stockledger/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	auditLog    *audit.Logger
	logger      *slog.Logger
	debug       bool
}

// NewAuthHandler creates a new auth handler. auditLog may be nil.
func NewAuthHandler(authService *service.AuthService, auditLog *audit.Logger, logger *slog.Logger, debug bool) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		auditLog:    auditLog,
		logger:      logger,
		debug:       debug,
	}
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode register request", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		h.logger.Info("registration failed",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		writeError(w, h.logger, h.debug, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		metrics.ObserveLogin("failure")
		if h.auditLog != nil {
			h.auditLog.LogLoginFailure(r.Context(), req.Email, err.Error())
		}
		writeError(w, h.logger, h.debug, err)
		return
	}

	metrics.ObserveLogin("success")
	writeJSON(w, http.StatusOK, result)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
		return
	}

	writeJSON(w, http.StatusOK, actor)
}
