package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sante/internal/auth/models"
	"sante/internal/platform/middleware"
	"sante/internal/rbac"
	"sante/pkg/platform/httputil"
	"sante/pkg/requestcontext"

	dErrors "sante/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/auth-mocks.go -package=mocks Service,ResetNotifier

// Service defines the account operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
	RefreshToken(ctx context.Context, oldToken string) (*models.RefreshResult, error)
	RequestPasswordReset(ctx context.Context, identifier string) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ResetNotifier delivers a freshly issued reset token out of band.
type ResetNotifier interface {
	PasswordResetIssued(ctx context.Context, userIdentifier, resetToken string)
}

// Handler serves /auth endpoints.
type Handler struct {
	logger       *slog.Logger
	auth         Service
	notifier     ResetNotifier
	jwtValidator middleware.JWTValidator
}

// New creates a new auth Handler. notifier may be nil.
func New(auth Service, notifier ResetNotifier, jwtValidator middleware.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		auth:         auth,
		notifier:     notifier,
		jwtValidator: jwtValidator,
	}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/password-reset/request", h.handleRequestPasswordReset)
		r.Post("/password-reset/confirm", h.handleConfirmPasswordReset)
		r.With(middleware.RequireAuth(h.jwtValidator, h.logger)).Get("/me", h.handleMe)
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.mayAssign(w, r, rbac.Role(req.Role)) {
		return
	}
	user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(r.Context(), w, "register", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"user": user.View()})
}

// mayAssign lets anyone sign up as a patient or an unverified professional.
// Other known roles need a bearer token whose role may assign them; unknown
// roles are left to the service's validation.
func (h *Handler) mayAssign(w http.ResponseWriter, r *http.Request, role rbac.Role) bool {
	if rbac.SelfRegistrable(role) || !rbac.IsValidRole(role) {
		return true
	}
	ctx := r.Context()
	token, ok := middleware.BearerToken(r)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required to assign this role"))
		return false
	}
	claims, err := h.jwtValidator.ValidateToken(token)
	if err != nil {
		httputil.WriteError(w, err)
		return false
	}
	if !rbac.CanAssignRole(rbac.Role(claims.Role), role) {
		h.logger.WarnContext(ctx, "role assignment denied",
			"actor_id", claims.UserID,
			"actor_role", claims.Role,
			"role", string(role),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not allowed to assign this role"))
		return false
	}
	return true
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.writeServiceError(r.Context(), w, "login", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// handleRefresh reads the token from the Authorization header. Expired
// tokens are accepted here.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
		return
	}
	res, err := h.auth.RefreshToken(r.Context(), token)
	if err != nil {
		h.writeServiceError(r.Context(), w, "refresh", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.auth.RequestPasswordReset(r.Context(), req.Identifier)
	if err != nil {
		h.writeServiceError(r.Context(), w, "password reset request", err)
		return
	}
	if h.notifier != nil {
		h.notifier.PasswordResetIssued(r.Context(), req.Identifier, token)
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "reset_instructions_sent",
	})
}

func (h *Handler) handleConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetConfirm
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.writeServiceError(r.Context(), w, "password reset confirm", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := uuid.Parse(requestcontext.UserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	user, err := h.auth.GetUser(ctx, userID)
	if err != nil {
		h.writeServiceError(ctx, w, "me", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"user":        user.View(),
		"permissions": rbac.PermissionStrings(user.Role),
	})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
