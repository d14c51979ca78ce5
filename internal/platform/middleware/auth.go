package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"sante/internal/rbac"
	"sante/pkg/platform/httputil"
	"sante/pkg/requestcontext"

	dErrors "sante/pkg/domain-errors"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	UserID      string
	Identifier  string
	Role        string
	Permissions []string
	JTI         string
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// RequireAuth validates the bearer token and stores the principal in the
// request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := BearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithPrincipal(ctx, claims.UserID, claims.Role, claims.Permissions)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermissions rejects the request with 403 unless the caller's role
// grants every listed permission. The role table is authoritative; the
// permissions copied into the token are informational.
func RequirePermissions(logger *slog.Logger, perms ...rbac.Permission) func(http.Handler) http.Handler {
	return requireRole(logger, perms, func(role rbac.Role) bool {
		return rbac.HasAllPermissions(role, perms)
	})
}

// RequireAnyPermission rejects the request with 403 unless the caller's role
// grants at least one of the listed permissions.
func RequireAnyPermission(logger *slog.Logger, perms ...rbac.Permission) func(http.Handler) http.Handler {
	return requireRole(logger, perms, func(role rbac.Role) bool {
		return rbac.HasAnyPermission(role, perms)
	})
}

func requireRole(logger *slog.Logger, perms []rbac.Permission, allowed func(rbac.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			role := rbac.Role(requestcontext.Role(ctx))
			if role == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !allowed(role) {
				logger.WarnContext(ctx, "forbidden - missing permission",
					"user_id", requestcontext.UserID(ctx),
					"role", string(role),
					"required", perms,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
