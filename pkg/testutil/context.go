package testutil

import (
	"net/http"

	"sante/internal/rbac"
	"sante/pkg/requestcontext"
)

// AsUser attaches the principal that RequireAuth would have stored, with the
// role's permission set from the RBAC table.
func AsUser(req *http.Request, userID string, role rbac.Role) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), userID, string(role), rbac.PermissionStrings(role))
	return req.WithContext(ctx)
}
