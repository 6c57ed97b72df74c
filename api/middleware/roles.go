package middleware

import (
	"net/http"

	"github.com/superkart/kart-backend/api/responses"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
)

// RequireRole guards a subtree behind a single role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				responses.WriteError(w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
