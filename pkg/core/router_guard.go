package core

import (
	"net/http"
	"slices"

	"github.com/joeydtaylor/steeze-command/pkg/manifest"
	"github.com/joeydtaylor/steeze-command/pkg/middleware/auth"
)

func guard(a *auth.Middleware, g manifest.Guard) func(http.Handler) http.Handler {
	restricted := g.RequireAuth || len(g.Users) > 0 || len(g.Roles) > 0
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !restricted {
				next.ServeHTTP(w, r)
				return
			}
			// Without auth wired nobody can satisfy a restriction.
			if a == nil || !a.IsAuthenticated(r.Context()) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if len(g.Users) > 0 && slices.Contains(g.Users, a.GetUser(r.Context()).Username) {
				next.ServeHTTP(w, r)
				return
			}
			if len(g.Roles) > 0 && a.HasAnyRole(r.Context(), g.Roles...) {
				next.ServeHTTP(w, r)
				return
			}
			if len(g.Users) == 0 && len(g.Roles) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}
