package auth

import (
	"context"
	"net/http"
)

// WithUser attaches an authenticated user to ctx.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userCtxKey, u)
}

// UserFrom returns the authenticated user of ctx, if any.
func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userCtxKey).(User)
	return u, ok && u.Username != ""
}

func (m *Middleware) GetUser(ctx context.Context) User {
	u, _ := UserFrom(ctx)
	return u
}

func (m *Middleware) IsAuthenticated(ctx context.Context) bool {
	_, ok := UserFrom(ctx)
	return ok
}

func (m *Middleware) IsAdmin(ctx context.Context) bool {
	u, ok := UserFrom(ctx)
	return ok && m.admin(u)
}

// HasAnyRole reports whether the user holds one of roles. Admins hold all.
func (m *Middleware) HasAnyRole(ctx context.Context, roles ...string) bool {
	u, ok := UserFrom(ctx)
	if !ok {
		return false
	}
	if m.admin(u) {
		return true
	}
	for _, r := range roles {
		if u.Role.Name == r {
			return true
		}
	}
	return false
}

func (m *Middleware) admin(u User) bool {
	return m.adminRole != "" && u.Role.Name == m.adminRole
}

// devUser reads X-Dev-User, X-Dev-Role and X-Dev-Provider. Only consulted
// with AUTH_DEV_BYPASS.
func devUser(r *http.Request) (User, bool) {
	name := r.Header.Get("X-Dev-User")
	if name == "" {
		return User{}, false
	}
	return User{
		Username:             name,
		AuthenticationSource: AuthenticationSource{Provider: r.Header.Get("X-Dev-Provider")},
		Role:                 Role{Name: r.Header.Get("X-Dev-Role")},
	}, true
}
