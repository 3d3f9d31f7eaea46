package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Middleware authenticates each request in order: dev headers (bypass only),
// bearer assertion, assertion cookie, session cookie. A request carrying none
// of them continues anonymously; guards decide what anonymous callers reach.
func (m *Middleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok, err := m.authenticate(r)
			switch {
			case err != nil:
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
			case ok:
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// authenticate returns the caller, or ok=false for anonymous requests. An
// error means credentials were presented and rejected.
func (m *Middleware) authenticate(r *http.Request) (u User, ok bool, err error) {
	if m.devBypass {
		if u, ok := devUser(r); ok {
			return u, true, nil
		}
	}

	// Peer daemons present the assertion as a bearer token.
	if tok := bearerToken(r); tok != "" {
		u, err := m.validateAssertion(tok)
		if err != nil {
			return User{}, false, err
		}
		return u, true, nil
	}

	// A stale assertion cookie falls through to the session.
	if c, _ := r.Cookie(m.assertCookieName); c != nil && c.Value != "" && m.getKey() != nil {
		if u, err := m.validateAssertion(c.Value); err == nil {
			return u, true, nil
		}
	}

	if m.cookieName == "" {
		return User{}, false, nil
	}
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return User{}, false, nil
	}
	u, err = m.validateSession(r.Context(), c)
	if err == nil && u.Username == "" {
		err = errors.New("session has no user")
	}
	if err != nil {
		return User{}, false, err
	}
	return u, true, nil
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (m *Middleware) validateSession(ctx context.Context, c *http.Cookie) (User, error) {
	if m.sessionAPI == "" {
		return User{}, errors.New("SESSION_STATE_API not set")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.sessionAPI, nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(c)

	res, err := m.httpClient.Do(req)
	if err != nil {
		return User{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("session api status %d", res.StatusCode)
	}

	var u User
	if err := json.NewDecoder(res.Body).Decode(&u); err != nil {
		return User{}, err
	}
	return u, nil
}
