package core

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

type NoAuthProvider struct{}

func (NoAuthProvider) Issue(context.Context, *http.Request) (DownstreamCredentials, error) {
	return DownstreamCredentials{}, nil
}

// PassthroughCookieProvider forwards the caller's session cookie.
type PassthroughCookieProvider struct {
	CookieName string
	HeaderName string // default: "Cookie"
}

func (p PassthroughCookieProvider) Issue(_ context.Context, r *http.Request) (DownstreamCredentials, error) {
	if p.HeaderName == "" {
		p.HeaderName = "Cookie"
	}
	if p.CookieName == "" {
		return DownstreamCredentials{}, nil
	}
	c, err := r.Cookie(p.CookieName)
	if err != nil || c.Value == "" {
		return DownstreamCredentials{}, nil
	}
	return DownstreamCredentials{
		HeaderName:  p.HeaderName,
		HeaderValue: fmt.Sprintf("%s=%s", p.CookieName, c.Value),
	}, nil
}

// StaticBearerProvider presents a fixed token. An empty Token is read from
// EnvVar (default RELAY_STATIC_BEARER) on every call.
type StaticBearerProvider struct {
	Token      string
	HeaderName string // default: "Authorization"
	EnvVar     string
}

func (p StaticBearerProvider) Issue(context.Context, *http.Request) (DownstreamCredentials, error) {
	h := p.HeaderName
	if h == "" {
		h = "Authorization"
	}
	val := strings.TrimSpace(p.Token)
	if val == "" {
		env := p.EnvVar
		if env == "" {
			env = "RELAY_STATIC_BEARER"
		}
		val = strings.TrimSpace(os.Getenv(env))
	}
	if val == "" {
		return DownstreamCredentials{}, nil
	}
	if !strings.HasPrefix(val, "Bearer ") {
		val = "Bearer " + val
	}
	return DownstreamCredentials{HeaderName: h, HeaderValue: val}, nil
}
