package auth

import (
	"crypto/rsa"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Role struct {
	Name string `json:"name"`
}

type AuthenticationSource struct {
	Provider string `json:"provider"`
}

type User struct {
	Username             string               `json:"username"`
	AuthenticationSource AuthenticationSource `json:"authenticationSource"`
	Role                 Role                 `json:"role"`
}

// HTTPDoer is the client used for key and session lookups.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type contextKey struct{ name string }

var userCtxKey = &contextKey{"user"}

// Config is read from the process environment by the daemon.
type Config struct {
	SessionAPI       string        `env:"SESSION_STATE_API"`
	CookieName       string        `env:"SESSION_COOKIE_NAME"`
	AdminRole        string        `env:"ADMIN_ROLE_NAME"`
	DevBypass        bool          `env:"AUTH_DEV_BYPASS"`
	AssertCookieName string        `env:"ASSERTION_COOKIE_NAME" envDefault:"assert"`
	AssertKeyURL     string        `env:"ASSERTION_KEY_URL"`
	AssertKeyKID     string        `env:"ASSERTION_KEY_KID"`
	AssertIssuer     string        `env:"ASSERTION_ISSUER"`
	AssertAudience   string        `env:"ASSERTION_AUDIENCE"`
	AssertLeeway     time.Duration `env:"ASSERTION_LEEWAY" envDefault:"60s"`
}

// Middleware authenticates requests to the command surface. Operators arrive
// with session or assertion cookies; peers send the assertion as a bearer
// token.
type Middleware struct {
	httpClient HTTPDoer
	log        *zap.Logger
	sessionAPI string
	cookieName string
	adminRole  string
	devBypass  bool

	assertCookieName string
	assertKeyURL     string
	assertKeyKID     string
	assertIssuer     string
	assertAudience   string
	assertLeeway     time.Duration

	// guarded by mu
	mu         sync.RWMutex
	assertKey  *rsa.PublicKey
	assertETag string
	cacheTTL   time.Duration
	lastFetch  time.Time
}
