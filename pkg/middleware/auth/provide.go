package auth

import (
	"context"
	"crypto/rsa"
	"net/http"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// New builds the middleware. A nil client gets a pooled default.
func New(cfg Config, hc HTTPDoer, log *zap.Logger) *Middleware {
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
			Timeout: 8 * time.Second,
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	cookie := strings.TrimSpace(cfg.AssertCookieName)
	if cookie == "" {
		cookie = "assert"
	}
	leeway := cfg.AssertLeeway
	if leeway < 0 {
		leeway = 0
	}
	return &Middleware{
		httpClient:       hc,
		log:              log,
		sessionAPI:       strings.TrimSpace(cfg.SessionAPI),
		cookieName:       strings.TrimSpace(cfg.CookieName),
		adminRole:        strings.TrimSpace(cfg.AdminRole),
		devBypass:        cfg.DevBypass,
		assertCookieName: cookie,
		assertKeyURL:     strings.TrimSpace(cfg.AssertKeyURL),
		assertKeyKID:     strings.TrimSpace(cfg.AssertKeyKID),
		assertIssuer:     strings.TrimSpace(cfg.AssertIssuer),
		assertAudience:   strings.TrimSpace(cfg.AssertAudience),
		assertLeeway:     leeway,
		cacheTTL:         time.Hour,
	}
}

// SetAssertionKey installs a verification key directly, for deployments that
// ship the key with the binary instead of serving it.
func (m *Middleware) SetAssertionKey(pub *rsa.PublicKey) {
	m.mu.Lock()
	m.assertKey = pub
	m.lastFetch = time.Now()
	m.mu.Unlock()
}

// ProvideAuthentication fetches the assertion key on start (non-fatal) and
// keeps it fresh until stop.
func ProvideAuthentication(lc fx.Lifecycle, cfg Config, log *zap.Logger) *Middleware {
	m := New(cfg, nil, log)
	if m.assertKeyURL == "" {
		return m
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(start context.Context) error {
			if err := m.refreshAssertionKey(start); err != nil {
				m.log.Warn("assertion key fetch failed", zap.String("url", m.assertKeyURL), zap.Error(err))
			}
			go m.keepKeyFresh(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return m
}

var Module = fx.Options(
	fx.Provide(ProvideAuthentication),
)
