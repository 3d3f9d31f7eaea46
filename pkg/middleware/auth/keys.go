package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const minKeyTTL = 5 * time.Second

// keepKeyFresh refetches the verification key whenever its cache lifetime
// runs out, until ctx ends.
func (m *Middleware) keepKeyFresh(ctx context.Context) {
	for {
		_, ttl := m.keyCache()
		t := time.NewTimer(max(ttl, minKeyTTL))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		if err := m.refreshAssertionKey(ctx); err != nil && ctx.Err() == nil {
			m.log.Warn("assertion key refresh failed", zap.Error(err))
		}
	}
}

func (m *Middleware) refreshAssertionKey(ctx context.Context) error {
	if m.assertKeyURL == "" {
		return errors.New("ASSERTION_KEY_URL not set")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.assertKeyURL, nil)
	if err != nil {
		return err
	}
	if etag, _ := m.keyCache(); etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	req.Header.Set("Accept", "application/json, application/x-pem-file")

	res, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	ttl, hasTTL := maxAge(res.Header.Get("Cache-Control"))
	if res.StatusCode == http.StatusNotModified && m.getKey() != nil {
		m.storeKey(nil, "", ttl, hasTTL)
		return nil
	}
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("key fetch %s: %s", m.assertKeyURL, res.Status)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}

	var pub *rsa.PublicKey
	if isJWKS(res.Header.Get("Content-Type"), m.assertKeyURL) {
		pub, err = keyFromJWKS(body, m.assertKeyKID)
	} else {
		pub, err = keyFromPEM(body)
	}
	if err != nil {
		return err
	}
	m.storeKey(pub, res.Header.Get("ETag"), ttl, hasTTL)
	m.log.Info("assertion key loaded", zap.String("url", m.assertKeyURL), zap.String("kid", m.assertKeyKID))
	return nil
}

func isJWKS(contentType, url string) bool {
	return strings.Contains(strings.ToLower(contentType), "json") || strings.HasSuffix(strings.ToLower(url), ".json")
}

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// signs reports whether k can verify RS256 assertions. With a kid only that
// key qualifies.
func (k jwk) signs(kid string) bool {
	if k.Kty != "RSA" {
		return false
	}
	if kid != "" {
		return k.Kid == kid
	}
	return (k.Use == "" || k.Use == "sig") && (k.Alg == "" || strings.EqualFold(k.Alg, "RS256"))
}

func (k jwk) publicKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("bad jwks.n: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("bad jwks.e: %w", err)
	}
	exp := 0
	for _, b := range e {
		exp = exp<<8 | int(b)
	}
	if exp == 0 {
		exp = 65537
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: exp}, nil
}

func keyFromJWKS(body []byte, kid string) (*rsa.PublicKey, error) {
	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, err
	}
	for _, k := range set.Keys {
		if k.signs(kid) {
			return k.publicKey()
		}
	}
	return nil, errors.New("no suitable RSA key in JWKS")
}

func keyFromPEM(body []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(body)
	if block == nil {
		return nil, errors.New("no PEM block in response")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("PEM is not an RSA public key")
	}
	return pub, nil
}

// maxAge reads max-age from a Cache-Control header. Values under five
// seconds are ignored.
func maxAge(cacheControl string) (time.Duration, bool) {
	for _, p := range strings.Split(cacheControl, ",") {
		v, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(p)), "max-age=")
		if !ok {
			continue
		}
		if s, err := strconv.Atoi(v); err == nil && time.Duration(s)*time.Second >= minKeyTTL {
			return time.Duration(s) * time.Second, true
		}
	}
	return 0, false
}

// storeKey records a fetch. A nil pub keeps the current key.
func (m *Middleware) storeKey(pub *rsa.PublicKey, etag string, ttl time.Duration, hasTTL bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pub != nil {
		m.assertKey = pub
		m.assertETag = etag
	}
	if hasTTL {
		m.cacheTTL = ttl
	}
	m.lastFetch = time.Now()
}

func (m *Middleware) getKey() *rsa.PublicKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.assertKey
}

func (m *Middleware) keyCache() (etag string, ttl time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.assertETag, m.cacheTTL
}
