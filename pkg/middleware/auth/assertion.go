package auth

import (
	"errors"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errNoAssertionKey   = errors.New("assertion key not configured")
	errInvalidAssertion = errors.New("invalid assertion")
)

// assertionClaims is what the identity service signs for operators and
// peer daemons alike.
type assertionClaims struct {
	jwt.RegisteredClaims
	Ver   int      `json:"ver"`
	SID   string   `json:"sid"`
	UID   string   `json:"uid"`
	Org   string   `json:"org"`
	Roles []string `json:"roles"`
	Role  string   `json:"role"`
}

func (c *assertionClaims) username() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// role prefers the single role claim, then the first of roles.
func (c *assertionClaims) role() string {
	if c.Role != "" || len(c.Roles) == 0 {
		return c.Role
	}
	return c.Roles[0]
}

func (m *Middleware) validateAssertion(raw string) (User, error) {
	pub := m.getKey()
	if pub == nil {
		return User{}, errNoAssertionKey
	}

	var claims assertionClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.assertLeeway),
	)
	tok, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return pub, nil })
	switch {
	case err != nil || !tok.Valid:
		return User{}, errInvalidAssertion
	case m.assertIssuer != "" && claims.Issuer != m.assertIssuer:
		return User{}, errors.New("bad issuer")
	case m.assertAudience != "" && !slices.Contains(claims.Audience, m.assertAudience):
		return User{}, errors.New("bad audience")
	case claims.username() == "":
		return User{}, errors.New("missing uid")
	}

	return User{
		Username:             claims.username(),
		AuthenticationSource: AuthenticationSource{Provider: "assert"},
		Role:                 Role{Name: claims.role()},
	}, nil
}
