package manifest

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Remote configures the HTTP command surface.
type Remote struct {
	Enabled bool   `toml:"enabled"`
	Codec   string `toml:"codec"` // default response codec: "json" | "cbor"
	Guard   Guard  `toml:"guard"`
	// TimeoutMS bounds each request; 0 disables.
	TimeoutMS int `toml:"timeout_ms"`
	// DispatchTTLMS is how long an unpolled dispatch ticket is kept.
	DispatchTTLMS int `toml:"dispatch_ttl_ms"`
}

type Guard struct {
	Roles       []string `toml:"roles"`
	Users       []string `toml:"users"`
	RequireAuth bool     `toml:"require_auth"`
}

func (r *Remote) Timeout() time.Duration { return time.Duration(r.TimeoutMS) * time.Millisecond }

func (r *Remote) DispatchTTL() time.Duration {
	return time.Duration(r.DispatchTTLMS) * time.Millisecond
}

func (r *Remote) normalize() error {
	r.Codec = strings.ToLower(strings.TrimSpace(r.Codec))
	switch r.Codec {
	case "":
		r.Codec = "json"
	case "json", "cbor":
	default:
		return fmt.Errorf("codec %q invalid (json|cbor)", r.Codec)
	}
	if r.TimeoutMS < 0 {
		return errors.New("timeout_ms must be >= 0")
	}
	if r.DispatchTTLMS < 0 {
		return errors.New("dispatch_ttl_ms must be >= 0")
	}
	if r.DispatchTTLMS == 0 {
		r.DispatchTTLMS = 300_000
	}
	return nil
}
