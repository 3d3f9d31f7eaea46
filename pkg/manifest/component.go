package manifest

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Component declares one execution context and its processor settings.
type Component struct {
	Name      string `toml:"name"`
	PeriodMS  int    `toml:"period_ms"`  // 0 = event driven
	QueueSize int    `toml:"queue_size"` // 0 = unbounded

	// RemoteURL resolves statically typed lookups this component does not
	// host against the daemon at that base URL.
	RemoteURL string `toml:"remote_url"`
	// RelayFallback resolves them by publishing over the relay instead.
	RelayFallback bool `toml:"relay_fallback"`
}

func (c *Component) Period() time.Duration {
	return time.Duration(c.PeriodMS) * time.Millisecond
}

func (c *Component) normalize() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return errors.New("name is required")
	}
	if strings.ContainsAny(c.Name, "/ ") {
		return errors.New("name must not contain '/' or spaces")
	}
	if c.PeriodMS < 0 {
		return errors.New("period_ms must be >= 0")
	}
	if c.QueueSize < 0 {
		return errors.New("queue_size must be >= 0")
	}
	c.RemoteURL = strings.TrimSpace(c.RemoteURL)
	if c.RemoteURL != "" {
		if c.RelayFallback {
			return errors.New("remote_url and relay_fallback are exclusive")
		}
		u, err := url.Parse(c.RemoteURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("remote_url %q must be an http(s) URL", c.RemoteURL)
		}
	}
	return nil
}
