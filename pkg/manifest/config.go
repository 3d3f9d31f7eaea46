package manifest

import (
	"errors"
	"fmt"
)

// Config is the top-level manifest of a command daemon.
type Config struct {
	Components []Component `toml:"component"`
	Remote     Remote      `toml:"remote"`
	Relay      *Relay      `toml:"relay"`
	Scripts    []Script    `toml:"script"`
}

// Validate normalizes defaults in place and checks cross references.
func (c *Config) Validate() error {
	if len(c.Components) == 0 {
		return errors.New("no components defined")
	}
	seen := map[string]struct{}{}
	for i := range c.Components {
		if err := c.Components[i].normalize(); err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
		name := c.Components[i].Name
		if _, dup := seen[name]; dup {
			return fmt.Errorf("component %d: duplicate name %q", i, name)
		}
		seen[name] = struct{}{}
	}

	if err := c.Remote.normalize(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}

	if c.Relay != nil {
		if err := c.Relay.validate(); err != nil {
			return fmt.Errorf("relay: %w", err)
		}
	}
	for _, comp := range c.Components {
		if comp.RelayFallback && (c.Relay == nil || len(c.Relay.Targets) == 0) {
			return fmt.Errorf("component %q: relay_fallback needs relay targets", comp.Name)
		}
	}

	for i := range c.Scripts {
		if err := c.Scripts[i].normalize(); err != nil {
			return fmt.Errorf("script %d: %w", i, err)
		}
		if _, ok := seen[c.Scripts[i].Component]; !ok {
			return fmt.Errorf("script %d: unknown component %q", i, c.Scripts[i].Component)
		}
	}
	return nil
}
