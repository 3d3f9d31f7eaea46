package manifest

import (
	"errors"
	"strings"
)

// Script runs a Lua file against one component's commands at startup.
type Script struct {
	Component string `toml:"component"`
	Path      string `toml:"path"`
}

func (s *Script) normalize() error {
	s.Component = strings.TrimSpace(s.Component)
	s.Path = strings.TrimSpace(s.Path)
	if s.Component == "" {
		return errors.New("component is required")
	}
	if s.Path == "" {
		return errors.New("path is required")
	}
	return nil
}
