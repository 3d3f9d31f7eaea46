package core

import (
	"os"

	"github.com/joeydtaylor/steeze-command/pkg/manifest"
	toml "github.com/pelletier/go-toml/v2"
)

// LoadConfig reads and validates a TOML manifest.
func LoadConfig(path string) (manifest.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return manifest.Config{}, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (manifest.Config, error) {
	var cfg manifest.Config
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return manifest.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return manifest.Config{}, err
	}
	return cfg, nil
}
