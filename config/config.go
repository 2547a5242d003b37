// Package config — .pomerge.yaml configuration file support.
//
// When a .pomerge.yaml file exists in the working directory, it
// supplies defaults for the merge command; command-line flags always
// take precedence over it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level .pomerge.yaml structure.
type Config struct {
	// NoError makes the merge command exit 0 even when conflicts
	// remain (same as the --no-error flag). Useful for pipelines
	// that treat a syntactically valid merge as success.
	NoError bool `yaml:"no_error,omitempty"`
	// Update makes the merge command overwrite the local input in
	// place (same as the --update flag), matching the merge-driver
	// convention.
	Update bool `yaml:"update,omitempty"`
	// Language overrides the auto-detected language for pomerge's
	// own messages (e.g. "ru").
	Language string `yaml:"language,omitempty"`
}

// FileName is the default config file name.
const FileName = ".pomerge.yaml"

// Load reads .pomerge.yaml from the given directory.
// Returns nil if no config file exists.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &cfg, nil
}
