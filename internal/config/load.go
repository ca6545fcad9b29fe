package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dshills/docstorm/internal/config/loader"
)

// ErrNotFound is returned when an explicitly named config file is missing.
var ErrNotFound = errors.New("config file not found")

// Load reads the configuration file at path, which may be empty, applies
// the environment overrides on top of the defaults and validates the
// result. Relative rule file paths are resolved against the directory of
// the config file.
func Load(path string) (*Config, error) {
	return LoadFS(loader.DefaultFS(), path)
}

// LoadFS is Load reading the config file from fsys.
func LoadFS(fsys loader.FileSystem, path string) (*Config, error) {
	var merged map[string]any
	if path != "" {
		l, err := loader.ForPath(fsys, path)
		if err != nil {
			return nil, err
		}
		file, err := l.Load()
		if err != nil {
			return nil, err
		}
		if file == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		merged = file
	}

	env, err := loader.NewEnvLoader(EnvPrefix).Load()
	if err != nil {
		return nil, err
	}
	merged = loader.DeepMerge(merged, env)

	cfg := Default()
	if err := decode(merged, cfg); err != nil {
		return nil, err
	}
	if path != "" {
		base := filepath.Dir(path)
		for i, f := range cfg.Schema.Files {
			if !filepath.IsAbs(f) {
				cfg.Schema.Files[i] = filepath.Join(base, f)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// decode overlays the settings in m onto cfg.
func decode(m map[string]any, cfg *Config) error {
	if len(m) == 0 {
		return nil
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}
