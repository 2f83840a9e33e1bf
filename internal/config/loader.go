package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if MODELRANK_CONFIG is set
//  3. env (prefix MODELRANK_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("MODELRANK_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: MODELRANK_ADDR, MODELRANK_TOP_N, ...
	// Map env keys like MODELRANK_TOP_N -> top_n (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("MODELRANK_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "modelrank_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	switch {
	case cfg.Addr == "":
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case cfg.SourceURL == "":
		return nil, fmt.Errorf("%w: source_url must not be empty", ErrInvalidConfig)
	case cfg.DatabasePath == "":
		return nil, fmt.Errorf("%w: database_path must not be empty", ErrInvalidConfig)
	case cfg.TopN < 1:
		return nil, fmt.Errorf("%w: top_n must be positive", ErrInvalidConfig)
	case cfg.IngestIntervalHours < 1:
		return nil, fmt.Errorf("%w: ingest_interval_hours must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}
