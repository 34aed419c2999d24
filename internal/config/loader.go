package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "SNOWGLOBE_"
	envConfigPath = "SNOWGLOBE_CONFIG"
	// envPort is the bare listen port set by most hosting platforms.
	envPort = "PORT"
)

// LoadOption adjusts where Load looks for configuration.
type LoadOption func(*loadOptions)

type loadOptions struct {
	file    string
	dotEnvs []string
}

// WithFile loads YAML from path, taking precedence over SNOWGLOBE_CONFIG.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		if path != "" {
			o.file = path
		}
	}
}

// WithDotEnv loads KEY=VALUE pairs from path into the process environment
// before env vars are read. Missing files are ignored.
func WithDotEnv(path string) LoadOption {
	return func(o *loadOptions) {
		if path != "" {
			o.dotEnvs = append(o.dotEnvs, path)
		}
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) from WithFile or SNOWGLOBE_CONFIG
//  3. PORT, mapped to addr as ":<PORT>"
//  4. env (prefix SNOWGLOBE_), including values from .env files
func Load(_ context.Context, opts ...LoadOption) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	for _, path := range o.dotEnvs {
		if err := loadDotEnv(path); err != nil {
			return nil, fmt.Errorf("%w: dotenv %s: %w", ErrLoadConfig, path, err)
		}
	}

	k := koanf.New(".")

	path := o.file
	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	if port := strings.TrimSpace(os.Getenv(envPort)); port != "" {
		if err := k.Set("addr", ":"+port); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, envPort, err)
		}
	}

	// SNOWGLOBE_QUEUE_SIZE -> queue_size; comma separated values become lists.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "config" {
			return "", nil
		}
		if key == "allowed_origins" {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv does not override variables already present in the environment.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
