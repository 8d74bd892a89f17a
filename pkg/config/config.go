// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Option configures a Load call.
type Option func(*loader)

type loader struct {
	dotenv []string
	lookup func(string) (string, bool)
}

// WithDotenv loads the given dotenv files before expansion. Missing files are
// skipped; variables already set in the environment win.
func WithDotenv(files ...string) Option {
	return func(l *loader) { l.dotenv = append(l.dotenv, files...) }
}

// WithLookup replaces the environment as the source of ${VAR} values.
func WithLookup(fn func(string) (string, bool)) Option {
	return func(l *loader) { l.lookup = fn }
}

// Load loads configuration from a YAML file with environment variable expansion.
func Load[T any](filename string, target *T, opts ...Option) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := Parse(data, target, opts...); err != nil {
		return fmt.Errorf("config file %s: %w", filename, err)
	}
	return nil
}

// Parse expands, decodes and validates YAML data into target.
func Parse[T any](data []byte, target *T, opts ...Option) error {
	l := loader{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&l)
	}

	for _, f := range l.dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load dotenv file %s: %w", f, err)
		}
	}

	expanded := os.Expand(string(data), func(key string) string {
		v, _ := l.lookup(key)
		return v
	})

	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// LoadWithDefaults loads configuration with fallback to a default file.
func LoadWithDefaults[T any](filename, defaultFile string, target *T, opts ...Option) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile != "" {
			return Load(defaultFile, target, opts...)
		}
		return fmt.Errorf("config file not found: %s", filename)
	}
	return Load(filename, target, opts...)
}
