// Package config loads the YAML settings shared by the rekit commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"rekit/inject"
	"rekit/search"
	"rekit/snapshot"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type Snapshot struct {
	PollInterval       time.Duration `yaml:"poll_interval"`
	InitialBufferSize  int           `yaml:"initial_buffer_size"`
	MaxBufferSize      int           `yaml:"max_buffer_size"`
	ImagePathCacheSize int           `yaml:"image_path_cache_size"`
}

type Scan struct {
	ChunkSize int  `yaml:"chunk_size"`
	Alignment uint `yaml:"alignment"`
}

type Inject struct {
	Method    string `yaml:"method"`
	Preflight bool   `yaml:"preflight"`
}

type Config struct {
	Snapshot Snapshot `yaml:"snapshot"`
	Scan     Scan     `yaml:"scan"`
	Inject   Inject   `yaml:"inject"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Snapshot: Snapshot{
			PollInterval:       snapshot.DefaultPollInterval,
			InitialBufferSize:  snapshot.DefaultInitialBufferSize,
			MaxBufferSize:      snapshot.DefaultMaxBufferSize,
			ImagePathCacheSize: snapshot.DefaultPathCacheSize,
		},
		Scan: Scan{
			ChunkSize: search.DefaultChunkSize,
			Alignment: 1,
		},
		Inject: Inject{
			Method:    inject.MethodAPC.String(),
			Preflight: true,
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs error

	if c.Snapshot.PollInterval <= 0 {
		errs = multierr.Append(errs, errors.New("snapshot.poll_interval must be positive"))
	}
	if c.Snapshot.InitialBufferSize <= 0 {
		errs = multierr.Append(errs, errors.New("snapshot.initial_buffer_size must be positive"))
	}
	if c.Snapshot.MaxBufferSize < c.Snapshot.InitialBufferSize {
		errs = multierr.Append(errs, errors.New("snapshot.max_buffer_size must not be below initial_buffer_size"))
	}
	if c.Snapshot.ImagePathCacheSize < 0 {
		errs = multierr.Append(errs, errors.New("snapshot.image_path_cache_size must not be negative"))
	}
	if c.Scan.ChunkSize <= 0 {
		errs = multierr.Append(errs, errors.New("scan.chunk_size must be positive"))
	}
	if _, err := inject.ParseMethod(c.Inject.Method); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("inject.method: %w", err))
	}

	return errs
}

// InjectMethod returns the configured injection method.
func (c Config) InjectMethod() inject.Method {
	m, err := inject.ParseMethod(c.Inject.Method)
	if err != nil {
		return inject.MethodAPC
	}
	return m
}
