// Package config loads runtime settings for the dispatch tooling from YAML.
package config

import (
	"os"

	"github.com/born-ml/dispatch/internal/parallel"
	"github.com/born-ml/dispatch/internal/typeid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration file.
type Config struct {
	// Types lists backend identifiers defined on top of the standard set.
	Types []Type `yaml:"types,omitempty"`

	// Parallel controls the CPU backend's worker fan-out.
	Parallel Parallel `yaml:"parallel"`

	// Verbosity is the klog -v level used when the flag is not given.
	Verbosity int `yaml:"verbosity,omitempty"`
}

// Type declares one backend TypeID.
type Type struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// Parallel mirrors parallel.Config. Zero Workers means one per CPU.
type Parallel struct {
	Enabled  bool `yaml:"enabled"`
	Workers  int  `yaml:"workers,omitempty"`
	MinChunk int  `yaml:"min_chunk,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	d := parallel.DefaultConfig()
	return &Config{
		Parallel: Parallel{Enabled: d.Enabled, Workers: d.NumWorkers, MinChunk: d.MinChunkSize},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var err error
	std := typeid.NewStandardRegistry()
	seen := make(map[int64]bool)
	for i, t := range c.Types {
		reserved, isStd := std.Lookup(t.ID)
		switch {
		case t.ID <= 0:
			err = multierr.Append(err, errors.Errorf("types[%d]: id must be positive, got %d", i, t.ID))
		case isStd:
			err = multierr.Append(err, errors.Errorf("types[%d]: id %d is reserved for %s", i, t.ID, reserved))
		case seen[t.ID]:
			err = multierr.Append(err, errors.Errorf("types[%d]: duplicate id %d", i, t.ID))
		}
		if t.Name == "" {
			err = multierr.Append(err, errors.Errorf("types[%d]: name is required", i))
		}
		seen[t.ID] = true
	}
	if c.Parallel.Workers < 0 {
		err = multierr.Append(err, errors.Errorf("parallel.workers must not be negative, got %d", c.Parallel.Workers))
	}
	if c.Parallel.MinChunk < 0 {
		err = multierr.Append(err, errors.Errorf("parallel.min_chunk must not be negative, got %d", c.Parallel.MinChunk))
	}
	if c.Verbosity < 0 {
		err = multierr.Append(err, errors.Errorf("verbosity must not be negative, got %d", c.Verbosity))
	}
	return err
}

// ParallelConfig converts the parallel section, filling unset fields from
// parallel.DefaultConfig.
func (c *Config) ParallelConfig() parallel.Config {
	p := parallel.DefaultConfig()
	p.Enabled = c.Parallel.Enabled
	if c.Parallel.Workers > 0 {
		p.NumWorkers = c.Parallel.Workers
	}
	if c.Parallel.MinChunk > 0 {
		p.MinChunkSize = c.Parallel.MinChunk
	}
	return p
}

// TypeRegistry returns a standard registry extended with the configured
// types. The registry is not frozen.
func (c *Config) TypeRegistry() (*typeid.Registry, error) {
	reg := typeid.NewStandardRegistry()
	var err error
	for _, t := range c.Types {
		if _, defErr := reg.Define(t.ID, t.Name); defErr != nil {
			err = multierr.Append(err, defErr)
		}
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}
