// Package config provides configuration loading and management for hyperstacks.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"hyperstacks/pkg/consensus"
	"hyperstacks/pkg/stackfile"
	"hyperstacks/pkg/transform"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	Processing struct {
		// NumCores bounds the planes processed concurrently
		NumCores int `yaml:"numCores"`

		// ConflictPolicy is "error" or "overwrite" for relocations that map
		// two planes to one destination
		ConflictPolicy string `yaml:"conflictPolicy"`

		// TypeRanking orders element types from lowest to highest for
		// promotion when inputs are combined
		TypeRanking []string `yaml:"typeRanking"`
	} `yaml:"processing"`

	Reslice struct {
		AvoidInterpolation bool    `yaml:"avoidInterpolation"`
		ScanStep           float64 `yaml:"scanStep"`
		DepthScale         float64 `yaml:"depthScale"`
	} `yaml:"reslice"`

	Output struct {
		// Compression is the plane codec for stack files: none, lz4 or zstd
		Compression string `yaml:"compression"`

		// AnnotationDB is the SQLite file that receives output annotations.
		// Empty keeps annotations in memory only.
		AnnotationDB string `yaml:"annotationDB"`

		// Verbose shows a progress bar on stderr
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	Logging struct {
		// Level is debug, info, warn or error
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.ConflictPolicy = transform.FailOnConflict.String()
	cfg.Processing.TypeRanking = make([]string, len(consensus.DefaultRanking))
	for i, t := range consensus.DefaultRanking {
		cfg.Processing.TypeRanking[i] = t.String()
	}

	cfg.Reslice.AvoidInterpolation = false
	cfg.Reslice.ScanStep = 1
	cfg.Reslice.DepthScale = 1

	cfg.Output.Compression = stackfile.Zstd.String()
	cfg.Output.Verbose = true

	cfg.Logging.Level = "info"

	return cfg
}

// Validate checks every enumerated field.
func (c *Config) Validate() error {
	var errs []error
	if c.Processing.NumCores < 0 {
		errs = append(errs, fmt.Errorf("processing.numCores must be non-negative, got %d", c.Processing.NumCores))
	}
	if _, err := transform.ParseConflictPolicy(c.Processing.ConflictPolicy); err != nil {
		errs = append(errs, fmt.Errorf("processing.conflictPolicy: %w", err))
	}
	if _, err := c.Ranking(); err != nil {
		errs = append(errs, fmt.Errorf("processing.typeRanking: %w", err))
	}
	if c.Reslice.ScanStep < 0 || c.Reslice.DepthScale < 0 {
		errs = append(errs, fmt.Errorf("reslice.scanStep and reslice.depthScale must be non-negative"))
	}
	if _, err := stackfile.ParseCompression(c.Output.Compression); err != nil {
		errs = append(errs, fmt.Errorf("output.compression: %w", err))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// Ranking parses Processing.TypeRanking; an empty list means the default.
func (c *Config) Ranking() (consensus.Ranking, error) {
	if len(c.Processing.TypeRanking) == 0 {
		return consensus.DefaultRanking, nil
	}
	return consensus.ParseRanking(c.Processing.TypeRanking)
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
