// Package config loads the run configuration: landing zones, roles,
// per-service default tag policies, logging and performance options.
// Loaded once at run start and treated as immutable for the run.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nisops/lzops/match"
	"github.com/nisops/lzops/types"
)

// Config is the top-level configuration document.
type Config struct {
	AWS         AWSConfig               `yaml:"aws"`
	Logging     LoggingConfig           `yaml:"logging"`
	Performance PerformanceConfig       `yaml:"performance"`
	Features    FeaturesConfig          `yaml:"features"`
	Presets     map[string][]match.Rule `yaml:"presets,omitempty"`
	Services    map[string]ServiceRules `yaml:"services,omitempty"`
}

// AWSConfig groups account access settings.
type AWSConfig struct {
	Region      string       `yaml:"region"`
	Roles       RolesConfig  `yaml:"roles"`
	Zones       []types.Zone `yaml:"zones,omitempty"`
	ZonesURL    string       `yaml:"zones_url,omitempty"`
	TestAccount TestAccount  `yaml:"test_account,omitempty"`
}

// RolesConfig names the roles assumed per zone.
type RolesConfig struct {
	Viewer    string `yaml:"viewer"`
	Provision string `yaml:"provision"`
}

// TestAccount is a single-account override for test runs.
type TestAccount struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// LoggingConfig controls the log sinks.
type LoggingConfig struct {
	Level      string         `yaml:"level"`
	Console    bool           `yaml:"console"`
	File       bool           `yaml:"file"`
	Path       string         `yaml:"path"`
	Structured bool           `yaml:"structured"`
	Rotation   RotationConfig `yaml:"rotation"`
}

// RotationConfig caps log file growth.
type RotationConfig struct {
	MaxSizeMB int `yaml:"max_size_mb"`
	Backups   int `yaml:"backups"`
}

// PerformanceConfig bounds concurrency and provider calls.
type PerformanceConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
}

// FeaturesConfig holds execution gate defaults.
type FeaturesConfig struct {
	DryRun              bool `yaml:"dry_run"`
	ConfirmationPrompts bool `yaml:"confirmation_prompts"`
}

// ServiceRules is one service's default match policy fragment. Rules
// can be given inline or by preset name; presets resolve at load.
type ServiceRules struct {
	Include        []match.Rule `yaml:"include,omitempty"`
	Exclude        []match.Rule `yaml:"exclude,omitempty"`
	IncludePresets []string     `yaml:"include_presets,omitempty"`
	ExcludePresets []string     `yaml:"exclude_presets,omitempty"`
}

// Load reads, overlays, validates and defaults a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns a usable configuration without a file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

// applyEnv overlays environment variables on the loaded document.
func (c *Config) applyEnv() {
	if v := os.Getenv("LZOPS_REGION"); v != "" {
		c.AWS.Region = v
	} else if v := os.Getenv("AWS_REGION"); v != "" && c.AWS.Region == "" {
		c.AWS.Region = v
	}
	if v := os.Getenv("LZOPS_PROVISION_ROLE"); v != "" {
		c.AWS.Roles.Provision = v
	}
	if v := os.Getenv("LZOPS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LZOPS_DRY_RUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Features.DryRun = b
		}
	}
}

func (c *Config) applyDefaults() {
	if c.AWS.Region == "" {
		c.AWS.Region = "ap-southeast-2"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Path == "" {
		c.Logging.Path = "logs/lzops.log"
	}
	if c.Logging.Rotation.MaxSizeMB == 0 {
		c.Logging.Rotation.MaxSizeMB = 10
	}
	if c.Logging.Rotation.Backups == 0 {
		c.Logging.Rotation.Backups = 5
	}
	if c.Performance.BatchSize == 0 {
		c.Performance.BatchSize = 4
	}
	if c.Performance.Timeout == 0 {
		c.Performance.Timeout = 30 * time.Second
	}
	if c.Performance.RetryAttempts == 0 {
		c.Performance.RetryAttempts = 3
	}
}

// Validate ensures required fields and preset references resolve.
func (c *Config) Validate() error {
	if c.AWS.Region == "" {
		return fmt.Errorf("aws.region is required")
	}
	for i, zone := range c.AWS.Zones {
		z := c.fillZone(zone)
		if err := z.Validate(); err != nil {
			return fmt.Errorf("aws.zones[%d]: %w", i, err)
		}
	}
	for service, rules := range c.Services {
		for _, name := range append(rules.IncludePresets, rules.ExcludePresets...) {
			if _, ok := c.Presets[name]; !ok {
				return fmt.Errorf("services.%s references unknown preset %q", service, name)
			}
		}
	}
	return nil
}

// ZoneList returns the configured zones with role and region defaults
// filled in.
func (c *Config) ZoneList() []types.Zone {
	zones := make([]types.Zone, 0, len(c.AWS.Zones))
	for _, z := range c.AWS.Zones {
		zones = append(zones, c.fillZone(z))
	}
	return zones
}

func (c *Config) fillZone(z types.Zone) types.Zone {
	if z.RoleName == "" {
		z.RoleName = c.AWS.Roles.Provision
	}
	if z.Region == "" {
		z.Region = c.AWS.Region
	}
	return z
}

// DefaultPolicies resolves per-service rules and presets into the
// policy map handed to the scanner. The preset catalog is pure data;
// no preset name is special to the code.
func (c *Config) DefaultPolicies() match.ServicePolicies {
	policies := make(match.ServicePolicies, len(c.Services))
	for service, rules := range c.Services {
		policy := match.Policy{
			Includes: append([]match.Rule{}, rules.Include...),
			Excludes: append([]match.Rule{}, rules.Exclude...),
		}
		for _, name := range rules.IncludePresets {
			policy.Includes = append(policy.Includes, c.Presets[name]...)
		}
		for _, name := range rules.ExcludePresets {
			policy.Excludes = append(policy.Excludes, c.Presets[name]...)
		}
		policies[service] = policy
	}
	return policies
}
