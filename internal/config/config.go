// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"strada-check/internal/checks"
	"strada-check/internal/classify"
	"strada-check/internal/dataset"
	"strada-check/internal/paths"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults are the run settings used when neither a flag nor a profile sets them
type Defaults struct {
	Format    string `yaml:"format"`
	Checks    string `yaml:"checks"`
	Domain    bool   `yaml:"domain"`
	Parallel  int    `yaml:"parallel"`
	Verbose   bool   `yaml:"verbose"`
	Debug     bool   `yaml:"debug"`
	NoColor   bool   `yaml:"no_color"`
	YearStart int    `yaml:"year_start"`
	YearEnd   int    `yaml:"year_end"`
	OutputDir string `yaml:"output_dir"`
	Database  string `yaml:"database"`
	SaveRuns  bool   `yaml:"save_runs"`
}

// Web configures the HTTP front-end
type Web struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// Config represents the application configuration
type Config struct {
	Defaults Defaults `yaml:"defaults"`

	// Columns maps logical fields to export headers
	Columns dataset.Columns `yaml:"columns"`

	// Classification holds keyword tables and lookup maps
	Classification classify.Rules `yaml:"classification"`

	// Checks holds domain values used by the verification checks
	Checks checks.Settings `yaml:"checks"`

	Web Web `yaml:"web"`

	// Profiles for different analysis scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile represents a named set of run settings
type Profile struct {
	Format      string `yaml:"format"`
	Checks      string `yaml:"checks"`
	Domain      bool   `yaml:"domain"`
	Verbose     bool   `yaml:"verbose"`
	Debug       bool   `yaml:"debug"`
	NoColor     bool   `yaml:"no_color"`
	YearStart   int    `yaml:"year_start"`
	YearEnd     int    `yaml:"year_end"`
	Description string `yaml:"description"`
}

// Default returns the built-in configuration
func Default() *Config {
	config := &Config{
		Profiles: make(map[string]Profile),
	}

	config.Defaults.Format = "text"
	config.Defaults.Checks = "all"
	config.Defaults.Domain = false
	config.Defaults.Parallel = 0
	config.Defaults.OutputDir = "."
	config.Defaults.SaveRuns = true

	config.Web.Addr = "127.0.0.1:8080"
	config.Web.MaxUploadMB = 100

	config.Profiles["cycling"] = Profile{
		Format:      "text",
		Checks:      "all",
		Domain:      true,
		Description: "Cycling and micromobility datasets: generic checks plus C1-C3",
	}
	config.Profiles["generic"] = Profile{
		Format:      "text",
		Checks:      "G1,G2,G3,G4,G5,G6",
		Description: "Any STRADA extract: generic checks only",
	}

	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	c.Columns = c.Columns.WithDefaults()
	c.Classification = c.Classification.WithDefaults()
	c.Checks = c.Checks.WithDefaults()
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Tables are replaced wholesale when the file sets them
	config.Classification = classify.Rules{}
	config.Checks = checks.Settings{}

	defaultSaveRuns := config.Defaults.SaveRuns

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// YAML leaves absent bools false; restore true defaults
	if !containsField(data, "defaults", "save_runs") {
		config.Defaults.SaveRuns = defaultSaveRuns
	}

	config.applyDefaults()
	config.Defaults.OutputDir = paths.NormalizePath(config.Defaults.OutputDir)
	config.Defaults.Database = paths.NormalizePath(config.Defaults.Database)

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	for _, name := range []string{"strada.yaml", "strada.yml", ".strada-check.yaml", ".strada-check.yml"} {
		if fileExists(name) {
			return name
		}
	}

	standardConfig := paths.GetConfigFile()
	if fileExists(standardConfig) {
		return standardConfig
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// ListProfiles returns the available profile names, sorted
func (c *Config) ListProfiles() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// RunSettings is the effective outcome of defaults overlaid by a profile
type RunSettings struct {
	Format    string
	Checks    string
	Domain    bool
	Verbose   bool
	Debug     bool
	NoColor   bool
	YearStart int
	YearEnd   int
}

// Effective overlays profile (when non-nil) on the defaults. Flags are
// applied by the caller on top of the returned value.
func (c *Config) Effective(profile *Profile) RunSettings {
	s := RunSettings{
		Format:    c.Defaults.Format,
		Checks:    c.Defaults.Checks,
		Domain:    c.Defaults.Domain,
		Verbose:   c.Defaults.Verbose,
		Debug:     c.Defaults.Debug,
		NoColor:   c.Defaults.NoColor,
		YearStart: c.Defaults.YearStart,
		YearEnd:   c.Defaults.YearEnd,
	}
	if profile == nil {
		return s
	}
	if profile.Format != "" {
		s.Format = profile.Format
	}
	if profile.Checks != "" {
		s.Checks = profile.Checks
	}
	if profile.YearStart != 0 {
		s.YearStart = profile.YearStart
	}
	if profile.YearEnd != 0 {
		s.YearEnd = profile.YearEnd
	}
	s.Domain = s.Domain || profile.Domain
	s.Verbose = s.Verbose || profile.Verbose
	s.Debug = s.Debug || profile.Debug
	s.NoColor = s.NoColor || profile.NoColor
	return s
}

// containsField checks if a nested field exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	err := yaml.Unmarshal(data, &yamlData)
	if err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			_, exists := current[key]
			return exists
		}
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return false
		}
	}
	return false
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: configuration cannot be nil", ErrInvalidConfig)
	}

	if config.Defaults.Parallel < 0 {
		return fmt.Errorf("%w: defaults.parallel must not be negative", ErrInvalidConfig)
	}
	if err := validateYears(config.Defaults.YearStart, config.Defaults.YearEnd); err != nil {
		return fmt.Errorf("%w: defaults: %v", ErrInvalidConfig, err)
	}
	if err := validateCheckList(config.Defaults.Checks); err != nil {
		return fmt.Errorf("%w: defaults.checks: %v", ErrInvalidConfig, err)
	}
	if err := config.Classification.Validate(); err != nil {
		return fmt.Errorf("%w: classification: %v", ErrInvalidConfig, err)
	}
	if config.Web.MaxUploadMB < 0 {
		return fmt.Errorf("%w: web.max_upload_mb must not be negative", ErrInvalidConfig)
	}

	for _, name := range config.ListProfiles() {
		profile := config.Profiles[name]
		if err := validateYears(profile.YearStart, profile.YearEnd); err != nil {
			return fmt.Errorf("%w: profile %q: %v", ErrInvalidConfig, name, err)
		}
		if err := validateCheckList(profile.Checks); err != nil {
			return fmt.Errorf("%w: profile %q checks: %v", ErrInvalidConfig, name, err)
		}
	}

	for _, p := range []string{config.Defaults.OutputDir, config.Defaults.Database} {
		if err := paths.ValidatePath(p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func validateYears(start, end int) error {
	if start != 0 && end != 0 && start > end {
		return fmt.Errorf("year_start %d is after year_end %d", start, end)
	}
	return nil
}

func validateCheckList(list string) error {
	var unknown []string
	for _, id := range checks.ParseCheckIDs(list) {
		if _, ok := checks.Lookup(id); !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown check ids: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
// This is the shared helper used by both the CLI and the web server.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		// Fall back to defaults so a bad config file never blocks a run
		cfg = Default()
	}
	return cfg
}
