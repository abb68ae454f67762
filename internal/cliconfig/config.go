package cliconfig

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultOutputFormat is the output format when none is given.
const DefaultOutputFormat = "mseed"

// DetectFormat asks for input format detection by file extension.
const DetectFormat = "detect"

// Config holds CLI configuration for tracejack, as given by the user.
// Resolve turns it into the typed settings of a run.
type Config struct {
	Paths   []string
	Format  string
	Pattern string

	Tmin       string
	Tmax       string
	Tinc       string
	Snap       bool
	Downsample float64
	Group      string

	RenameNetwork  []string
	RenameStation  []string
	RenameLocation []string
	RenameChannel  []string

	Output       string
	OutputDir    string
	OutputFormat string

	Stations string
	Events   string

	CacheDir    string
	FileCache   int
	Watch       bool
	MetricsFile string
	LogLevel    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Format:       DetectFormat,
		Group:        "none",
		OutputFormat: DefaultOutputFormat,
		FileCache:    16,
		Watch:        true,
		LogLevel:     "info",
	}
}

// Validate checks presence and exclusivity of options. Values are parsed by
// Resolve.
func (c *Config) Validate() error {
	if len(c.Paths) == 0 {
		return fmt.Errorf("at least one input path is required")
	}
	if c.Output != "" && c.OutputDir != "" {
		return fmt.Errorf("--output and --output-dir are mutually exclusive")
	}
	if c.Output == "" && c.OutputDir == "" {
		return fmt.Errorf("one of --output or --output-dir is required")
	}
	if c.Downsample < 0 {
		return fmt.Errorf("downsample rate must not be negative")
	}
	if c.FileCache < 0 {
		return fmt.Errorf("file cache size must not be negative")
	}
	if c.Format == "" {
		c.Format = DetectFormat
	}
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutputFormat
	}
	if c.Group == "" {
		c.Group = "none"
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list value if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
