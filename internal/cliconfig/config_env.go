package cliconfig

import "os"

// EnvPrefix prefixes all environment variables read by ApplyEnvConfig.
const EnvPrefix = "TRACEJACK_"

// ApplyEnvConfig applies TRACEJACK_* environment variables to cfg.
// These override file config but are overridden by flags (checked via changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("format", env("FORMAT"), &cfg.Format)
	s.setString("pattern", env("PATTERN"), &cfg.Pattern)
	s.setString("tmin", env("TMIN"), &cfg.Tmin)
	s.setString("tmax", env("TMAX"), &cfg.Tmax)
	s.setString("tinc", env("TINC"), &cfg.Tinc)
	s.setString("group", env("GROUP"), &cfg.Group)
	s.setString("output", env("OUTPUT"), &cfg.Output)
	s.setString("output-dir", env("OUTPUT_DIR"), &cfg.OutputDir)
	s.setString("output-format", env("OUTPUT_FORMAT"), &cfg.OutputFormat)
	s.setString("stations", env("STATIONS"), &cfg.Stations)
	s.setString("events", env("EVENTS"), &cfg.Events)
	s.setString("cache-dir", env("CACHE_DIR"), &cfg.CacheDir)
	s.setString("metrics-file", env("METRICS_FILE"), &cfg.MetricsFile)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setFloatFromString("downsample", env("DOWNSAMPLE"), &cfg.Downsample); err != nil {
		return err
	}
	if err := s.setIntFromString("file-cache", env("FILE_CACHE"), &cfg.FileCache); err != nil {
		return err
	}

	s.setBoolFromString("snap", env("SNAP"), &cfg.Snap)
	s.setBoolFromString("watch", env("WATCH"), &cfg.Watch)

	return nil
}
