package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with TOML keys. Pointers distinguish unset
// booleans from false.
type FileConfig struct {
	Paths          []string `toml:"paths"`
	Format         string   `toml:"format"`
	Pattern        string   `toml:"pattern"`
	Tmin           string   `toml:"tmin"`
	Tmax           string   `toml:"tmax"`
	Tinc           string   `toml:"tinc"`
	Snap           *bool    `toml:"snap"`
	Downsample     float64  `toml:"downsample"`
	Group          string   `toml:"group"`
	RenameNetwork  []string `toml:"rename_network"`
	RenameStation  []string `toml:"rename_station"`
	RenameLocation []string `toml:"rename_location"`
	RenameChannel  []string `toml:"rename_channel"`
	Output         string   `toml:"output"`
	OutputDir      string   `toml:"output_dir"`
	OutputFormat   string   `toml:"output_format"`
	Stations       string   `toml:"stations"`
	Events         string   `toml:"events"`
	CacheDir       string   `toml:"cache_dir"`
	FileCache      int      `toml:"file_cache"`
	Watch          *bool    `toml:"watch"`
	MetricsFile    string   `toml:"metrics_file"`
	LogLevel       string   `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.tracejack/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".tracejack", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map). Input paths
// from the file are used only when none were given on the command line.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if len(cfg.Paths) == 0 {
		s.setStrings("paths", fc.Paths, &cfg.Paths)
	}
	s.setString("format", fc.Format, &cfg.Format)
	s.setString("pattern", fc.Pattern, &cfg.Pattern)
	s.setString("tmin", fc.Tmin, &cfg.Tmin)
	s.setString("tmax", fc.Tmax, &cfg.Tmax)
	s.setString("tinc", fc.Tinc, &cfg.Tinc)
	s.setString("group", fc.Group, &cfg.Group)
	s.setString("output", fc.Output, &cfg.Output)
	s.setString("output-dir", fc.OutputDir, &cfg.OutputDir)
	s.setString("output-format", fc.OutputFormat, &cfg.OutputFormat)
	s.setString("stations", fc.Stations, &cfg.Stations)
	s.setString("events", fc.Events, &cfg.Events)
	s.setString("cache-dir", fc.CacheDir, &cfg.CacheDir)
	s.setString("metrics-file", fc.MetricsFile, &cfg.MetricsFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setStrings("rename-network", fc.RenameNetwork, &cfg.RenameNetwork)
	s.setStrings("rename-station", fc.RenameStation, &cfg.RenameStation)
	s.setStrings("rename-location", fc.RenameLocation, &cfg.RenameLocation)
	s.setStrings("rename-channel", fc.RenameChannel, &cfg.RenameChannel)

	s.setFloat("downsample", fc.Downsample, &cfg.Downsample)
	s.setInt("file-cache", fc.FileCache, &cfg.FileCache)

	s.setBool("snap", fc.Snap, &cfg.Snap)
	s.setBool("watch", fc.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
