package cliconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Paths:         []string{"/data"},
				Tmax:          "2020-01-02 00:00:00",
				Downsample:    10,
				RenameChannel: []string{"/BH/HH/"},
				FileCache:     4,
				Snap:          &trueVal,
			},
			changed: map[string]bool{},
			expected: Config{
				Paths:         []string{"/data"},
				Tmax:          "2020-01-02 00:00:00",
				Downsample:    10,
				RenameChannel: []string{"/BH/HH/"},
				FileCache:     4,
				Snap:          true,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Stations: "/config/stations.yaml",
				Events:   "/config/events.yaml",
			},
			changed: map[string]bool{"stations": true},
			initial: Config{Stations: "/flag/stations.yaml"},
			expected: Config{
				Stations: "/flag/stations.yaml",
				Events:   "/config/events.yaml",
			},
		},
		{
			name:       "keeps positional paths",
			fileConfig: FileConfig{Paths: []string{"/config/data"}},
			changed:    map[string]bool{},
			initial:    Config{Paths: []string{"/cli/data"}},
			expected:   Config{Paths: []string{"/cli/data"}},
		},
		{
			name:       "explicit false overrides default",
			fileConfig: FileConfig{Watch: &falseVal},
			changed:    map[string]bool{},
			initial:    Config{Watch: true},
			expected:   Config{Watch: false},
		},
		{
			name:       "zero values leave defaults",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    DefaultConfig(),
			expected:   DefaultConfig(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			if err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed); err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		`paths = ["/data/a", "/data/b"]`,
		`pattern = "*.HAM3.*.BH?"`,
		`tinc = "1h"`,
		`group = "station"`,
		`rename_network = ["/GR/XX/"]`,
		`output_dir = "/out"`,
		`snap = true`,
		`file_cache = 32`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error: %v", err)
	}
	if len(fc.Paths) != 2 || fc.Paths[1] != "/data/b" {
		t.Errorf("Paths = %v", fc.Paths)
	}
	if fc.Pattern != "*.HAM3.*.BH?" || fc.Tinc != "1h" || fc.Group != "station" {
		t.Errorf("unexpected strings: %+v", fc)
	}
	if len(fc.RenameNetwork) != 1 || fc.RenameNetwork[0] != "/GR/XX/" {
		t.Errorf("RenameNetwork = %v", fc.RenameNetwork)
	}
	if fc.OutputDir != "/out" || fc.FileCache != 32 {
		t.Errorf("OutputDir = %q, FileCache = %d", fc.OutputDir, fc.FileCache)
	}
	if fc.Snap == nil || !*fc.Snap {
		t.Errorf("Snap = %v, want true", fc.Snap)
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFileConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("paths = [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFileConfig(bad); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if FileExists(path) {
		t.Error("FileExists() = true before the file was created")
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("FileExists() = false for an existing file")
	}
}
