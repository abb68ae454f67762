package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/format"
	"github.com/bft-labs/tracejack/internal/plan"
)

func writeArchive(t *testing.T, dir string) {
	t.Helper()
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = float64(i)
	}
	tr := &domain.Trace{
		Codes:   domain.Codes{Network: "GR", Station: "BFO", Channel: "BHZ"},
		Deltat:  1,
		Samples: samples,
	}
	f, err := os.Create(filepath.Join(dir, "bfo.yaff"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := format.YAFF.Codec(nil).Encode(f, []*domain.Trace{tr}); err != nil {
		t.Fatal(err)
	}
}

func TestExecute(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	in := t.TempDir()
	writeArchive(t, in)

	tests := []struct {
		name      string
		args      func(out string) []string
		wantCode  int
		wantFiles int
	}{
		{
			name: "writes one file per window",
			args: func(out string) []string {
				return []string{in, "--tinc", "50", "--output-dir", out, "--output-format", "text", "--log-level", "error", "--watch=false"}
			},
			wantCode:  exitOK,
			wantFiles: 2,
		},
		{
			name: "metrics file",
			args: func(out string) []string {
				return []string{in, "--tinc", "25", "--output-dir", out, "--metrics-file", filepath.Join(out, "metrics.prom"), "--log-level", "error"}
			},
			wantCode:  exitOK,
			wantFiles: 5,
		},
		{
			name:     "missing output",
			args:     func(string) []string { return []string{in} },
			wantCode: exitError,
		},
		{
			name:     "missing paths",
			args:     func(out string) []string { return []string{"--output-dir", out} },
			wantCode: exitError,
		},
		{
			name: "unknown output format",
			args: func(out string) []string {
				return []string{in, "--output-dir", out, "--output-format", "gse2"}
			},
			wantCode: exitError,
		},
		{
			name: "empty selection",
			args: func(out string) []string {
				return []string{in, "--output-dir", out, "--pattern", "*.HAM3.*.*"}
			},
			wantCode: exitError,
		},
		{
			name: "missing config file",
			args: func(out string) []string {
				return []string{in, "--output-dir", out, "--config", filepath.Join(out, "none.toml")}
			},
			wantCode: exitError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := t.TempDir()
			if code := execute(tt.args(out)); code != tt.wantCode {
				t.Fatalf("execute() = %d, want %d", code, tt.wantCode)
			}
			entries, err := os.ReadDir(out)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != tt.wantFiles {
				t.Errorf("got %d files in output, want %d", len(entries), tt.wantFiles)
			}
		})
	}
}

func TestUnitHelp(t *testing.T) {
	help := unitHelp()
	if help != "s|m|h|d" {
		t.Errorf("unitHelp() = %q", help)
	}
	for _, suffix := range strings.Split(help, "|") {
		if _, err := plan.ParseDuration("2" + suffix); err != nil {
			t.Errorf("advertised unit %q rejected: %v", suffix, err)
		}
	}
}
