package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf))

	z.Info("wrote file",
		String("path", "/tmp/a.mseed"),
		Int("traces", 3),
		Time("wmin", 86400.5),
		Err(errors.New("boom")),
	)

	out := buf.String()
	for _, want := range []string{
		`"path":"/tmp/a.mseed"`,
		`"traces":3`,
		`"wmin":"1970-01-02 00:00:00.500"`,
		`"error":"boom"`,
		`"message":"wrote file"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}

func TestNewConsoleLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewConsoleLogger(&buf, "warn")
	if err != nil {
		t.Fatalf("NewConsoleLogger() error = %v", err)
	}
	z := NewZerologAdapterWithLogger(l)

	z.Info("hidden")
	z.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn message should be written")
	}

	if _, err := NewConsoleLogger(&buf, "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
