package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.InputFiles(3)
	m.Window()
	m.Window()
	m.Batch(20 * time.Millisecond)
	m.Dropped(ReasonTooShort)
	m.Dropped(ReasonTooShort)
	m.Written(1500)
	m.Interrupted()

	path := filepath.Join(t.TempDir(), "run.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)

	for _, want := range []string{
		"tracejack_input_files 3",
		"tracejack_windows_total 2",
		"tracejack_batches_total 1",
		`tracejack_traces_dropped_total{reason="too_short"} 2`,
		`tracejack_traces_dropped_total{reason="no_data"} 0`,
		"tracejack_files_written_total 1",
		"tracejack_samples_written_total 1500",
		"tracejack_interrupted 1",
		"tracejack_batch_duration_seconds_count 1",
	} {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Window()
	m.Batch(time.Second)
	m.Dropped(ReasonNoData)
	m.Written(1)
	m.InputFiles(1)
	m.Interrupted()
	if m.Registry() != nil {
		t.Error("nil Metrics returned a registry")
	}
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x")); err != nil {
		t.Errorf("WriteTextfile() on nil = %v", err)
	}
}
