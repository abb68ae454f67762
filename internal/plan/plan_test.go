package plan

import (
	"errors"
	"math"
	"testing"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/ports"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"10", 10, false},
		{"2.5", 2.5, false},
		{"30s", 30, false},
		{"5m", 300, false},
		{"2h", 7200, false},
		{"1d", 86400, false},
		{"0.5d", 43200, false},
		{"1.", 1, false},
		{"", 0, true},
		{"abc", 0, true},
		{"10x", 0, true},
		{"m", 0, true},
		{"0", 0, true},
		{"-5m", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, domain.ErrInvalidDuration) {
					t.Errorf("error %v does not wrap ErrInvalidDuration", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnit_Seconds(t *testing.T) {
	for u, want := range map[Unit]float64{Second: 1, Minute: 60, Hour: 3600, Day: 86400} {
		if got := u.Seconds(); got != want {
			t.Errorf("%v.Seconds() = %v, want %v", u, got, want)
		}
	}
}

func TestNiceFloor(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.5, 0.5},
		{1, 1},
		{5, 1},
		{50, 10},
		{599, 60},
		{3600, 3600},
		{100000, 86400},
		{172800, 172800},
		{1_000_000, 1_000_000},
	}
	for _, tt := range tests {
		if got := NiceFloor(tt.in); got != tt.want {
			t.Errorf("NiceFloor(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, b := range niceBoundaries {
		if NiceFloor(NiceFloor(b)) != NiceFloor(b) {
			t.Errorf("NiceFloor not idempotent at %v", b)
		}
	}
}

func TestGuessIncrement(t *testing.T) {
	// 100 Hz -> 5000 s raw -> 3600 s
	if got := GuessIncrement(0.01); got != 3600 {
		t.Errorf("GuessIncrement(0.01) = %v, want 3600", got)
	}
}

func ptr(v float64) *float64 { return &v }

func TestResolve_SnapWithoutTmin(t *testing.T) {
	stats := ports.ArchiveStats{Earliest: 1000.7, End: 5000, MinDeltat: 0.01}
	p, err := Resolve(Request{Increment: ptr(300), Snap: true}, stats)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := math.Floor(1000.7/300) * 300
	if p.Tmin != want {
		t.Errorf("Tmin = %v, want %v", p.Tmin, want)
	}
	if p.Tmin > stats.Earliest {
		t.Errorf("snapped Tmin %v is after earliest data %v", p.Tmin, stats.Earliest)
	}
	if p.Tmax != 5000 {
		t.Errorf("Tmax = %v, want 5000", p.Tmax)
	}
}

func TestResolve(t *testing.T) {
	stats := ports.ArchiveStats{Earliest: 100, End: 200, MinDeltat: 0.001}

	p, err := Resolve(Request{}, stats)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.Increment != 60 || !p.Guessed {
		t.Errorf("guessed increment = %v (guessed %v), want 60", p.Increment, p.Guessed)
	}
	if p.Padding != 0 {
		t.Errorf("Padding = %v, want 0 without resampling", p.Padding)
	}

	p, err = Resolve(Request{Tmin: ptr(120), Tmax: ptr(150), Increment: ptr(10), TargetDeltat: 0.5, Padding: 5}, stats)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.Tmin != 120 || p.Tmax != 150 || p.Padding != 5 {
		t.Errorf("plan = %+v", p)
	}

	p, err = Resolve(Request{Increment: ptr(10), Padding: 5}, stats)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.Padding != 0 {
		t.Errorf("Padding = %v, want 0 without resampling", p.Padding)
	}

	if _, err := Resolve(Request{Increment: ptr(10), TargetDeltat: 1, Padding: -1}, stats); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for negative padding, got %v", err)
	}

	if _, err := Resolve(Request{Tmin: ptr(300)}, stats); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for empty range, got %v", err)
	}
}

func TestPlan_Windows(t *testing.T) {
	p := Plan{Tmin: 1000, Tmax: 1000 + 3*60, Increment: 60}
	if n := p.Windows(); n != 3 {
		t.Fatalf("Windows() = %d, want 3", n)
	}

	prev := p.Tmin
	for i := 0; i < p.Windows(); i++ {
		w := p.Window(i)
		if w.Tmin != prev {
			t.Errorf("window %d starts at %v, want %v", i, w.Tmin, prev)
		}
		if w.Length() != 60 {
			t.Errorf("window %d length %v, want 60", i, w.Length())
		}
		prev = w.Tmax
	}
	if prev != p.Tmax {
		t.Errorf("coverage ends at %v, want %v", prev, p.Tmax)
	}

	clipped := Plan{Tmin: 0, Tmax: 150, Increment: 60}
	if n := clipped.Windows(); n != 3 {
		t.Fatalf("Windows() = %d, want 3", n)
	}
	if last := clipped.Window(2); last.Tmax != 150 {
		t.Errorf("last window Tmax = %v, want 150", last.Tmax)
	}
}
