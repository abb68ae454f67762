package dsp

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/bft-labs/tracejack/internal/domain"
)

func TestDecitab(t *testing.T) {
	tests := []struct {
		n       int
		want    []int
		wantErr bool
	}{
		{1, []int{}, false},
		{2, []int{2}, false},
		{10, []int{5, 2}, false},
		{12, []int{3, 2, 2}, false},
		{100, []int{5, 5, 2, 2}, false},
		{11, nil, true},
		{0, nil, true},
	}

	for _, tt := range tests {
		got, err := Decitab(tt.n)
		if (err != nil) != tt.wantErr {
			t.Fatalf("Decitab(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
		}
		if err != nil {
			if !errors.Is(err, domain.ErrUnavailableDecimation) {
				t.Errorf("Decitab(%d) error = %v", tt.n, err)
			}
			continue
		}
		prod := 1
		for _, q := range got {
			prod *= q
		}
		if prod != tt.n {
			t.Errorf("Decitab(%d) = %v, product %d", tt.n, got, prod)
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("Decitab(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestLowpass_UnitGain(t *testing.T) {
	h := lowpass(31, 0.5)
	var sum float64
	for _, v := range h {
		sum += v
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("DC gain = %v, want 1", sum)
	}
	for k := range h {
		if math.Abs(h[k]-h[len(h)-1-k]) > 1e-12 {
			t.Fatalf("filter not symmetric at %d", k)
		}
	}
}

func constTrace(n int, deltat, tmin, v float64) *domain.Trace {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return &domain.Trace{Codes: domain.Codes{Network: "GR", Station: "BFO", Location: "", Channel: "HHZ"}, Deltat: deltat, Tmin: tmin, Samples: s}
}

func TestDecimator_Downsample(t *testing.T) {
	d := NewDecimator(0)
	tr := constTrace(1000, 0.01, 0.005, 3)

	out, err := d.Downsample(tr, 0.1)
	if err != nil {
		t.Fatalf("Downsample() error = %v", err)
	}
	if out.Deltat != 0.1 {
		t.Errorf("Deltat = %v, want 0.1", out.Deltat)
	}
	// snapped to the first input sample at or after the grid point 0.1
	if out.Tmin < 0.1 || out.Tmin >= 0.1+tr.Deltat {
		t.Errorf("Tmin = %v, want within one input sample after 0.1", out.Tmin)
	}
	// away from the edges the constant passes with unit gain
	mid := out.Samples[out.Len()/2]
	if math.Abs(mid-3) > 1e-9 {
		t.Errorf("mid sample = %v, want 3", mid)
	}
	if tr.Deltat != 0.01 || tr.Len() != 1000 {
		t.Error("input trace was modified")
	}
}

func TestDecimator_DownsampleErrors(t *testing.T) {
	d := NewDecimator(0)

	_, err := d.Downsample(constTrace(10, 0.01, 0, 1), 0.1)
	if !errors.Is(err, domain.ErrTooShort) {
		t.Errorf("short trace error = %v, want ErrTooShort", err)
	}

	_, err = d.Downsample(&domain.Trace{Deltat: 0.01}, 0.1)
	if !errors.Is(err, domain.ErrNoData) {
		t.Errorf("empty trace error = %v, want ErrNoData", err)
	}

	// one sample just before the next grid point: nothing left after snapping
	_, err = d.Downsample(constTrace(1, 0.01, 0.05, 1), 0.1)
	if !errors.Is(err, domain.ErrNoData) {
		t.Errorf("snapped-away trace error = %v, want ErrNoData", err)
	}

	_, err = d.Downsample(constTrace(1000, 0.01, 0, 1), 0.035)
	if !errors.Is(err, domain.ErrUnavailableDecimation) {
		t.Errorf("fractional ratio error = %v, want ErrUnavailableDecimation", err)
	}
	if errors.Is(err, domain.ErrTooShort) || errors.Is(err, domain.ErrNoData) {
		t.Error("unavailable decimation must be distinct from droppable errors")
	}
}

func TestDecimator_IdentityRatio(t *testing.T) {
	d := NewDecimator(0)
	tr := constTrace(5, 0.1, 0, 2)
	out, err := d.Downsample(tr, 0.1)
	if err != nil {
		t.Fatalf("Downsample() error = %v", err)
	}
	if out.Len() != 5 || out.Deltat != 0.1 {
		t.Errorf("identity downsample = %d samples at %v", out.Len(), out.Deltat)
	}
}

func TestDecimator_PaddingCoversChain(t *testing.T) {
	d := NewDecimator(0)
	const target = 1.0

	for _, n := range []int{1, 2, 4, 6, 8, 12, 16, 64, 100, 256, 1000} {
		seq, err := Decitab(n)
		if err != nil {
			t.Fatalf("Decitab(%d) error = %v", n, err)
		}
		// edge delay of the chain plus the target grid alignment
		dt := target / float64(n)
		need := target
		for _, q := range seq {
			need += float64(d.order/2) * dt
			dt *= float64(q)
		}
		if pad := d.Padding(target); pad < need {
			t.Errorf("ratio %d (chain %v): padding %v < needed %v", n, seq, pad, need)
		}
	}
}

func TestDecimator_PaddedRangeIsClean(t *testing.T) {
	d := NewDecimator(0)
	tests := []struct {
		deltat float64
		target float64
	}{
		{0.01, 0.02},
		{0.01, 0.04},
		{0.01, 0.12},
		{0.01, 1},
		{0.125, 1},
	}

	for _, tt := range tests {
		pad := d.Padding(tt.target)
		// data covers [10 - pad, 20 + pad)
		n := int(math.Round((10 + 2*pad) / tt.deltat))
		tr := constTrace(n, tt.deltat, 10-pad, 7)

		out, err := d.Downsample(tr, tt.target)
		if err != nil {
			t.Fatalf("%v -> %v: Downsample() error = %v", tt.deltat, tt.target, err)
		}
		win, err := out.Chop(10, 20)
		if err != nil {
			t.Fatalf("%v -> %v: Chop() error = %v", tt.deltat, tt.target, err)
		}
		if want := int(math.Round(10 / tt.target)); win.Len() != want {
			t.Errorf("%v -> %v: %d samples in [10, 20), want %d", tt.deltat, tt.target, win.Len(), want)
		}
		for k, v := range win.Samples {
			if math.Abs(v-7) > 1e-9 {
				t.Fatalf("%v -> %v: sample %d = %v, want 7", tt.deltat, tt.target, k, v)
			}
		}
	}
}
