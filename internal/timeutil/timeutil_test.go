package timeutil

import (
	"errors"
	"math"
	"testing"

	"github.com/bft-labs/tracejack/internal/domain"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1970-01-01 00:00:00", 0, false},
		{"2020-01-01 00:00:00", 1577836800, false},
		{"2020-01-01 00:00:00.5", 1577836800.5, false},
		{"2020-01-01 00:00:01.250", 1577836801.25, false},
		{"2020-01-01 00:00:00.", 1577836800, false},
		{" 2020-01-01 00:00:00 ", 1577836800, false},
		{"2020-01-01T00:00:00", 0, true},
		{"2020-01-01 00:00:00.5x", 0, true},
		{"yesterday", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTime() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, domain.ErrInvalidConfig) {
					t.Errorf("error %v does not wrap ErrInvalidConfig", err)
				}
				return
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ParseTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if got := FormatTime(1577836800.5, 3); got != "2020-01-01 00:00:00.500" {
		t.Errorf("FormatTime() = %q", got)
	}
	if got := FormatTime(1577836800.9996, 3); got != "2020-01-01 00:00:01.000" {
		t.Errorf("FormatTime() carry = %q", got)
	}
	if got := FormatFilename(1577836800.25, 0); got != "2020-01-01_00-00-00" {
		t.Errorf("FormatFilename() = %q", got)
	}
	if got := FormatFilename(1577836800.25, 3); got != "2020-01-01_00-00-00.250" {
		t.Errorf("FormatFilename() ms = %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	epoch := 1600000000.123
	got, err := ParseTime(FormatTime(epoch, 3))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-epoch) > 1e-6 {
		t.Errorf("round trip = %v, want %v", got, epoch)
	}
	if d := FromTime(ToTime(epoch)) - epoch; math.Abs(d) > 1e-6 {
		t.Errorf("ToTime/FromTime drift = %v", d)
	}
}
