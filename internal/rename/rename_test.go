package rename

import (
	"errors"
	"testing"

	"github.com/bft-labs/tracejack/internal/domain"
)

func mustRule(t *testing.T, f Field, expr string) Rule {
	t.Helper()
	r, err := ParseRule(f, expr)
	if err != nil {
		t.Fatalf("ParseRule(%v, %q) error = %v", f, expr, err)
	}
	return r
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"/^BH/SH/", false},
		{"/BH(.)/HH$1/", false},
		{"|a|b|", false},
		{"/X//", false},
		{"/^BH/SH", true},
		{"^BH/SH/", true},
		{"/a/b/c/", true},
		{"//SH/", true},
		{"/[/x/", true},
		{"/", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := ParseRule(Channel, tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRule(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidRenameRule) {
				t.Errorf("error %v does not wrap ErrInvalidRenameRule", err)
			}
		})
	}
}

func TestRules_Apply(t *testing.T) {
	in := domain.Codes{Network: "GR", Station: "BFO", Location: "", Channel: "BHZ"}

	got := Rules{mustRule(t, Channel, "/^BH/SH/")}.Apply(in)
	if got.Channel != "SHZ" {
		t.Errorf("Channel = %q, want SHZ", got.Channel)
	}

	composed := Rules{
		mustRule(t, Channel, "/^BH/SH/"),
		mustRule(t, Channel, "/^SH(.)$/EH$1/"),
	}.Apply(in)
	if composed.Channel != "EHZ" {
		t.Errorf("composed Channel = %q, want EHZ", composed.Channel)
	}

	indep := Rules{mustRule(t, Network, "/.*/BH/")}.Apply(in)
	if indep.Channel != "BHZ" {
		t.Errorf("network rule changed channel to %q", indep.Channel)
	}
	if indep.Network != "BH" {
		t.Errorf("Network = %q, want BH", indep.Network)
	}

	loc := Rules{mustRule(t, Location, "/^$/00/")}.Apply(in)
	if loc.Location != "00" {
		t.Errorf("Location = %q, want 00", loc.Location)
	}

	if Rules(nil).Apply(in) != in {
		t.Error("empty rules must not change codes")
	}
}

