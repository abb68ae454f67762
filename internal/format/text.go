package format

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/timeutil"
)

// textCodec writes each trace as a header line
//
//	# NET.STA.LOC.CHA 2006-01-02 15:04:05.000000 DELTAT NSAMPLES
//
// followed by one sample per line.
type textCodec struct{}

func (textCodec) Encode(w io.Writer, traces []*domain.Trace) error {
	if err := checkTraces(Text, traces); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for _, tr := range traces {
		c := tr.Codes
		for _, v := range []string{c.Network, c.Station, c.Location, c.Channel} {
			if strings.ContainsAny(v, ". \t\n") {
				return fmt.Errorf("encode text: code %q of %s contains a separator", v, c)
			}
		}
		fmt.Fprintf(bw, "# %s %s %s %d\n", c, timeutil.FormatTime(tr.Tmin, 6),
			strconv.FormatFloat(tr.Deltat, 'g', -1, 64), len(tr.Samples))
		for _, v := range tr.Samples {
			bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			bw.WriteByte('\n')
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}

func (textCodec) Decode(r io.Reader) ([]*domain.Trace, error) {
	sc := bufio.NewScanner(r)
	var (
		traces []*domain.Trace
		cur    *domain.Trace
		want   int
		line   int
	)
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		if strings.HasPrefix(s, "#") {
			if cur != nil && len(cur.Samples) != want {
				return nil, fmt.Errorf("decode text line %d: trace %s has %d samples, header says %d", line, cur.Codes, len(cur.Samples), want)
			}
			tr, n, err := parseTextHeader(s)
			if err != nil {
				return nil, fmt.Errorf("decode text line %d: %w", line, err)
			}
			cur, want = tr, n
			traces = append(traces, tr)
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("decode text line %d: sample before header", line)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("decode text line %d: %w", line, err)
		}
		cur.Samples = append(cur.Samples, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	if cur != nil && len(cur.Samples) != want {
		return nil, fmt.Errorf("decode text: trace %s has %d samples, header says %d", cur.Codes, len(cur.Samples), want)
	}
	return traces, nil
}

func parseTextHeader(s string) (*domain.Trace, int, error) {
	f := strings.Fields(strings.TrimPrefix(s, "#"))
	if len(f) != 5 {
		return nil, 0, fmt.Errorf("malformed header %q", s)
	}
	codes := strings.Split(f[0], ".")
	if len(codes) != 4 {
		return nil, 0, fmt.Errorf("malformed codes %q", f[0])
	}
	tmin, err := timeutil.ParseTime(f[1] + " " + f[2])
	if err != nil {
		return nil, 0, err
	}
	deltat, err := strconv.ParseFloat(f[3], 64)
	if err != nil {
		return nil, 0, fmt.Errorf("bad sample interval %q", f[3])
	}
	if err := checkDeltat(deltat); err != nil {
		return nil, 0, err
	}
	n, err := strconv.Atoi(f[4])
	if err != nil || n < 0 {
		return nil, 0, fmt.Errorf("bad sample count %q", f[4])
	}
	tr := &domain.Trace{
		Codes:   domain.Codes{Network: codes[0], Station: codes[1], Location: codes[2], Channel: codes[3]},
		Deltat:  deltat,
		Tmin:    tmin,
		Samples: make([]float64, 0, n),
	}
	return tr, n, nil
}
