// Package format encodes and decodes waveform files.
//
// Four formats are supported, each in both directions:
//
//	mseed  miniSEED 2, uncompressed sample encodings
//	sac    binary SAC v6, one trace per file
//	text   one header line per trace followed by one sample per line
//	yaff   framed native format, snappy-compressed and CRC checked
package format

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/bft-labs/tracejack/internal/catalog"
	"github.com/bft-labs/tracejack/internal/domain"
)

// Format is a closed set of waveform file formats.
type Format int

const (
	MSeed Format = iota + 1
	SAC
	Text
	YAFF
)

// Codec reads and writes one file worth of traces.
type Codec interface {
	// Encode writes traces to w.
	Encode(w io.Writer, traces []*domain.Trace) error

	// Decode reads all traces from r.
	Decode(r io.Reader) ([]*domain.Trace, error)
}

type entry struct {
	name string
	exts []string
	// single is true for formats holding exactly one trace per file.
	single bool
	codec  func(cat *catalog.Catalog) Codec
}

var formats = map[Format]entry{
	MSeed: {name: "mseed", exts: []string{".mseed", ".miniseed", ".msd"}, codec: func(*catalog.Catalog) Codec { return mseedCodec{} }},
	SAC:   {name: "sac", exts: []string{".sac"}, single: true, codec: func(cat *catalog.Catalog) Codec { return sacCodec{catalog: cat} }},
	Text:  {name: "text", exts: []string{".txt", ".text"}, codec: func(*catalog.Catalog) Codec { return textCodec{} }},
	YAFF:  {name: "yaff", exts: []string{".yaff"}, codec: func(*catalog.Catalog) Codec { return yaffCodec{} }},
}

// All returns the formats in declaration order.
func All() []Format {
	return []Format{MSeed, SAC, Text, YAFF}
}

// Names returns the names of all formats.
func Names() []string {
	out := make([]string, 0, len(formats))
	for _, f := range All() {
		out = append(out, f.String())
	}
	return out
}

// Parse returns the format called name.
func Parse(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range All() {
		if formats[f].name == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("format %q (want one of %s): %w", name, strings.Join(Names(), ", "), domain.ErrUnknownFormat)
}

// Detect guesses the format of a file from its extension.
func Detect(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range All() {
		for _, e := range formats[f].exts {
			if e == ext {
				return f, nil
			}
		}
	}
	return 0, fmt.Errorf("detect format of %s: %w", path, domain.ErrUnknownFormat)
}

func (f Format) String() string {
	if e, ok := formats[f]; ok {
		return e.name
	}
	return "unknown"
}

// Extension returns the file name extension used for output, without dot.
func (f Format) Extension() string {
	if e, ok := formats[f]; ok {
		return strings.TrimPrefix(e.exts[0], ".")
	}
	return ""
}

// SingleTrace reports whether a file of this format holds exactly one trace.
func (f Format) SingleTrace() bool {
	return formats[f].single
}

// Codec returns the codec of the format. The catalog, which may be nil,
// supplies station and event metadata to formats that store it.
func (f Format) Codec(cat *catalog.Catalog) Codec {
	e, ok := formats[f]
	if !ok {
		return nil
	}
	return e.codec(cat)
}

// ErrCorrupt is returned when a file fails its checksum or holds values no
// valid trace can have.
var ErrCorrupt = errors.New("corrupt trace file")

// checkDeltat rejects sample intervals a decoded trace cannot be windowed with.
func checkDeltat(deltat float64) error {
	if !(deltat > 0) || math.IsInf(deltat, 0) {
		return fmt.Errorf("sample interval %v: %w", deltat, ErrCorrupt)
	}
	return nil
}

func checkTraces(f Format, traces []*domain.Trace) error {
	if len(traces) == 0 {
		return fmt.Errorf("encode %s: no traces", f)
	}
	if f.SingleTrace() && len(traces) != 1 {
		return fmt.Errorf("encode %s: %d traces for one file, format holds exactly one", f, len(traces))
	}
	for _, tr := range traces {
		if len(tr.Samples) == 0 {
			return fmt.Errorf("encode %s: trace %s has no samples", f, tr.Codes)
		}
		if !(tr.Deltat > 0) {
			return fmt.Errorf("encode %s: trace %s has invalid sample interval %v", f, tr.Codes, tr.Deltat)
		}
	}
	return nil
}
