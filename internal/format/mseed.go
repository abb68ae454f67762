package format

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/timeutil"
)

const (
	mseedRecordExp    = 12
	mseedRecordLen    = 1 << mseedRecordExp
	mseedFixedHeader  = 48
	mseedDataOffset   = 128
	mseedSamplesFloat = (mseedRecordLen - mseedDataOffset) / 8

	encInt16   = 1
	encInt32   = 3
	encFloat32 = 4
	encFloat64 = 5
)

// mseedCodec reads and writes miniSEED 2 data records. Output records are
// 4096 bytes, big-endian, float64 encoded, carrying blockettes 1000, 1001
// and 100. Input records may use encodings 1, 3, 4 and 5 in either byte
// order; Steim compression is not supported.
type mseedCodec struct{}

func (mseedCodec) Encode(w io.Writer, traces []*domain.Trace) error {
	if err := checkTraces(MSeed, traces); err != nil {
		return err
	}
	seq := 1
	rec := make([]byte, mseedRecordLen)
	for _, tr := range traces {
		if err := checkMSeedCodes(tr.Codes); err != nil {
			return err
		}
		for off := 0; off < len(tr.Samples); off += mseedSamplesFloat {
			end := min(off+mseedSamplesFloat, len(tr.Samples))
			tmin := tr.Tmin + float64(off)*tr.Deltat
			putMSeedRecord(rec, seq, tr, tmin, tr.Samples[off:end])
			if _, err := w.Write(rec); err != nil {
				return fmt.Errorf("write mseed record %d: %w", seq, err)
			}
			seq = seq%999999 + 1
		}
	}
	return nil
}

func checkMSeedCodes(c domain.Codes) error {
	for _, f := range []struct {
		name, v string
		n       int
	}{
		{"network", c.Network, 2},
		{"station", c.Station, 5},
		{"location", c.Location, 2},
		{"channel", c.Channel, 3},
	} {
		if len(f.v) > f.n {
			return fmt.Errorf("encode mseed: %s code %q longer than %d characters", f.name, f.v, f.n)
		}
	}
	return nil
}

func putPadded(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = ' '
	}
}

// btime splits t into the 100 microsecond resolution header time and the
// remaining microsecond offset for blockette 1001.
func btime(t float64) (time.Time, int8) {
	tt := timeutil.ToTime(t)
	r := tt.Round(100 * time.Microsecond)
	return r, int8(tt.Sub(r) / time.Microsecond)
}

func putMSeedRecord(rec []byte, seq int, tr *domain.Trace, tmin float64, samples []float64) {
	clear(rec)
	be := binary.BigEndian

	copy(rec[0:6], fmt.Sprintf("%06d", seq))
	rec[6] = 'D'
	rec[7] = ' '
	putPadded(rec[8:13], tr.Codes.Station)
	putPadded(rec[13:15], tr.Codes.Location)
	putPadded(rec[15:18], tr.Codes.Channel)
	putPadded(rec[18:20], tr.Codes.Network)

	t, usec := btime(tmin)
	be.PutUint16(rec[20:], uint16(t.Year()))
	be.PutUint16(rec[22:], uint16(t.YearDay()))
	rec[24] = byte(t.Hour())
	rec[25] = byte(t.Minute())
	rec[26] = byte(t.Second())
	be.PutUint16(rec[28:], uint16(t.Nanosecond()/100000))

	rate := 1 / tr.Deltat
	factor, mult := rateFactors(rate)
	be.PutUint16(rec[30:], uint16(len(samples)))
	be.PutUint16(rec[32:], uint16(factor))
	be.PutUint16(rec[34:], uint16(mult))
	rec[39] = 3
	be.PutUint16(rec[44:], mseedDataOffset)
	be.PutUint16(rec[46:], 48)

	// blockette 1000: data only SEED
	be.PutUint16(rec[48:], 1000)
	be.PutUint16(rec[50:], 56)
	rec[52] = encFloat64
	rec[53] = 1
	rec[54] = mseedRecordExp

	// blockette 1001: data extension
	be.PutUint16(rec[56:], 1001)
	be.PutUint16(rec[58:], 64)
	rec[61] = byte(usec)

	// blockette 100: sample rate
	be.PutUint16(rec[64:], 100)
	be.PutUint16(rec[66:], 0)
	be.PutUint32(rec[68:], math.Float32bits(float32(rate)))

	for i, v := range samples {
		be.PutUint64(rec[mseedDataOffset+8*i:], math.Float64bits(v))
	}
}

// rateFactors approximates rate with the fixed header factor and
// multiplier. Blockette 100 carries the exact value.
func rateFactors(rate float64) (int16, int16) {
	if rate >= 1 {
		f := math.Round(rate)
		if f <= math.MaxInt16 {
			return int16(f), 1
		}
		return math.MaxInt16, 1
	}
	p := math.Round(1 / rate)
	if p <= math.MaxInt16 {
		return -int16(p), 1
	}
	return -math.MaxInt16, 1
}

func rateFromFactors(f, m int16) float64 {
	ff, mm := float64(f), float64(m)
	switch {
	case f == 0 || m == 0:
		return 0
	case f > 0 && m > 0:
		return ff * mm
	case f > 0 && m < 0:
		return -ff / mm
	case f < 0 && m > 0:
		return -mm / ff
	default:
		return 1 / (ff * mm)
	}
}

var errMSeedTruncated = errors.New("truncated miniSEED record")

func (mseedCodec) Decode(r io.Reader) ([]*domain.Trace, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read mseed: %w", err)
	}

	var traces []*domain.Trace
	for off := 0; off < len(data); {
		tr, reclen, err := decodeMSeedRecord(data[off:])
		if err != nil {
			return nil, fmt.Errorf("decode mseed record at offset %d: %w", off, err)
		}
		off += reclen
		if tr == nil {
			continue
		}
		if n := len(traces); n > 0 && contiguous(traces[n-1], tr) {
			traces[n-1].Samples = append(traces[n-1].Samples, tr.Samples...)
			continue
		}
		traces = append(traces, tr)
	}
	return traces, nil
}

// contiguous reports whether b continues a without gap or overlap.
func contiguous(a, b *domain.Trace) bool {
	return a.Codes == b.Codes &&
		math.Abs(a.Deltat-b.Deltat) < 1e-6*a.Deltat &&
		math.Abs(b.Tmin-a.End()) < 0.5*a.Deltat
}

func mseedOrder(rec []byte) binary.ByteOrder {
	year := binary.BigEndian.Uint16(rec[20:])
	doy := binary.BigEndian.Uint16(rec[22:])
	if year >= 1900 && year <= 2500 && doy >= 1 && doy <= 366 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// decodeMSeedRecord decodes the record at the start of rec. It returns a nil
// trace for records without samples.
func decodeMSeedRecord(rec []byte) (*domain.Trace, int, error) {
	if len(rec) < mseedFixedHeader {
		return nil, 0, errMSeedTruncated
	}
	bo := mseedOrder(rec)

	codes := domain.Codes{
		Network:  strings.TrimSpace(string(rec[18:20])),
		Station:  strings.TrimSpace(string(rec[8:13])),
		Location: strings.TrimSpace(string(rec[13:15])),
		Channel:  strings.TrimSpace(string(rec[15:18])),
	}
	year := int(bo.Uint16(rec[20:]))
	doy := int(bo.Uint16(rec[22:]))
	start := time.Date(year, 1, 1, int(rec[24]), int(rec[25]), int(rec[26]), 0, time.UTC).
		AddDate(0, 0, doy-1).
		Add(time.Duration(bo.Uint16(rec[28:])) * 100 * time.Microsecond)

	nsamples := int(bo.Uint16(rec[30:]))
	rate := rateFromFactors(int16(bo.Uint16(rec[32:])), int16(bo.Uint16(rec[34:])))
	activity := rec[36]
	correction := int32(bo.Uint32(rec[40:]))
	dataOffset := int(bo.Uint16(rec[44:]))
	next := int(bo.Uint16(rec[46:]))

	encoding, wordOrder, reclen := -1, byte(1), 0
	for hops := 0; next != 0 && hops < 16; hops++ {
		if next+4 > len(rec) {
			return nil, 0, errMSeedTruncated
		}
		typ := bo.Uint16(rec[next:])
		body := rec[next:]
		switch typ {
		case 1000:
			if len(body) < 8 {
				return nil, 0, errMSeedTruncated
			}
			encoding = int(body[4])
			wordOrder = body[5]
			reclen = 1 << body[6]
		case 1001:
			if len(body) < 8 {
				return nil, 0, errMSeedTruncated
			}
			start = start.Add(time.Duration(int8(body[5])) * time.Microsecond)
		case 100:
			if len(body) < 8 {
				return nil, 0, errMSeedTruncated
			}
			rate = float64(math.Float32frombits(bo.Uint32(body[4:])))
		}
		next = int(bo.Uint16(body[2:]))
	}
	if reclen == 0 {
		return nil, 0, fmt.Errorf("record without blockette 1000")
	}
	if reclen > len(rec) {
		return nil, 0, errMSeedTruncated
	}
	if activity&0x02 == 0 {
		start = start.Add(time.Duration(correction) * 100 * time.Microsecond)
	}
	if nsamples == 0 || rate == 0 {
		return nil, reclen, nil
	}
	if err := checkDeltat(1 / rate); err != nil {
		return nil, 0, err
	}

	var dbo binary.ByteOrder = binary.BigEndian
	if wordOrder == 0 {
		dbo = binary.LittleEndian
	}
	samples, err := decodeSamples(rec[dataOffset:reclen], nsamples, encoding, dbo)
	if err != nil {
		return nil, 0, err
	}
	tr := &domain.Trace{
		Codes:   codes,
		Deltat:  1 / rate,
		Tmin:    timeutil.FromTime(start),
		Samples: samples,
	}
	return tr, reclen, nil
}

func decodeSamples(b []byte, n, encoding int, bo binary.ByteOrder) ([]float64, error) {
	var size int
	switch encoding {
	case encInt16:
		size = 2
	case encInt32, encFloat32:
		size = 4
	case encFloat64:
		size = 8
	default:
		return nil, fmt.Errorf("unsupported miniSEED encoding %d", encoding)
	}
	if n*size > len(b) {
		return nil, errMSeedTruncated
	}

	out := make([]float64, n)
	for i := range out {
		p := b[i*size:]
		switch encoding {
		case encInt16:
			out[i] = float64(int16(bo.Uint16(p)))
		case encInt32:
			out[i] = float64(int32(bo.Uint32(p)))
		case encFloat32:
			out[i] = float64(math.Float32frombits(bo.Uint32(p)))
		case encFloat64:
			out[i] = math.Float64frombits(bo.Uint64(p))
		}
	}
	return out, nil
}
