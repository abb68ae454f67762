package format

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/bft-labs/tracejack/internal/catalog"
	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/timeutil"
)

const (
	sacFloats     = 70
	sacInts       = 40
	sacHeaderSize = 632
	sacIntOffset  = sacFloats * 4
	sacStrOffset  = sacIntOffset + sacInts*4
	sacVersion    = 6

	sacUndef    = -12345
	sacUndefStr = "-12345"
)

// float header words
const (
	sacDelta  = 0
	sacDepMin = 1
	sacDepMax = 2
	sacScale  = 3
	sacB      = 5
	sacE      = 6
	sacO      = 7
	sacStla   = 31
	sacStlo   = 32
	sacStel   = 33
	sacStdp   = 34
	sacEvla   = 35
	sacEvlo   = 36
	sacEvdp   = 38
	sacMag    = 39
	sacDepMen = 56
	sacCmpaz  = 57
	sacCmpinc = 58
)

// integer header words
const (
	sacNzYear  = 0
	sacNzJday  = 1
	sacNzHour  = 2
	sacNzMin   = 3
	sacNzSec   = 4
	sacNzMsec  = 5
	sacNvhdr   = 6
	sacNpts    = 9
	sacIftype  = 15
	sacIdep    = 16
	sacIztype  = 17
	sacLeven   = 35
	sacLpspol  = 36
	sacLovrok  = 37
	sacLcalda  = 38
	sacITime   = 1
	sacIUnkn   = 5
	sacIB      = 9
)

// string header fields as byte offset and width
var (
	sacKstnm  = [2]int{sacStrOffset, 8}
	sacKevnm  = [2]int{sacStrOffset + 8, 16}
	sacKhole  = [2]int{sacStrOffset + 24, 8}
	sacKcmpnm = [2]int{sacStrOffset + 160, 8}
	sacKnetwk = [2]int{sacStrOffset + 168, 8}
)

// sacCodec writes little-endian SAC v6 files and reads either byte order.
// Station coordinates and the orientation of the channel are taken from the
// catalog when it lists the station; the origin of the latest event before
// the trace start fills the event fields.
type sacCodec struct {
	catalog *catalog.Catalog
}

type sacHeader struct {
	f [sacFloats]float32
	i [sacInts]int32
	s [sacHeaderSize - sacStrOffset]byte
}

func newSACHeader() *sacHeader {
	h := &sacHeader{}
	for k := range h.f {
		h.f[k] = sacUndef
	}
	for k := range h.i {
		h.i[k] = sacUndef
	}
	for _, k := range []int{sacLeven, sacLpspol, sacLovrok, sacLcalda} {
		h.i[k] = 0
	}
	for off := 0; off < len(h.s); off += 8 {
		putPadded(h.s[off:off+8], sacUndefStr)
	}
	// kevnm is a single 16 byte field
	putPadded(h.s[8:24], sacUndefStr)
	return h
}

func (h *sacHeader) setString(field [2]int, v string) {
	if v == "" {
		v = sacUndefStr
	}
	off := field[0] - sacStrOffset
	putPadded(h.s[off:off+field[1]], v)
}

func (h *sacHeader) getString(field [2]int) string {
	off := field[0] - sacStrOffset
	v := strings.TrimRight(string(h.s[off:off+field[1]]), " \x00")
	if v == sacUndefStr {
		return ""
	}
	return v
}

func (c sacCodec) Encode(w io.Writer, traces []*domain.Trace) error {
	if err := checkTraces(SAC, traces); err != nil {
		return err
	}
	tr := traces[0]
	h := newSACHeader()

	ref := timeutil.ToTime(tr.Tmin).Truncate(time.Millisecond)
	b := tr.Tmin - timeutil.FromTime(ref)

	h.f[sacDelta] = float32(tr.Deltat)
	h.f[sacScale] = 1
	h.f[sacB] = float32(b)
	h.f[sacE] = float32(b + float64(len(tr.Samples)-1)*tr.Deltat)
	lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, v := range tr.Samples {
		lo, hi, sum = math.Min(lo, v), math.Max(hi, v), sum+v
	}
	h.f[sacDepMin] = float32(lo)
	h.f[sacDepMax] = float32(hi)
	h.f[sacDepMen] = float32(sum / float64(len(tr.Samples)))

	h.i[sacNzYear] = int32(ref.Year())
	h.i[sacNzJday] = int32(ref.YearDay())
	h.i[sacNzHour] = int32(ref.Hour())
	h.i[sacNzMin] = int32(ref.Minute())
	h.i[sacNzSec] = int32(ref.Second())
	h.i[sacNzMsec] = int32(ref.Nanosecond() / int(time.Millisecond))
	h.i[sacNvhdr] = sacVersion
	h.i[sacNpts] = int32(len(tr.Samples))
	h.i[sacIftype] = sacITime
	h.i[sacIdep] = sacIUnkn
	h.i[sacIztype] = sacIB
	h.i[sacLeven] = 1
	h.i[sacLovrok] = 1
	h.i[sacLcalda] = 1

	h.setString(sacKstnm, tr.Codes.Station)
	h.setString(sacKhole, tr.Codes.Location)
	h.setString(sacKcmpnm, tr.Codes.Channel)
	h.setString(sacKnetwk, tr.Codes.Network)

	if st, ok := c.catalog.StationFor(tr.Codes, tr.Tmin, tr.Tmax()); ok {
		h.f[sacStla] = float32(st.Lat)
		h.f[sacStlo] = float32(st.Lon)
		h.f[sacStel] = float32(st.Elevation)
		h.f[sacStdp] = float32(st.Depth)
		if ch, ok := st.Channel(tr.Codes.Channel); ok {
			h.f[sacCmpaz] = float32(ch.Azimuth)
			h.f[sacCmpinc] = float32(ch.Dip + 90)
		}
	}
	if ev, ok := c.catalog.EventBefore(tr.Tmin); ok {
		h.f[sacO] = float32(ev.Time - timeutil.FromTime(ref))
		h.f[sacEvla] = float32(ev.Lat)
		h.f[sacEvlo] = float32(ev.Lon)
		h.f[sacEvdp] = float32(ev.Depth / 1000)
		h.f[sacMag] = float32(ev.Magnitude)
		h.setString(sacKevnm, ev.Name)
	}

	buf := make([]byte, sacHeaderSize+4*len(tr.Samples))
	le := binary.LittleEndian
	for k, v := range h.f {
		le.PutUint32(buf[4*k:], math.Float32bits(v))
	}
	for k, v := range h.i {
		le.PutUint32(buf[sacIntOffset+4*k:], uint32(v))
	}
	copy(buf[sacStrOffset:], h.s[:])
	for k, v := range tr.Samples {
		le.PutUint32(buf[sacHeaderSize+4*k:], math.Float32bits(float32(v)))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write sac: %w", err)
	}
	return nil
}

func (sacCodec) Decode(r io.Reader) ([]*domain.Trace, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read sac: %w", err)
	}
	if len(data) < sacHeaderSize {
		return nil, fmt.Errorf("decode sac: file shorter than header")
	}

	var bo binary.ByteOrder = binary.LittleEndian
	if bo.Uint32(data[sacIntOffset+4*sacNvhdr:]) != sacVersion {
		bo = binary.BigEndian
		if bo.Uint32(data[sacIntOffset+4*sacNvhdr:]) != sacVersion {
			return nil, fmt.Errorf("decode sac: not a SAC v6 file")
		}
	}

	h := &sacHeader{}
	for k := range h.f {
		h.f[k] = math.Float32frombits(bo.Uint32(data[4*k:]))
	}
	for k := range h.i {
		h.i[k] = int32(bo.Uint32(data[sacIntOffset+4*k:]))
	}
	copy(h.s[:], data[sacStrOffset:sacHeaderSize])

	if h.i[sacLeven] != 1 || h.i[sacIftype] != sacITime {
		return nil, fmt.Errorf("decode sac: only evenly sampled time series are supported")
	}
	n := int(h.i[sacNpts])
	if n < 0 || sacHeaderSize+4*n > len(data) {
		return nil, fmt.Errorf("decode sac: npts %d exceeds file size", n)
	}

	ref := time.Date(int(h.i[sacNzYear]), 1, 1, int(h.i[sacNzHour]), int(h.i[sacNzMin]), int(h.i[sacNzSec]), int(h.i[sacNzMsec])*int(time.Millisecond), time.UTC).
		AddDate(0, 0, int(h.i[sacNzJday])-1)

	deltat := float64(h.f[sacDelta])
	if err := checkDeltat(deltat); err != nil {
		return nil, err
	}

	samples := make([]float64, n)
	for k := range samples {
		samples[k] = float64(math.Float32frombits(bo.Uint32(data[sacHeaderSize+4*k:])))
	}
	tr := &domain.Trace{
		Codes: domain.Codes{
			Network:  h.getString(sacKnetwk),
			Station:  h.getString(sacKstnm),
			Location: h.getString(sacKhole),
			Channel:  h.getString(sacKcmpnm),
		},
		Deltat:  deltat,
		Tmin:    timeutil.FromTime(ref) + float64(h.f[sacB]),
		Samples: samples,
	}
	return []*domain.Trace{tr}, nil
}
