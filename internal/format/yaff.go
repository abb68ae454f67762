package format

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/golang/snappy"

	"github.com/bft-labs/tracejack/internal/domain"
)

// YAFF file layout:
//
//	magic "YAFF" | version(1B) | frame*
//
// and each frame:
//
//	headerLen(4B BE) | payloadLen(4B BE) | header | payload | crc32c(header|payload)
//
// The header holds the four codes as length-prefixed strings followed by
// tmin, deltat (float64 BE) and the sample count (4B BE). The payload is the
// snappy block encoding of the little-endian float64 samples.
const (
	yaffMagic   = "YAFF"
	yaffVersion = 1
	// yaffMaxFrame bounds header and payload lengths read from a file.
	yaffMaxFrame = 1 << 30
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

type yaffCodec struct{}

func (yaffCodec) Encode(w io.Writer, traces []*domain.Trace) error {
	if err := checkTraces(YAFF, traces); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(yaffMagic)
	bw.WriteByte(yaffVersion)

	var hdr bytes.Buffer
	for _, tr := range traces {
		hdr.Reset()
		for _, s := range []string{tr.Codes.Network, tr.Codes.Station, tr.Codes.Location, tr.Codes.Channel} {
			if len(s) > math.MaxUint8 {
				return fmt.Errorf("encode yaff: code %q too long", s)
			}
			hdr.WriteByte(byte(len(s)))
			hdr.WriteString(s)
		}
		binary.Write(&hdr, binary.BigEndian, tr.Tmin)
		binary.Write(&hdr, binary.BigEndian, tr.Deltat)
		binary.Write(&hdr, binary.BigEndian, uint32(len(tr.Samples)))

		raw := make([]byte, 8*len(tr.Samples))
		for i, v := range tr.Samples {
			binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
		}
		payload := snappy.Encode(nil, raw)

		crc := crc32.Update(0, crcTable, hdr.Bytes())
		crc = crc32.Update(crc, crcTable, payload)

		var lens [8]byte
		binary.BigEndian.PutUint32(lens[0:], uint32(hdr.Len()))
		binary.BigEndian.PutUint32(lens[4:], uint32(len(payload)))
		bw.Write(lens[:])
		bw.Write(hdr.Bytes())
		bw.Write(payload)
		binary.Write(bw, binary.BigEndian, crc)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write yaff: %w", err)
	}
	return nil
}

func (yaffCodec) Decode(r io.Reader) ([]*domain.Trace, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(yaffMagic)+1)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("read yaff magic: %w", err)
	}
	if string(magic[:len(yaffMagic)]) != yaffMagic {
		return nil, fmt.Errorf("bad magic: %w", ErrCorrupt)
	}
	if magic[len(yaffMagic)] != yaffVersion {
		return nil, fmt.Errorf("unsupported yaff version %d", magic[len(yaffMagic)])
	}

	var traces []*domain.Trace
	for {
		var lens [8]byte
		_, err := io.ReadFull(br, lens[:])
		if errors.Is(err, io.EOF) {
			return traces, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read yaff frame %d: %w", len(traces), err)
		}
		hlen := binary.BigEndian.Uint32(lens[0:])
		plen := binary.BigEndian.Uint32(lens[4:])
		if hlen > yaffMaxFrame || plen > yaffMaxFrame {
			return nil, fmt.Errorf("frame %d too large: %w", len(traces), ErrCorrupt)
		}
		body := make([]byte, int(hlen)+int(plen)+4)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, fmt.Errorf("read yaff frame %d: %w", len(traces), err)
		}
		data, sum := body[:len(body)-4], binary.BigEndian.Uint32(body[len(body)-4:])
		if crc32.Checksum(data, crcTable) != sum {
			return nil, fmt.Errorf("frame %d checksum mismatch: %w", len(traces), ErrCorrupt)
		}
		tr, err := decodeYAFFFrame(data[:hlen], data[hlen:])
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", len(traces), err)
		}
		traces = append(traces, tr)
	}
}

func decodeYAFFFrame(hdr, payload []byte) (*domain.Trace, error) {
	var codes [4]string
	for i := range codes {
		if len(hdr) < 1 || len(hdr) < 1+int(hdr[0]) {
			return nil, ErrCorrupt
		}
		n := int(hdr[0])
		codes[i] = string(hdr[1 : 1+n])
		hdr = hdr[1+n:]
	}
	if len(hdr) != 20 {
		return nil, ErrCorrupt
	}
	tmin := math.Float64frombits(binary.BigEndian.Uint64(hdr[0:]))
	deltat := math.Float64frombits(binary.BigEndian.Uint64(hdr[8:]))
	n := int(binary.BigEndian.Uint32(hdr[16:]))
	if err := checkDeltat(deltat); err != nil {
		return nil, err
	}

	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("decompress samples: %w", err)
	}
	if len(raw) != 8*n {
		return nil, fmt.Errorf("payload holds %d bytes for %d samples: %w", len(raw), n, ErrCorrupt)
	}
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return &domain.Trace{
		Codes:   domain.Codes{Network: codes[0], Station: codes[1], Location: codes[2], Channel: codes[3]},
		Deltat:  deltat,
		Tmin:    tmin,
		Samples: samples,
	}, nil
}
