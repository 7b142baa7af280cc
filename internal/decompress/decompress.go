// Package decompress tries standard compressed-stream framings at
// several start offsets. A failed attempt is a non-match, not an error
// worth surfacing.
package decompress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"
)

// Framing identifies a compressed-stream container
type Framing string

const (
	FramingZlib    Framing = "zlib"    // wrapped deflate
	FramingDeflate Framing = "deflate" // raw deflate
	FramingGzip    Framing = "gzip"
	FramingZstd    Framing = "zstd"
	FramingLZ4     Framing = "lz4" // lz4 frame format
)

// StandardFramings are always tried, in this order
var StandardFramings = []Framing{FramingZlib, FramingDeflate, FramingGzip}

// ExtendedFramings add the container formats with magic numbers
var ExtendedFramings = []Framing{FramingZstd, FramingLZ4}

// DefaultMaxOutput bounds one decompression attempt
const DefaultMaxOutput = 16 << 20

var (
	// ErrEmpty is returned when a stream decodes to nothing
	ErrEmpty = errors.New("empty output")
	// ErrTooLarge is returned when output exceeds the configured cap
	ErrTooLarge = errors.New("output exceeds limit")
)

// Decompressor inflates buffers under several framings. It is safe for
// concurrent use.
type Decompressor struct {
	framings  []Framing
	maxOutput int64

	// zstd.Decoder is safe for concurrent DecodeAll
	zstd    *zstd.Decoder
	zstdErr error
}

// New creates a decompressor. Extended framings are appended to the
// standard ones when extended is set.
func New(extended bool, maxOutput int64) *Decompressor {
	framings := append([]Framing(nil), StandardFramings...)
	if extended {
		framings = append(framings, ExtendedFramings...)
	}
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}
	d := &Decompressor{
		framings:  framings,
		maxOutput: maxOutput,
	}
	if extended {
		d.zstd, d.zstdErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(uint64(maxOutput)),
		)
	}
	return d
}

// Framings returns the framings tried at every offset
func (d *Decompressor) Framings() []Framing {
	return d.framings
}

// Inflate decodes data[offset:] as one framing
func (d *Decompressor) Inflate(data []byte, framing Framing, offset int) ([]byte, error) {
	if offset < 0 || offset >= len(data) {
		return nil, fmt.Errorf("offset %d out of range", offset)
	}
	src := data[offset:]

	if framing == FramingZstd {
		return d.inflateZstd(src)
	}

	r, err := d.reader(framing, src)
	if err != nil {
		return nil, err
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	out, err := io.ReadAll(io.LimitReader(r, d.maxOutput+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > d.maxOutput {
		return nil, ErrTooLarge
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

func (d *Decompressor) reader(framing Framing, src []byte) (io.Reader, error) {
	switch framing {
	case FramingZlib:
		return zlib.NewReader(bytes.NewReader(src))
	case FramingDeflate:
		return flate.NewReader(bytes.NewReader(src)), nil
	case FramingGzip:
		return gzip.NewReader(bytes.NewReader(src))
	case FramingLZ4:
		if len(src) < 4 || !bytes.Equal(src[:4], lz4Magic) {
			return nil, errors.New("lz4: missing frame magic")
		}
		return lz4.NewReader(bytes.NewReader(src)), nil
	default:
		return nil, fmt.Errorf("unknown framing %q", framing)
	}
}

var (
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

func (d *Decompressor) inflateZstd(src []byte) ([]byte, error) {
	if len(src) < 4 || !bytes.Equal(src[:4], zstdMagic) {
		return nil, errors.New("zstd: missing frame magic")
	}
	if d.zstd == nil {
		if d.zstdErr != nil {
			return nil, fmt.Errorf("zstd: decoder unavailable: %w", d.zstdErr)
		}
		return nil, errors.New("zstd: framing not enabled")
	}
	out, err := d.zstd.DecodeAll(src, nil)
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
		return nil, ErrTooLarge
	}
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > d.maxOutput {
		return nil, ErrTooLarge
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

// Attempt is one successful decompression
type Attempt struct {
	Framing Framing
	Offset  int
	Data    []byte
}

// Visit is called for each successful attempt. Returning false stops
// the scan.
type Visit func(a Attempt) bool

// Scan tries every offset of plan (outer loop) under every framing
// (inner loop) and calls fn for each success. It returns the number of
// attempts made. stop is polled before each attempt; when it returns
// true the scan ends early.
func (d *Decompressor) Scan(data []byte, offsets []int, stop func() bool, fn Visit) int {
	attempts := 0
	for _, off := range offsets {
		if off >= len(data) {
			break
		}
		for _, f := range d.framings {
			if stop != nil && stop() {
				return attempts
			}
			attempts++
			out, err := d.Inflate(data, f, off)
			if err != nil {
				continue
			}
			if !fn(Attempt{Framing: f, Offset: off, Data: out}) {
				return attempts
			}
		}
	}
	return attempts
}

// All collects up to limit successful attempts, dropping outputs that
// are byte-identical to an earlier one. limit <= 0 means no limit.
func (d *Decompressor) All(data []byte, offsets []int, limit int, stop func() bool) ([]Attempt, int) {
	var found []Attempt
	seen := make(map[[32]byte]bool)
	attempts := d.Scan(data, offsets, stop, func(a Attempt) bool {
		sum := blake3.Sum256(a.Data)
		if seen[sum] {
			return true
		}
		seen[sum] = true
		found = append(found, a)
		return limit <= 0 || len(found) < limit
	})
	return found, attempts
}
