package grib2

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// bitReader reads unsigned integers of arbitrary bit width from a byte
// slice. Bits are consumed MSB-first within each byte (big-endian bit
// order). It is an explicit cursor so the run-length decoder stays
// reentrant across concurrently decoded messages.
type bitReader struct {
	buf []byte
	pos int // current bit position
}

func newBitReader(b []byte) *bitReader { return &bitReader{buf: b} }

// read reads n bits (0 ≤ n ≤ 64) and returns them as a uint64.
// Byte-aligned reads of 8/16/32/64 bits take the binary.BigEndian fast path.
func (r *bitReader) read(n int) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	end := r.pos + n
	if end > len(r.buf)*8 {
		return 0, errors.Wrapf(ErrTruncatedMessage,
			"bit read of %d bits at position %d overflows %d-byte buffer",
			n, r.pos, len(r.buf))
	}
	if r.pos%8 == 0 {
		off := r.pos / 8
		switch n {
		case 8:
			r.pos = end
			return uint64(r.buf[off]), nil
		case 16:
			r.pos = end
			return uint64(binary.BigEndian.Uint16(r.buf[off:])), nil
		case 32:
			r.pos = end
			return uint64(binary.BigEndian.Uint32(r.buf[off:])), nil
		case 64:
			r.pos = end
			return binary.BigEndian.Uint64(r.buf[off:]), nil
		}
	}
	// Slow path: bit-by-bit for non-aligned or non-standard widths.
	var v uint64
	for i := 0; i < n; i++ {
		byteIdx := (r.pos + i) / 8
		bitIdx := 7 - ((r.pos + i) % 8) // MSB first within byte
		bit := (r.buf[byteIdx] >> bitIdx) & 1
		v = (v << 1) | uint64(bit)
	}
	r.pos = end
	return v, nil
}

// remaining returns the number of unread bits.
func (r *bitReader) remaining() int { return len(r.buf)*8 - r.pos }

// bitWriter is the encoding counterpart of bitReader, used by the simple
// packing encoder. Bits are emitted MSB-first within each byte; the final
// partial byte is zero-padded.
type bitWriter struct {
	buf  []byte
	nbit int // bits used in the last byte, 0..8
}

// write appends the low n bits of v, most significant first.
func (w *bitWriter) write(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		if w.nbit == 0 || w.nbit == 8 {
			w.buf = append(w.buf, 0)
			w.nbit = 0
		}
		bit := byte((v >> uint(i)) & 1)
		w.buf[len(w.buf)-1] |= bit << uint(7-w.nbit)
		w.nbit++
	}
}

// bytes returns the emitted stream, zero-padded to a byte boundary.
func (w *bitWriter) bytes() []byte { return w.buf }
