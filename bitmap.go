package grib2

import (
	"math/bits"

	"github.com/pkg/errors"
)

// Bitmap is the per-point validity mask from Section 6, MSB-first in the
// grid's linear scan order: bit 7 of byte 0 is grid point 0.
type Bitmap struct {
	mask      []byte
	numPoints int
}

// parseBitmap decodes Section 6 for a grid of numPoints points. A nil
// Bitmap means every point is valid (indicator 255).
func parseBitmap(sec Section, numPoints int) (*Bitmap, error) {
	b := sec.Body
	if len(b) < 6 {
		return nil, errors.Wrapf(ErrTruncatedMessage,
			"section 6 at %d: too short (%d bytes)", sec.Offset, len(b))
	}
	switch b[5] {
	case 255:
		return nil, nil
	case 0:
		want := (numPoints + 7) / 8
		if len(b)-6 < want {
			return nil, errors.Wrapf(ErrTruncatedMessage,
				"section 6 at %d: bitmap needs %d bytes for %d points, got %d",
				sec.Offset, want, numPoints, len(b)-6)
		}
		return &Bitmap{mask: b[6 : 6+want], numPoints: numPoints}, nil
	default:
		// Non-zero indicators reference predefined bitmaps held outside
		// the message; decoding against a mask we do not have would mark
		// the wrong points missing.
		return nil, errors.Wrapf(ErrUnsupportedBitmapReference,
			"section 6 at %d: bitmap indicator %d", sec.Offset, b[5])
	}
}

// Valid reports whether grid point i carries data.
func (bm *Bitmap) Valid(i int) bool {
	if i < 0 || i >= bm.numPoints {
		return false
	}
	return (bm.mask[i/8]>>uint(7-(i%8)))&1 == 1
}

// CountValid returns the number of points carrying data.
func (bm *Bitmap) CountValid() int {
	n := 0
	full := bm.numPoints / 8
	for _, b := range bm.mask[:full] {
		n += bits.OnesCount8(b)
	}
	for i := full * 8; i < bm.numPoints; i++ {
		if bm.Valid(i) {
			n++
		}
	}
	return n
}
