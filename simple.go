package grib2

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// SimplePacking holds the parameters of data representation template 5.0:
// fixed-width codes with Y = (R + X·2^E)·10^(−D).
type SimplePacking struct {
	NumValues          int // packed values in section 7 (bitmap-valid points)
	ReferenceValue     float64
	BinaryScaleFactor  int
	DecimalScaleFactor int
	Bits               int
}

func (SimplePacking) packingMethod() {}

// parseSimplePacking decodes Section 5 template 5.0.
func parseSimplePacking(sec Section) (SimplePacking, error) {
	b := sec.Body
	// b[0:4]=length, b[4]=5, b[5:9]=number of values, b[9:11]=template
	// number, template data from b[11].
	if len(b) < 11+10 {
		return SimplePacking{}, errors.Wrapf(ErrTruncatedMessage,
			"section 5 at %d: template 5.0 too short (%d bytes)", sec.Offset, len(b))
	}
	n := binary.BigEndian.Uint32(b[5:9])
	if n > uint32(maxGridDim)*uint32(maxGridDim) {
		return SimplePacking{}, errors.Wrapf(ErrTruncatedMessage,
			"section 5 at %d: %d values exceeds any supported grid", sec.Offset, n)
	}

	t := b[11:]
	p := SimplePacking{
		NumValues:          int(n),
		ReferenceValue:     float64(math.Float32frombits(binary.BigEndian.Uint32(t[0:4]))),
		BinaryScaleFactor:  decodeScaleFactor(binary.BigEndian.Uint16(t[4:6])),
		DecimalScaleFactor: decodeScaleFactor(binary.BigEndian.Uint16(t[6:8])),
		Bits:               int(t[8]),
	}
	if p.Bits <= 0 || p.Bits > maxBitWidth {
		return SimplePacking{}, errors.Wrapf(ErrUnsupportedPackingMethod,
			"section 5 at %d: %d bits per value", sec.Offset, p.Bits)
	}
	return p, nil
}

// decodeScaleFactor decodes a GRIB2 sign-magnitude 2-byte scale factor.
// MSB is the sign bit (1=negative), remaining 15 bits are magnitude.
func decodeScaleFactor(raw uint16) int {
	magnitude := int(raw & 0x7FFF)
	if raw&0x8000 != 0 {
		return -magnitude
	}
	return magnitude
}

// unpackSimple decodes a template 7.0 data section into one value per grid
// point. data is the section 7 body without the 5-byte header. Points the
// bitmap marks invalid become NaN and consume nothing from the bitstream.
func unpackSimple(data []byte, p SimplePacking, bm *Bitmap, numPoints int) ([]float64, error) {
	valid := numPoints
	if bm != nil {
		valid = bm.CountValid()
	}
	if p.NumValues != valid {
		return nil, errors.Wrapf(ErrDataLengthMismatch,
			"section 5 declares %d packed values, bitmap leaves %d valid points",
			p.NumValues, valid)
	}

	scaleE := math.Ldexp(1.0, p.BinaryScaleFactor)
	scaleD := math.Pow(10, -float64(p.DecimalScaleFactor))

	br := newBitReader(data)
	out := make([]float64, numPoints)
	for i := 0; i < numPoints; i++ {
		if bm != nil && !bm.Valid(i) {
			out[i] = math.NaN()
			continue
		}
		x, err := br.read(p.Bits)
		if err != nil {
			return nil, errors.WithMessagef(err, "packed value at point %d", i)
		}
		out[i] = (p.ReferenceValue + float64(x)*scaleE) * scaleD
	}
	return out, nil
}

// packSimple is the encoding counterpart of unpackSimple, used by the
// round-trip tests: X = round((Y·10^D − R)·2^(−E)).
func packSimple(vals []float64, p SimplePacking) []byte {
	scaleE := math.Ldexp(1.0, -p.BinaryScaleFactor)
	scaleD := math.Pow(10, float64(p.DecimalScaleFactor))

	var w bitWriter
	for _, y := range vals {
		x := math.Round((y*scaleD - p.ReferenceValue) * scaleE)
		if x < 0 {
			x = 0
		}
		w.write(uint64(x), p.Bits)
	}
	return w.bytes()
}
