package grib2

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// RunLengthPacking holds the parameters of the producer's data
// representation template 5.200: run-length coded level values.
//
// The section 7 stream is a sequence of Bits-wide codes. A code ≤ MaxLevel
// opens a set as the level value; any directly following codes > MaxLevel
// are run-length digits in base LNGU = 2^Bits − 1 − MaxLevel, digit i
// contributing (code − MaxLevel − 1)·LNGU^i, and the run is 1 + the digit
// sum. A level code m resolves to Levels[m]·10^(−DecimalScaleFactor);
// "no data" points come solely from the bitmap.
type RunLengthPacking struct {
	NumValues          int
	Bits               int // code width, read per message, never assumed
	MaxLevel           int // highest level code used in this message (MAXV)
	DecimalScaleFactor int
	Levels             []int16 // data representative value indexed by level code
}

func (RunLengthPacking) packingMethod() {}

// parseRunLengthPacking decodes Section 5 template 5.200.
func parseRunLengthPacking(sec Section) (RunLengthPacking, error) {
	b := sec.Body
	// b[0:4]=length, b[4]=5, b[5:9]=number of values, b[9:11]=template
	// number, b[11]=bits per value, b[12:14]=MAXV, b[14:16]=maximum level,
	// b[16]=decimal scale factor, b[17:]=2-byte level values.
	if len(b) < 17 {
		return RunLengthPacking{}, errors.Wrapf(ErrTruncatedMessage,
			"section 5 at %d: template 5.200 too short (%d bytes)", sec.Offset, len(b))
	}
	if (len(b)-17)%2 != 0 {
		return RunLengthPacking{}, errors.Wrapf(ErrInconsistentLevelTable,
			"section 5 at %d: level table has a dangling byte", sec.Offset)
	}

	p := RunLengthPacking{
		NumValues:          int(binary.BigEndian.Uint32(b[5:9])),
		Bits:               int(b[11]),
		MaxLevel:           int(binary.BigEndian.Uint16(b[12:14])),
		DecimalScaleFactor: int(b[16]),
	}
	declaredLevels := int(binary.BigEndian.Uint16(b[14:16]))

	tableLen := (len(b) - 17) / 2
	p.Levels = make([]int16, tableLen)
	for i := range p.Levels {
		p.Levels[i] = int16(binary.BigEndian.Uint16(b[17+2*i : 19+2*i]))
	}

	if tableLen < 1 {
		return RunLengthPacking{}, errors.Wrapf(ErrInconsistentLevelTable,
			"section 5 at %d: empty level table", sec.Offset)
	}
	if tableLen != declaredLevels {
		return RunLengthPacking{}, errors.Wrapf(ErrInconsistentLevelTable,
			"section 5 at %d: %d level values declared, table carries %d",
			sec.Offset, declaredLevels, tableLen)
	}
	// Every emittable level code 0..MAXV must resolve against the table.
	if p.MaxLevel < 0 || p.MaxLevel >= tableLen {
		return RunLengthPacking{}, errors.Wrapf(ErrInconsistentLevelTable,
			"section 5 at %d: MAXV %d outside level table of %d entries",
			sec.Offset, p.MaxLevel, tableLen)
	}
	if p.Bits < 1 || p.Bits > maxBitWidth {
		return RunLengthPacking{}, errors.Wrapf(ErrInconsistentLevelTable,
			"section 5 at %d: %d bits per code", sec.Offset, p.Bits)
	}
	// At least one code above MAXV must exist to act as a run digit,
	// otherwise the base-LNGU expansion is undefined.
	if p.Bits >= 63 || (1<<uint(p.Bits))-1 <= uint64(p.MaxLevel) {
		return RunLengthPacking{}, errors.Wrapf(ErrInconsistentLevelTable,
			"section 5 at %d: %d-bit codes cannot carry run digits above MAXV %d",
			sec.Offset, p.Bits, p.MaxLevel)
	}
	return p, nil
}

// physicalLevels resolves the level table into physical values indexed by
// level code.
func (p RunLengthPacking) physicalLevels() []float64 {
	scaleD := math.Pow(10, -float64(p.DecimalScaleFactor))
	phys := make([]float64, len(p.Levels))
	for i, lv := range p.Levels {
		phys[i] = float64(lv) * scaleD
	}
	return phys
}

// unpackRunLength expands a template 7.200 data section into one value per
// grid point, in scan order. data is the section 7 body without the 5-byte
// header. Bitmap-invalid points become NaN without consuming run slots.
func unpackRunLength(data []byte, p RunLengthPacking, bm *Bitmap, numPoints int) ([]float64, error) {
	phys := p.physicalLevels()
	maxv := uint64(p.MaxLevel)
	lngu := (uint64(1) << uint(p.Bits)) - 1 - maxv

	br := newBitReader(data)
	out := make([]float64, numPoints)
	pos := 0

	// fillInvalid advances pos past bitmap-invalid points, writing NaN.
	fillInvalid := func() {
		for pos < numPoints && bm != nil && !bm.Valid(pos) {
			out[pos] = math.NaN()
			pos++
		}
	}

	fillInvalid()
	for pos < numPoints {
		if br.remaining() < p.Bits {
			return nil, errors.Wrapf(ErrDataLengthMismatch,
				"run-length stream exhausted after %d of %d points", pos, numPoints)
		}
		level, err := br.read(p.Bits)
		if err != nil {
			return nil, err
		}
		if level > maxv {
			return nil, errors.Wrapf(ErrCorruptRunLength,
				"run digit %d at point %d without a preceding level code", level, pos)
		}

		// Collect run digits: every directly following code above MAXV.
		run := uint64(1)
		scale := uint64(1)
		for br.remaining() >= p.Bits {
			save := br.pos
			code, err := br.read(p.Bits)
			if err != nil {
				return nil, err
			}
			if code <= maxv {
				br.pos = save // next set's level code
				break
			}
			digit := code - maxv - 1
			if digit != 0 && digit > (uint64(numPoints)-run)/scale {
				return nil, errors.Wrapf(ErrCorruptRunLength,
					"run digits at point %d overrun %d-point grid", pos, numPoints)
			}
			run += digit * scale
			// Cap scale so repeated multiplication cannot wrap uint64; any
			// further non-zero digit fails the overrun check above.
			if scale <= uint64(numPoints) {
				scale *= lngu
			}
		}

		value := phys[level]
		for k := uint64(0); k < run; {
			fillInvalid()
			if pos == numPoints {
				return nil, errors.Wrapf(ErrCorruptRunLength,
					"run of %d overruns grid capacity at point %d", run, pos)
			}
			out[pos] = value
			pos++
			k++
		}
		fillInvalid()
	}

	// Only zero-bit padding may remain; a further complete non-zero code
	// means the stream encodes more points than the grid holds.
	for br.remaining() >= p.Bits {
		code, err := br.read(p.Bits)
		if err != nil {
			return nil, err
		}
		if code != 0 {
			return nil, errors.Wrapf(ErrDataLengthMismatch,
				"trailing run-length code %d after all %d points decoded", code, numPoints)
		}
	}
	return out, nil
}
