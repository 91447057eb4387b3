package grib2

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// Indicator is the decoded Section 0 (16 bytes).
type Indicator struct {
	Discipline  byte
	Edition     byte
	TotalLength uint64
}

// Identification is the decoded Section 1 (21 bytes).
type Identification struct {
	Centre           uint16
	SubCentre        uint16
	MasterTableVer   byte
	LocalTableVer    byte
	ReferenceTime    time.Time // UTC
	ProductionStatus byte
	DataType         byte
}

// Section is a zero-copy view of one framed GRIB2 section: 4-byte
// big-endian length prefix, 1-byte section number, body. Offset is the
// byte position of the length prefix in the message buffer, kept for
// error reporting.
type Section struct {
	Number byte
	Offset int
	Body   []byte // full section bytes, header included
}

const (
	indicatorLen = 16
	terminator   = "7777"
)

// parseIndicator decodes the 16-byte Section 0 at the start of buf and
// checks that the declared total length accounts for the whole buffer,
// terminator included.
func parseIndicator(buf []byte) (Indicator, error) {
	if len(buf) < indicatorLen {
		return Indicator{}, errors.Wrapf(ErrTruncatedMessage,
			"section 0: need %d bytes, got %d", indicatorLen, len(buf))
	}
	if string(buf[0:4]) != "GRIB" {
		return Indicator{}, errors.Wrapf(ErrTruncatedMessage,
			"section 0: missing GRIB magic: %q", buf[0:4])
	}
	ind := Indicator{
		Discipline:  buf[6],
		Edition:     buf[7],
		TotalLength: binary.BigEndian.Uint64(buf[8:16]),
	}
	if ind.Edition != 2 {
		return Indicator{}, errors.Wrapf(ErrTruncatedMessage,
			"section 0: GRIB edition %d, want 2", ind.Edition)
	}
	if ind.TotalLength != uint64(len(buf)) {
		return Indicator{}, errors.Wrapf(ErrTruncatedMessage,
			"section 0: declared total length %d, buffer has %d bytes",
			ind.TotalLength, len(buf))
	}
	if len(buf) < indicatorLen+len(terminator) || string(buf[len(buf)-4:]) != terminator {
		return Indicator{}, errors.Wrapf(ErrTruncatedMessage,
			"message does not end with %q terminator", terminator)
	}
	return ind, nil
}

// parseIdentification decodes Section 1.
func parseIdentification(sec Section) (Identification, error) {
	b := sec.Body
	if len(b) < 21 {
		return Identification{}, errors.Wrapf(ErrTruncatedMessage,
			"section 1 at %d: need 21 bytes, got %d", sec.Offset, len(b))
	}
	year := int(binary.BigEndian.Uint16(b[12:14]))
	month := time.Month(b[14])
	if month < time.January || month > time.December {
		return Identification{}, errors.Wrapf(ErrTruncatedMessage,
			"section 1 at %d: reference month %d out of range", sec.Offset, b[14])
	}
	ref := time.Date(year, month, int(b[15]),
		int(b[16]), int(b[17]), int(b[18]), 0, time.UTC)
	return Identification{
		Centre:           binary.BigEndian.Uint16(b[5:7]),
		SubCentre:        binary.BigEndian.Uint16(b[7:9]),
		MasterTableVer:   b[9],
		LocalTableVer:    b[10],
		ReferenceTime:    ref,
		ProductionStatus: b[19],
		DataType:         b[20],
	}, nil
}

// sectionAt reads the framed section starting at byte offset off.
// Returns the section view and the offset just past it. The "7777"
// terminator is reported as section number 8.
func sectionAt(buf []byte, off int) (Section, int, error) {
	if off+4 <= len(buf) && string(buf[off:off+4]) == terminator {
		return Section{Number: 8, Offset: off, Body: buf[off : off+4]}, off + 4, nil
	}
	if off+5 > len(buf) {
		return Section{}, 0, errors.Wrapf(ErrTruncatedMessage,
			"section header at %d: out of bounds (buf=%d)", off, len(buf))
	}
	sLen := binary.BigEndian.Uint32(buf[off : off+4])
	sNum := buf[off+4]
	if sLen < 5 {
		return Section{}, 0, errors.Wrapf(ErrTruncatedMessage,
			"section %d at %d: declared length %d shorter than its own header",
			sNum, off, sLen)
	}
	// uint64 arithmetic so a huge declared length cannot overflow int
	// on 32-bit platforms.
	end64 := uint64(off) + uint64(sLen)
	if end64 > uint64(len(buf)) {
		return Section{}, 0, errors.Wrapf(ErrTruncatedMessage,
			"section %d at %d: length %d overflows buffer %d", sNum, off, sLen, len(buf))
	}
	end := int(end64)
	return Section{Number: sNum, Offset: off, Body: buf[off:end]}, end, nil
}

// splitSections walks the whole message and returns sections 1..7 in file
// order, enforcing the GRIB2 sequence: 1, optional 2, 3, then one or more
// repetitions of the 4-5-6-7 group, then the 8 terminator.
func splitSections(buf []byte) ([]Section, error) {
	var out []Section

	off := indicatorLen
	prev := byte(0) // last section number seen; 0 = right after Section 0
	sawGroup := false
	for {
		sec, next, err := sectionAt(buf, off)
		if err != nil {
			return nil, err
		}
		if sec.Number == 8 {
			if !sawGroup {
				return nil, errors.Wrapf(ErrInvalidSectionOrder,
					"terminator at %d before any data section group", sec.Offset)
			}
			if prev != 7 {
				return nil, errors.Wrapf(ErrInvalidSectionOrder,
					"terminator at %d after section %d, want 7", sec.Offset, prev)
			}
			if next != len(buf) {
				return nil, errors.Wrapf(ErrTruncatedMessage,
					"%d trailing bytes after terminator", len(buf)-next)
			}
			return out, nil
		}
		if !orderAllowed(prev, sec.Number) {
			return nil, errors.Wrapf(ErrInvalidSectionOrder,
				"section %d at %d cannot follow section %d", sec.Number, sec.Offset, prev)
		}
		if sec.Number == 7 {
			sawGroup = true
		}
		out = append(out, sec)
		prev = sec.Number
		off = next
	}
}

// orderAllowed reports whether section number cur may directly follow prev.
func orderAllowed(prev, cur byte) bool {
	switch prev {
	case 0:
		return cur == 1
	case 1:
		return cur == 2 || cur == 3
	case 2:
		return cur == 3
	case 3, 7:
		return cur == 4 // the 8 terminator after 7 is handled by the caller
	case 4:
		return cur == 5
	case 5:
		return cur == 6
	case 6:
		return cur == 7
	default:
		return false
	}
}
