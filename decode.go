// Package grib2 decodes the GRIB2 mesh products distributed by the Japan
// Meteorological Agency: 1 km analysed rainfall, short-range precipitation
// forecasts, soil water indices and landslide-risk grades, all on
// equidistant latitude/longitude grids (GDT 3.0) packed with either simple
// packing (DRT 5.0) or the agency's run-length level packing (DRT 5.200).
package grib2

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Packing is the decoded Section 5: a tagged union over the supported
// data representation templates.
type Packing interface {
	packingMethod()
}

// parseDataRepresentation decodes Section 5, selecting the packing
// algorithm by template number.
func parseDataRepresentation(sec Section) (Packing, error) {
	b := sec.Body
	if len(b) < 11 {
		return nil, errors.Wrapf(ErrTruncatedMessage,
			"section 5 at %d: too short (%d bytes)", sec.Offset, len(b))
	}
	tmpl := binary.BigEndian.Uint16(b[9:11])
	switch tmpl {
	case 0:
		return parseSimplePacking(sec)
	case 200:
		return parseRunLengthPacking(sec)
	default:
		return nil, errors.Wrapf(ErrUnsupportedPackingMethod,
			"section 5 at %d: data representation template %d (supported: 5.0, 5.200)",
			sec.Offset, tmpl)
	}
}

// DecodeMessage decodes a complete GRIB2 message into a Message. raw must
// hold exactly one message, indicator through terminator. The buffer is
// only read; decoding separate messages concurrently needs no locking.
func DecodeMessage(raw []byte) (*Message, error) {
	ind, err := parseIndicator(raw)
	if err != nil {
		return nil, err
	}
	secs, err := splitSections(raw)
	if err != nil {
		return nil, err
	}

	msg := &Message{Indicator: ind}

	// State of the current 4-5-6-7 group. splitSections has already
	// enforced ordering, so each section only needs wiring up.
	var (
		haveGrid bool
		product  ProductDefinition
		packing  Packing
		bitmap   *Bitmap
	)
	for _, sec := range secs {
		switch sec.Number {
		case 1:
			msg.Identification, err = parseIdentification(sec)
			if err != nil {
				return nil, err
			}
		case 2:
			// local use, skipped
		case 3:
			msg.Grid, err = parseGridDefinition(sec)
			if err != nil {
				return nil, err
			}
			haveGrid = true
		case 4:
			product, err = parseProductDefinition(sec)
			if err != nil {
				return nil, err
			}
		case 5:
			packing, err = parseDataRepresentation(sec)
			if err != nil {
				return nil, err
			}
		case 6:
			bitmap, err = parseBitmap(sec, msg.Grid.NumPoints)
			if err != nil {
				return nil, err
			}
		case 7:
			if !haveGrid {
				return nil, errors.Wrapf(ErrInvalidSectionOrder,
					"section 7 at %d before any grid definition", sec.Offset)
			}
			field, err := reconstruct(sec, &msg.Grid, product, packing, bitmap)
			if err != nil {
				return nil, err
			}
			msg.Fields = append(msg.Fields, field)
			bitmap = nil
		}
	}
	if len(msg.Fields) == 0 {
		return nil, errors.Wrap(ErrTruncatedMessage, "message carries no data sections")
	}
	return msg, nil
}

// reconstruct unpacks one Section 7 into a Field using the surrounding
// group's product, packing and bitmap.
func reconstruct(sec Section, grid *GridDefinition, product ProductDefinition, packing Packing, bm *Bitmap) (*Field, error) {
	data := sec.Body[5:] // past 4-byte length + 1-byte section number
	n := grid.NumPoints

	var scanVals []float64
	var err error
	switch p := packing.(type) {
	case SimplePacking:
		scanVals, err = unpackSimple(data, p, bm, n)
	case RunLengthPacking:
		scanVals, err = unpackRunLength(data, p, bm, n)
	default:
		return nil, errors.Wrapf(ErrUnsupportedPackingMethod,
			"section 7 at %d has no decoded section 5", sec.Offset)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "section 7 at %d", sec.Offset)
	}
	if len(scanVals) != n {
		return nil, errors.Wrapf(ErrDataLengthMismatch,
			"section 7 at %d: %d values for a %d-point grid", sec.Offset, len(scanVals), n)
	}

	// Place the scan-order stream into canonical row-major cells. Scan
	// order is not guaranteed row-major, so this indirection is mandatory.
	vals := make([]float64, n)
	for pos, v := range scanVals {
		row, col := grid.PosCell(pos)
		vals[row*grid.Ni+col] = v
	}
	return &Field{Product: product, Packing: packing, grid: grid, vals: vals}, nil
}
