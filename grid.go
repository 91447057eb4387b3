package grib2

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Input sanity limits, all well above any real JMA mesh product.
const (
	// maxGridDim: the 1 km analysis rainfall grid is 2560×3360; cap per
	// dimension to keep a crafted section 3 from forcing huge allocations.
	maxGridDim = 30000

	// maxBitWidth: width fields are 1-byte values, but anything over 64
	// is nonsensical for a uint64 accumulator.
	maxBitWidth = 64
)

// ScanMode is the GRIB2 flag table 3.4 scanning-mode octet.
type ScanMode byte

// iNegative reports points scanning in the −i (east to west) direction.
func (m ScanMode) iNegative() bool { return m&0x80 != 0 }

// jPositive reports points scanning in the +j (south to north) direction.
func (m ScanMode) jPositive() bool { return m&0x40 != 0 }

// colMajor reports adjacent points being consecutive in the j direction.
func (m ScanMode) colMajor() bool { return m&0x20 != 0 }

// GridDefinition is the decoded Section 3 for grid definition template 3.0,
// an equidistant latitude/longitude grid. Lat1/Lon1 is the first grid point
// in scan order; LatInc/LonInc are the absolute increments in degrees.
type GridDefinition struct {
	NumPoints  int
	Ni, Nj     int // columns, rows
	Lat1, Lon1 float64
	Lat2, Lon2 float64
	LatInc     float64
	LonInc     float64
	Scan       ScanMode
}

const microdeg = 1e-6

// parseGridDefinition decodes Section 3. Only template 3.0 is supported;
// the five mesh products in scope never use anything else, and guessing a
// projection would silently place every value at the wrong coordinate.
func parseGridDefinition(sec Section) (GridDefinition, error) {
	b := sec.Body
	// b[0:4]=length, b[4]=3, b[5]=source, b[6:10]=number of points,
	// b[10]=optional list length, b[11]=interpretation, b[12:14]=template
	// number, template data from b[14].
	if len(b) < 14+58 {
		return GridDefinition{}, errors.Wrapf(ErrTruncatedMessage,
			"section 3 at %d: too short (%d bytes)", sec.Offset, len(b))
	}
	tmpl := binary.BigEndian.Uint16(b[12:14])
	if tmpl != 0 {
		return GridDefinition{}, errors.Wrapf(ErrUnsupportedGridTemplate,
			"section 3 at %d: grid definition template %d (only 3.0 supported)",
			sec.Offset, tmpl)
	}
	npts := int(binary.BigEndian.Uint32(b[6:10]))

	t := b[14:] // template data
	u32 := func(off int) uint32 { return binary.BigEndian.Uint32(t[off : off+4]) }

	ni := int(u32(16))
	nj := int(u32(20))
	if ni <= 0 || ni > maxGridDim || nj <= 0 || nj > maxGridDim {
		return GridDefinition{}, errors.Wrapf(ErrUnsupportedGridTemplate,
			"section 3 at %d: grid dimensions %dx%d out of range (max %d)",
			sec.Offset, ni, nj, maxGridDim)
	}
	if npts != ni*nj {
		return GridDefinition{}, errors.Wrapf(ErrUnsupportedGridTemplate,
			"section 3 at %d: %d data points declared, grid is %dx%d=%d",
			sec.Offset, npts, ni, nj, ni*nj)
	}

	g := GridDefinition{
		NumPoints: npts,
		Ni:        ni,
		Nj:        nj,
		Lat1:      float64(int32(u32(32))) * microdeg,
		Lon1:      float64(u32(36)) * microdeg,
		Lat2:      float64(int32(u32(41))) * microdeg,
		Lon2:      float64(u32(45)) * microdeg,
		LatInc:    float64(u32(53)) * microdeg,
		LonInc:    float64(u32(49)) * microdeg,
		Scan:      ScanMode(t[57]),
	}
	if g.LatInc == 0 || g.LonInc == 0 {
		return GridDefinition{}, errors.Wrapf(ErrUnsupportedGridTemplate,
			"section 3 at %d: zero lat/lon increment", sec.Offset)
	}
	// Staggered and offset-row modes (flag bits 4..8) break the linear
	// index mapping below.
	if g.Scan&0x1F != 0 {
		return GridDefinition{}, errors.Wrapf(ErrUnsupportedGridTemplate,
			"section 3 at %d: unsupported scanning mode 0x%02X", sec.Offset, byte(g.Scan))
	}
	return g, nil
}

// latStep returns the signed latitude change per row in scan order.
func (g *GridDefinition) latStep() float64 {
	if g.Scan.jPositive() {
		return g.LatInc
	}
	return -g.LatInc
}

// lonStep returns the signed longitude change per column in scan order.
func (g *GridDefinition) lonStep() float64 {
	if g.Scan.iNegative() {
		return -g.LonInc
	}
	return g.LonInc
}

// CellPos maps (row, col) to the linear position of that point in the data
// stream. Row 0, col 0 is the first grid point in scan order. This mapping
// is the single source of truth shared by the value reconstructor and the
// accessor.
func (g *GridDefinition) CellPos(row, col int) int {
	if g.Scan.colMajor() {
		return col*g.Nj + row
	}
	return row*g.Ni + col
}

// PosCell is the inverse of CellPos.
func (g *GridDefinition) PosCell(pos int) (row, col int) {
	if g.Scan.colMajor() {
		return pos % g.Nj, pos / g.Nj
	}
	return pos / g.Ni, pos % g.Ni
}

// LatLon returns the geographic coordinates of a cell.
func (g *GridDefinition) LatLon(row, col int) (lat, lon float64) {
	return g.Lat1 + float64(row)*g.latStep(), g.Lon1 + float64(col)*g.lonStep()
}

// Cell resolves (lat, lon) to the nearest grid cell. The fractional index
// must fall inside [0, Nj) × [0, Ni); grids are defined at discrete mesh
// centres, so the value is rounded, never interpolated.
func (g *GridDefinition) Cell(lat, lon float64) (row, col int, err error) {
	rf := (lat - g.Lat1) / g.latStep()
	cf := (lon - g.Lon1) / g.lonStep()
	if rf < 0 || rf >= float64(g.Nj) || cf < 0 || cf >= float64(g.Ni) {
		return 0, 0, errors.Wrapf(ErrOutOfBounds,
			"(%.6f, %.6f) maps to fractional cell (%.2f, %.2f) on a %dx%d grid",
			lat, lon, rf, cf, g.Nj, g.Ni)
	}
	row = int(math.Round(rf))
	col = int(math.Round(cf))
	// A fraction in [N-0.5, N) rounds past the last cell; the nearest
	// existing cell is the last one.
	if row == g.Nj {
		row = g.Nj - 1
	}
	if col == g.Ni {
		col = g.Ni - 1
	}
	return row, col, nil
}
