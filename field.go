package grib2

import "math"

// Message is one fully decoded GRIB2 message: the shared grid plus one or
// more fields (a soil water index message carries three tank fields, a
// short-range forecast message six hourly fields). It is immutable once
// constructed.
type Message struct {
	Indicator      Indicator
	Identification Identification
	Grid           GridDefinition
	Fields         []*Field
}

// Field is one decoded data field: its product classification, the
// packing it was stored with, and the reconstructed physical values.
// Values are stored row-major (vals[row*Ni+col]) with NaN marking
// "no data" points.
type Field struct {
	Product ProductDefinition
	Packing Packing

	grid *GridDefinition
	vals []float64
}

// Grid returns the grid this field is addressed by.
func (f *Field) Grid() *GridDefinition { return f.grid }

// Value returns the physical value at (row, col). NaN means "no data".
// Row and col must be inside the grid; use At for geographic queries with
// bounds checking.
func (f *Field) Value(row, col int) float64 {
	return f.vals[row*f.grid.Ni+col]
}

// At returns the physical value at the grid cell nearest to (lat, lon),
// or ErrOutOfBounds when the point falls outside the grid extent. Values
// are mesh-centre samples; interpolation is deliberately a caller concern.
func (f *Field) At(lat, lon float64) (float64, error) {
	row, col, err := f.grid.Cell(lat, lon)
	if err != nil {
		return math.NaN(), err
	}
	return f.Value(row, col), nil
}

// Point is one grid point with its geographic position and value.
type Point struct {
	Row, Col int
	Lat, Lon float64
	Value    float64 // NaN = no data
}

// Points visits every grid point in row/column order. Returning false
// from visit stops the walk.
func (f *Field) Points(visit func(Point) bool) {
	for row := 0; row < f.grid.Nj; row++ {
		for col := 0; col < f.grid.Ni; col++ {
			lat, lon := f.grid.LatLon(row, col)
			p := Point{Row: row, Col: col, Lat: lat, Lon: lon, Value: f.Value(row, col)}
			if !visit(p) {
				return
			}
		}
	}
}

// Region visits the grid points falling inside the closed lat/lon box.
// Returning false from visit stops the walk.
func (f *Field) Region(minLat, maxLat, minLon, maxLon float64, visit func(Point) bool) {
	f.Points(func(p Point) bool {
		if p.Lat < minLat || p.Lat > maxLat || p.Lon < minLon || p.Lon > maxLon {
			return true
		}
		return visit(p)
	})
}
