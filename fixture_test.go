package grib2

import (
	"encoding/binary"
	"math"
)

// Synthetic message builders shared across the package tests. Layouts
// mirror the producer's files: section 1 is 21 bytes, section 3 uses
// grid definition template 3.0, section 4 one of the supported product
// templates, section 5 template 5.0 or 5.200.

func u16be(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func u32be(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func u64be(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// section frames body as a numbered section with its 5-byte header.
func section(num byte, body []byte) []byte {
	out := make([]byte, 0, 5+len(body))
	out = append(out, u32be(uint32(5+len(body)))...)
	out = append(out, num)
	return append(out, body...)
}

// message assembles Section 0, the given sections and the terminator,
// fixing up the total length.
func message(sections ...[]byte) []byte {
	total := indicatorLen + 4
	for _, s := range sections {
		total += len(s)
	}
	out := make([]byte, 0, total)
	out = append(out, "GRIB"...)
	out = append(out, 0, 0) // reserved
	out = append(out, 0)    // discipline: meteorological
	out = append(out, 2)    // edition
	out = append(out, u64be(uint64(total))...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return append(out, terminator...)
}

// testSection1 is a fixed identification section: reference time
// 2024-07-01 09:00:00 UTC, centre 34 (Tokyo).
func testSection1() []byte {
	body := []byte{
		0, 34, // centre
		0, 0, // sub-centre
		2,    // master table version
		1,    // local table version
		1,    // significance of reference time
		7, 232, // year 2024
		7, 1, 9, 0, 0, // month day hour minute second
		0, // production status
		0, // type of data
	}
	return section(1, body)
}

// testGrid describes a synthetic template 3.0 grid for fixtures.
type testGrid struct {
	ni, nj     int
	lat1, lon1 float64 // first grid point, degrees
	latInc     float64
	lonInc     float64
	scan       byte
}

func (g testGrid) lat2lon2() (float64, float64) {
	latStep := -g.latInc
	if g.scan&0x40 != 0 {
		latStep = g.latInc
	}
	lonStep := g.lonInc
	if g.scan&0x80 != 0 {
		lonStep = -g.lonInc
	}
	return g.lat1 + float64(g.nj-1)*latStep, g.lon1 + float64(g.ni-1)*lonStep
}

func microdegU32(deg float64) []byte {
	return u32be(uint32(int32(math.Round(deg / microdeg))))
}

func (g testGrid) section3() []byte {
	lat2, lon2 := g.lat2lon2()
	body := []byte{
		6,          // source of grid definition
		0, 0, 0, 0, // number of data points, patched below
		0,    // no optional list
		0,    // interpretation
		0, 0, // grid definition template 3.0
	}
	binary.BigEndian.PutUint32(body[1:5], uint32(g.ni*g.nj))
	tmpl := make([]byte, 0, 58)
	tmpl = append(tmpl, 4)                   // shape of earth
	tmpl = append(tmpl, make([]byte, 15)...) // radius/major/minor
	tmpl = append(tmpl, u32be(uint32(g.ni))...)
	tmpl = append(tmpl, u32be(uint32(g.nj))...)
	tmpl = append(tmpl, make([]byte, 8)...) // basic angle, subdivisions
	tmpl = append(tmpl, microdegU32(g.lat1)...)
	tmpl = append(tmpl, microdegU32(g.lon1)...)
	tmpl = append(tmpl, 0x30) // resolution and component flags
	tmpl = append(tmpl, microdegU32(lat2)...)
	tmpl = append(tmpl, microdegU32(lon2)...)
	tmpl = append(tmpl, microdegU32(g.lonInc)...)
	tmpl = append(tmpl, microdegU32(g.latInc)...)
	tmpl = append(tmpl, g.scan)
	return section(3, append(body, tmpl...))
}

// pdtCommon builds the 25-byte leading template 4 fields.
func pdtCommon(category, number byte, forecastTime int32) []byte {
	t := make([]byte, 0, pdtCommonLen)
	t = append(t, category, number)
	t = append(t, 2)    // generating process: forecast
	t = append(t, 255)  // background process
	t = append(t, 255)  // generating process identifier
	t = append(t, 0, 0) // hours after cutoff
	t = append(t, 0)    // minutes after cutoff
	t = append(t, 0)    // time unit: minutes
	t = append(t, u32be(uint32(forecastTime))...)
	t = append(t, 1, 255)          // first surface: ground, no scale
	t = append(t, u32be(0)...)     // first surface value
	t = append(t, 255, 255)        // second surface
	t = append(t, u32be(0xFFFFFFFF)...) // second surface value
	return t
}

// testSection4Default builds a template 4.0 product definition.
func testSection4Default(category, number byte, forecastTime int32) []byte {
	body := []byte{0, 0} // no coordinate values
	body = append(body, u16be(0)...)
	return section(4, append(body, pdtCommon(category, number, forecastTime)...))
}

// testSection4Processed builds a template 4.50000 product definition.
func testSection4Processed(category, number byte, forecastTime int32) []byte {
	body := []byte{0, 0}
	body = append(body, u16be(50000)...)
	t := pdtCommon(category, number, forecastTime)
	t = append(t, 201)      // source document 1
	t = append(t, 0, 1, 0)  // hours/minutes from document 1
	t = append(t, 255)      // source document 2
	t = append(t, 0, 0, 0)  // hours/minutes from document 2
	return section(4, append(body, t...))
}

// testSection4Radar builds a template 4.50008 or 4.50009 product definition.
func testSection4Radar(tmplNum uint16, category, number byte, forecastTime int32) []byte {
	body := []byte{0, 0}
	body = append(body, u16be(tmplNum)...)
	t := pdtCommon(category, number, forecastTime)
	t = append(t, 7, 232, 7, 1, 10, 0, 0) // interval end 2024-07-01 10:00
	t = append(t, 1)                      // time range specs
	t = append(t, u32be(0)...)            // missing values
	t = append(t, 1)                      // stat proc: accumulation
	t = append(t, 2)                      // stat proc time increment type
	t = append(t, 0)                      // stat proc time unit
	t = append(t, u32be(60)...)           // stat proc time length
	t = append(t, 255)                    // successive time unit
	t = append(t, u32be(0)...)            // successive time increment
	t = append(t, u64be(0x0123456789ABCDEF)...) // radar info 1
	t = append(t, u64be(0xFEDCBA9876543210)...) // radar info 2
	if tmplNum == pdtRadarAnalysis {
		t = append(t, u64be(0x00FF00FF00FF00FF)...) // rain gauge info
	}
	return section(4, append(body, t...))
}

// testSection5Simple builds a template 5.0 data representation.
func testSection5Simple(numValues int, ref float32, binScale, decScale int, bits byte) []byte {
	body := u32be(uint32(numValues))
	body = append(body, u16be(0)...)
	body = append(body, u32be(math.Float32bits(ref))...)
	body = append(body, u16be(encodeScaleFactor(binScale))...)
	body = append(body, u16be(encodeScaleFactor(decScale))...)
	body = append(body, bits)
	body = append(body, 0) // type of original values
	return section(5, body)
}

// testSection5RunLength builds a template 5.200 data representation.
func testSection5RunLength(numValues int, bits byte, maxv uint16, decScale byte, levels []int16) []byte {
	body := u32be(uint32(numValues))
	body = append(body, u16be(200)...)
	body = append(body, bits)
	body = append(body, u16be(maxv)...)
	body = append(body, u16be(uint16(len(levels)))...)
	body = append(body, decScale)
	for _, lv := range levels {
		body = append(body, u16be(uint16(lv))...)
	}
	return section(5, body)
}

// encodeScaleFactor encodes a signed scale factor as GRIB2 sign-magnitude.
func encodeScaleFactor(v int) uint16 {
	if v < 0 {
		return 0x8000 | uint16(-v)
	}
	return uint16(v)
}

// testSection6 builds a bitmap section. mask==nil means indicator 255.
func testSection6(mask []byte) []byte {
	if mask == nil {
		return section(6, []byte{255})
	}
	return section(6, append([]byte{0}, mask...))
}

// testSection7 frames raw packed data.
func testSection7(data []byte) []byte {
	return section(7, data)
}

// packCodes packs fixed-width codes MSB-first, zero-padded to a byte
// boundary, for building synthetic section 7 payloads.
func packCodes(bits int, codes ...uint64) []byte {
	var w bitWriter
	for _, c := range codes {
		w.write(c, bits)
	}
	return w.bytes()
}
