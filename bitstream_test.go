package grib2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitReaderAligned(t *testing.T) {
	br := newBitReader([]byte{0xAB, 0x12, 0x34, 0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})

	v, err := br.read(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xAB), v)

	v, err = br.read(16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234), v)

	v, err = br.read(32)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xDEADBEEF), v)

	v, err = br.read(64)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), v)
	assert.Equal(t, 0, br.remaining())
}

func TestBitReaderUnaligned(t *testing.T) {
	// 1010 1011 0000 1111
	br := newBitReader([]byte{0xAB, 0x0F})

	v, err := br.read(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b101), v)

	v, err = br.read(7)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b0101100), v)

	v, err = br.read(6)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b001111), v)
	assert.Equal(t, 0, br.remaining())
}

func TestBitReaderZeroWidth(t *testing.T) {
	br := newBitReader(nil)
	v, err := br.read(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)
}

func TestBitReaderPastEnd(t *testing.T) {
	br := newBitReader([]byte{0xFF})

	_, err := br.read(9)
	assert.ErrorIs(t, err, ErrTruncatedMessage)

	// failed reads do not advance the cursor
	v, err := br.read(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFF), v)
}

func TestBitWriterRoundTrip(t *testing.T) {
	widths := []int{1, 3, 7, 8, 11, 16, 24, 33}
	values := []uint64{1, 5, 100, 255, 2000, 65535, 0xABCDEF, 0x1FFFFFFFF}

	var w bitWriter
	for i, n := range widths {
		w.write(values[i], n)
	}

	br := newBitReader(w.bytes())
	for i, n := range widths {
		v, err := br.read(n)
		require.NoError(t, err)
		assert.Equal(t, values[i], v, "width %d", n)
	}
	// the writer pads the last byte with zeros
	if br.remaining() > 0 {
		pad, err := br.read(br.remaining())
		require.NoError(t, err)
		assert.Equal(t, uint64(0), pad)
	}
}
