package grib2

import "errors"

// Decode error kinds. Every failure returned by this package wraps one of
// these, so callers can classify with errors.Is while the message carries
// the section and byte offset where the problem was detected. None of them
// are retryable: they mean the input is malformed or uses a template this
// decoder does not support.
var (
	ErrTruncatedMessage           = errors.New("truncated GRIB2 message")
	ErrInvalidSectionOrder        = errors.New("invalid section order")
	ErrUnsupportedGridTemplate    = errors.New("unsupported grid definition template")
	ErrUnsupportedPackingMethod   = errors.New("unsupported data representation template")
	ErrUnsupportedBitmapReference = errors.New("unsupported bitmap reference")
	ErrUnknownParameter           = errors.New("unknown parameter category/number")
	ErrInconsistentLevelTable     = errors.New("inconsistent run-length level table")
	ErrDataLengthMismatch         = errors.New("decoded value count does not match grid size")
	ErrCorruptRunLength           = errors.New("corrupt run-length stream")
	ErrOutOfBounds                = errors.New("point outside grid extent")
)
