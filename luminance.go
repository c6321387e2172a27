package zxscan

import "github.com/ericlevine/zxscan/bitutil"

// LuminanceSource gives access to 8-bit greyscale samples, 0 black to 255
// white.
type LuminanceSource interface {
	// Row returns row y, reusing row when it is large enough.
	Row(y int, row []byte) []byte

	// Matrix returns all samples row-major. Callers must not modify it.
	Matrix() []byte

	Width() int
	Height() int
}

// RotatableSource is a LuminanceSource that can produce a copy of itself
// turned 90 degrees counter-clockwise.
type RotatableSource interface {
	LuminanceSource
	RotateCounterClockwise() LuminanceSource
}

// CroppableSource is a LuminanceSource that can produce a sub-rectangle of
// itself.
type CroppableSource interface {
	LuminanceSource
	Crop(left, top, width, height int) (LuminanceSource, error)
}

// Binarizer converts luminance into black and white bits.
type Binarizer interface {
	// BlackRow thresholds a single row, reusing row when possible.
	BlackRow(y int, row *bitutil.BitArray) (*bitutil.BitArray, error)

	// BlackMatrix thresholds the whole image. It fails with ErrNotFound when
	// the image carries no usable contrast.
	BlackMatrix() (*bitutil.BitMatrix, error)

	LuminanceSource() LuminanceSource
	Width() int
	Height() int

	// Derive returns a binarizer of the same kind over another source.
	Derive(source LuminanceSource) Binarizer
}
