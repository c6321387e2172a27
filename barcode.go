// Package zxscan decodes 1-D and 2-D barcodes from raster images.
//
// The pipeline runs LuminanceSource → Binarizer → BitMatrix → detector →
// sampled grid → per-format decoder → Result. This package holds the types
// shared by every stage; format readers live in the oned and qrcode
// subpackages and the dispatching facade lives in scanner.
package zxscan

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ericlevine/zxscan/bitutil"
)

// Format identifies a barcode symbology.
type Format int

const (
	FormatQRCode Format = iota
	FormatCode39
	FormatEAN13
	FormatEAN8
	FormatUPCA
	FormatITF
)

var formatNames = [...]string{
	FormatQRCode: "QR_CODE",
	FormatCode39: "CODE_39",
	FormatEAN13:  "EAN_13",
	FormatEAN8:   "EAN_8",
	FormatUPCA:   "UPC_A",
	FormatITF:    "ITF",
}

// AllFormats lists every symbology this module can read.
func AllFormats() []Format {
	return []Format{FormatQRCode, FormatCode39, FormatEAN13, FormatEAN8, FormatUPCA, FormatITF}
}

func (f Format) String() string {
	if f >= 0 && int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "UNKNOWN"
}

// MarshalText renders the format by name.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText accepts names such as "QR_CODE", "ean13" or "code-39".
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFormat looks a format up by name, ignoring case, '-' and '_'.
func ParseFormat(name string) (Format, error) {
	norm := func(s string) string {
		return strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToUpper(s))
	}
	want := norm(name)
	for i, n := range formatNames {
		if norm(n) == want {
			return Format(i), nil
		}
	}
	return 0, fmt.Errorf("unknown barcode format %q: %w", name, ErrInvalidArgument)
}

// MetadataKey names an entry in Result.Metadata.
type MetadataKey int

const (
	// MetadataOrientation is the clockwise rotation, in degrees, that the
	// symbol had in the input image (int).
	MetadataOrientation MetadataKey = iota
	// MetadataByteSegments holds the raw bytes of byte-mode segments ([][]byte).
	MetadataByteSegments
	// MetadataErrorCorrectionLevel is the declared EC level name (string).
	MetadataErrorCorrectionLevel
	// MetadataErrorsCorrected counts repaired codewords (int).
	MetadataErrorsCorrected
	MetadataStructuredAppendSequence
	MetadataStructuredAppendParity
	// MetadataSymbologyIdentifier is the AIM identifier such as "]Q1" (string).
	MetadataSymbologyIdentifier
	// MetadataPossibleCountry is the GS1 country guess for EAN/UPC (string).
	MetadataPossibleCountry
)

var metadataNames = [...]string{
	MetadataOrientation:              "ORIENTATION",
	MetadataByteSegments:             "BYTE_SEGMENTS",
	MetadataErrorCorrectionLevel:     "ERROR_CORRECTION_LEVEL",
	MetadataErrorsCorrected:          "ERRORS_CORRECTED",
	MetadataStructuredAppendSequence: "STRUCTURED_APPEND_SEQUENCE",
	MetadataStructuredAppendParity:   "STRUCTURED_APPEND_PARITY",
	MetadataSymbologyIdentifier:      "SYMBOLOGY_IDENTIFIER",
	MetadataPossibleCountry:          "POSSIBLE_COUNTRY",
}

func (k MetadataKey) String() string {
	if k >= 0 && int(k) < len(metadataNames) {
		return metadataNames[k]
	}
	return "OTHER"
}

// MarshalText renders the key by name so metadata maps encode readably.
func (k MetadataKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ResultPoint is a location in original image coordinates.
type ResultPoint struct {
	X, Y float64
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b ResultPoint) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// CrossProductZ returns the z component of (c-b) × (a-b), the turn taken at
// vertex b going from a to c.
func CrossProductZ(a, b, c ResultPoint) float64 {
	return (c.X-b.X)*(a.Y-b.Y) - (c.Y-b.Y)*(a.X-b.X)
}

// OrderBestPatterns arranges three finder centers as bottom-left, top-left,
// top-right. The top-left point is the one opposite the longest side.
func OrderBestPatterns(p [3]ResultPoint) [3]ResultPoint {
	d01 := Distance(p[0], p[1])
	d12 := Distance(p[1], p[2])
	d02 := Distance(p[0], p[2])

	var a, b, c ResultPoint
	switch {
	case d12 >= d01 && d12 >= d02:
		b, a, c = p[0], p[1], p[2]
	case d02 >= d12 && d02 >= d01:
		b, a, c = p[1], p[0], p[2]
	default:
		b, a, c = p[2], p[0], p[1]
	}
	// b is top-left; swap so that c is top-right.
	if CrossProductZ(a, b, c) < 0 {
		a, c = c, a
	}
	return [3]ResultPoint{a, b, c}
}

// ResultPointCallback receives candidate anchor points while a detector runs.
// It is called for every candidate considered, kept or not.
type ResultPointCallback func(ResultPoint)

// Result is a decoded symbol.
type Result struct {
	Text      string
	RawBytes  []byte
	NumBits   int
	Points    []ResultPoint
	Format    Format
	Metadata  map[MetadataKey]any
	Timestamp time.Time
}

// NewResult builds a Result with empty metadata.
func NewResult(text string, raw []byte, points []ResultPoint, format Format) *Result {
	return &Result{
		Text:      text,
		RawBytes:  raw,
		NumBits:   8 * len(raw),
		Points:    points,
		Format:    format,
		Metadata:  make(map[MetadataKey]any),
		Timestamp: time.Now(),
	}
}

// PutMetadata stores a metadata value.
func (r *Result) PutMetadata(key MetadataKey, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[MetadataKey]any)
	}
	r.Metadata[key] = value
}

// MergeMetadata copies every entry of other into r.
func (r *Result) MergeMetadata(other map[MetadataKey]any) {
	for k, v := range other {
		r.PutMetadata(k, v)
	}
}

// Orientation returns the recorded orientation, or 0 when absent.
func (r *Result) Orientation() int {
	if v, ok := r.Metadata[MetadataOrientation].(int); ok {
		return v
	}
	return 0
}

// AddOrientation adds degrees to the recorded orientation modulo 360.
func (r *Result) AddOrientation(degrees int) {
	r.PutMetadata(MetadataOrientation, ((r.Orientation()+degrees)%360+360)%360)
}

// AddResultPoints appends points.
func (r *Result) AddResultPoints(points ...ResultPoint) {
	r.Points = append(r.Points, points...)
}

func (r *Result) String() string {
	return fmt.Sprintf("[%s] %s", r.Format, r.Text)
}

// BinaryBitmap pairs a Binarizer with a lazily computed, cached black matrix.
type BinaryBitmap struct {
	binarizer Binarizer
	matrix    *bitutil.BitMatrix
}

// NewBinaryBitmap wraps b.
func NewBinaryBitmap(b Binarizer) *BinaryBitmap {
	return &BinaryBitmap{binarizer: b}
}

// Width returns the image width.
func (b *BinaryBitmap) Width() int { return b.binarizer.Width() }

// Height returns the image height.
func (b *BinaryBitmap) Height() int { return b.binarizer.Height() }

// Binarizer returns the wrapped binarizer.
func (b *BinaryBitmap) Binarizer() Binarizer { return b.binarizer }

// BlackRow binarizes one row. Readers scanning rows should call this rather
// than BlackMatrix, since some binarizers threshold rows more cheaply.
func (b *BinaryBitmap) BlackRow(y int, row *bitutil.BitArray) (*bitutil.BitArray, error) {
	return b.binarizer.BlackRow(y, row)
}

// BlackMatrix binarizes the whole image once and caches the result.
func (b *BinaryBitmap) BlackMatrix() (*bitutil.BitMatrix, error) {
	if b.matrix == nil {
		m, err := b.binarizer.BlackMatrix()
		if err != nil {
			return nil, err
		}
		b.matrix = m
	}
	return b.matrix, nil
}

// Crop returns a bitmap over the given sub-rectangle, binarized the same
// way. The luminance source must be croppable.
func (b *BinaryBitmap) Crop(left, top, width, height int) (*BinaryBitmap, error) {
	src, ok := b.binarizer.LuminanceSource().(CroppableSource)
	if !ok {
		return nil, fmt.Errorf("luminance source cannot crop: %w", ErrInvalidArgument)
	}
	c, err := src.Crop(left, top, width, height)
	if err != nil {
		return nil, err
	}
	return NewBinaryBitmap(b.binarizer.Derive(c)), nil
}

// RotateCounterClockwise returns a bitmap over the image turned a quarter
// turn counter-clockwise.
func (b *BinaryBitmap) RotateCounterClockwise() *BinaryBitmap {
	return NewBinaryBitmap(b.binarizer.Derive(Rotate(b.binarizer.LuminanceSource(), 1)))
}

// Invert returns a bitmap over the image with light and dark swapped.
func (b *BinaryBitmap) Invert() *BinaryBitmap {
	return NewBinaryBitmap(b.binarizer.Derive(NewInvertedSource(b.binarizer.LuminanceSource())))
}
