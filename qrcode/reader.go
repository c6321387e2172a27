// Package qrcode reads QR Code symbols.
package qrcode

import (
	"fmt"
	"math"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
	geom "github.com/ericlevine/zxscan/detector"
	"github.com/ericlevine/zxscan/internal"
	"github.com/ericlevine/zxscan/qrcode/decoder"
	"github.com/ericlevine/zxscan/qrcode/detector"
)

// Reader decodes a single QR Code from a binary image.
type Reader struct {
	dec *decoder.Decoder
}

// NewReader returns a Reader.
func NewReader() *Reader {
	return &Reader{dec: decoder.New()}
}

// Decode locates and decodes one QR Code. With PureBarcode set the image is
// assumed to hold a single unrotated symbol and no detection is run.
func (r *Reader) Decode(image *zxscan.BinaryBitmap, opts *zxscan.DecodeOptions) (*zxscan.Result, error) {
	matrix, err := image.BlackMatrix()
	if err != nil {
		return nil, err
	}

	var (
		dr     *internal.DecoderResult
		points []zxscan.ResultPoint
	)
	if opts != nil && opts.PureBarcode {
		if dr, err = r.decodePure(matrix, opts); err != nil {
			return nil, err
		}
	} else {
		det, err := detector.New(matrix, opts).Detect()
		if err != nil {
			return nil, err
		}
		if dr, err = r.dec.Decode(det.Bits, charsetHint(opts)); err != nil {
			return nil, err
		}
		points = det.Points
	}
	return newResult(dr, points), nil
}

// decodePure reads a symbol that fills the image. When stray marks throw
// off the bounding box, it retries on the region a white rectangle search
// isolates around the image center.
func (r *Reader) decodePure(matrix *bitutil.BitMatrix, opts *zxscan.DecodeOptions) (*internal.DecoderResult, error) {
	bits, err := extractPureBits(matrix)
	if err == nil {
		var dr *internal.DecoderResult
		if dr, err = r.dec.Decode(bits, charsetHint(opts)); err == nil {
			return dr, nil
		}
	}
	region, lerr := pureRegion(matrix)
	if lerr != nil {
		return nil, err
	}
	bits, rerr := extractPureBits(region)
	if rerr != nil {
		return nil, err
	}
	dr, rerr := r.dec.Decode(bits, charsetHint(opts))
	if rerr != nil {
		return nil, zxscan.MostSpecific(err, rerr)
	}
	return dr, nil
}

// pureRegion crops matrix to the symbol around its center, with a small
// margin beyond the extreme points the white rectangle search found.
func pureRegion(matrix *bitutil.BitMatrix) (*bitutil.BitMatrix, error) {
	pts, err := geom.WhiteRectangle(matrix)
	if err != nil {
		return nil, err
	}
	left, top := math.Inf(1), math.Inf(1)
	right, bottom := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		left, right = min(left, p.X), max(right, p.X)
		top, bottom = min(top, p.Y), max(bottom, p.Y)
	}
	// the search reports points one pixel in from the symbol's corners
	const margin = 2
	x0, y0 := max(int(left)-margin, 0), max(int(top)-margin, 0)
	x1 := min(int(math.Ceil(right))+margin, matrix.Width()-1)
	y1 := min(int(math.Ceil(bottom))+margin, matrix.Height()-1)
	if x1 <= x0 || y1 <= y0 {
		return nil, fmt.Errorf("qrcode: empty pure region: %w", zxscan.ErrNotFound)
	}
	return matrix.Crop(x0, y0, x1-x0+1, y1-y0+1), nil
}

// Reset is a no-op; the reader keeps no state between images.
func (r *Reader) Reset() {}

func charsetHint(opts *zxscan.DecodeOptions) string {
	if opts == nil {
		return ""
	}
	return opts.CharacterSet
}

func newResult(dr *internal.DecoderResult, points []zxscan.ResultPoint) *zxscan.Result {
	if dr.Mirrored && len(points) >= 3 {
		// the detector took the mirror's top-right for bottom-left
		points[0], points[2] = points[2], points[0]
	}
	res := zxscan.NewResult(dr.Text, dr.RawBytes, points, zxscan.FormatQRCode)
	res.NumBits = dr.NumBits
	dr.Apply(res)
	res.PutMetadata(zxscan.MetadataSymbologyIdentifier, fmt.Sprintf("]Q%d", dr.SymbologyModifier))
	if len(points) >= 3 {
		res.PutMetadata(zxscan.MetadataOrientation, orientation(points[1], points[2]))
	}
	return res
}

// orientation returns the clockwise rotation of the symbol, to the nearest
// quarter turn, from the direction of its top edge.
func orientation(topLeft, topRight zxscan.ResultPoint) int {
	deg := math.Atan2(topRight.Y-topLeft.Y, topRight.X-topLeft.X) * 180 / math.Pi
	q := int(math.Round(deg/90)) * 90
	return (q%360 + 360) % 360
}

// extractPureBits reads a symbol straight off the image, using the bounding
// box of the black pixels and the width of the top-left finder pattern.
func extractPureBits(image *bitutil.BitMatrix) (*bitutil.BitMatrix, error) {
	left, top, ok := image.TopLeftOnBit()
	right, bottom, ok2 := image.BottomRightOnBit()
	if !ok || !ok2 {
		return nil, fmt.Errorf("qrcode: empty image: %w", zxscan.ErrNotFound)
	}
	size, err := pureModuleSize(image, left, top)
	if err != nil {
		return nil, err
	}
	if left >= right || top >= bottom {
		return nil, fmt.Errorf("qrcode: degenerate bounds: %w", zxscan.ErrNotFound)
	}
	if bottom-top != right-left {
		// the bottom-right corner is a data module and may be white
		right = left + (bottom - top)
		if right >= image.Width() {
			return nil, fmt.Errorf("qrcode: symbol is not square: %w", zxscan.ErrNotFound)
		}
	}

	w := int(math.Round(float64(right-left+1) / size))
	h := int(math.Round(float64(bottom-top+1) / size))
	if w <= 0 || h <= 0 || w != h {
		return nil, fmt.Errorf("qrcode: pure grid %dx%d: %w", w, h, zxscan.ErrNotFound)
	}

	// sample module centers, pulled back if the last one overshoots
	nudge := int(size / 2)
	top += nudge
	left += nudge
	if over := left + int(float64(w-1)*size) - right; over > 0 {
		if over > nudge {
			return nil, fmt.Errorf("qrcode: module grid overshoots right edge: %w", zxscan.ErrNotFound)
		}
		left -= over
	}
	if over := top + int(float64(h-1)*size) - bottom; over > 0 {
		if over > nudge {
			return nil, fmt.Errorf("qrcode: module grid overshoots bottom edge: %w", zxscan.ErrNotFound)
		}
		top -= over
	}

	bits := bitutil.NewSquareBitMatrix(w)
	for y := 0; y < h; y++ {
		py := top + int(float64(y)*size)
		for x := 0; x < w; x++ {
			if image.Get(left+int(float64(x)*size), py) {
				bits.Set(x, y)
			}
		}
	}
	return bits, nil
}

// pureModuleSize walks the diagonal of the top-left finder pattern until it
// has crossed its five runs, which span seven modules.
func pureModuleSize(image *bitutil.BitMatrix, left, top int) (float64, error) {
	w, h := image.Width(), image.Height()
	x, y := left, top
	inBlack := true
	transitions := 0
	for x < w && y < h {
		if inBlack != image.Get(x, y) {
			transitions++
			if transitions == 5 {
				break
			}
			inBlack = !inBlack
		}
		x++
		y++
	}
	if x == w || y == h {
		return 0, fmt.Errorf("qrcode: finder diagonal runs off the image: %w", zxscan.ErrNotFound)
	}
	return float64(x-left) / 7, nil
}
