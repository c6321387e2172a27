// Package multi finds every barcode in an image by decoding it repeatedly
// with a single-symbol reader.
package multi

import (
	"fmt"

	"github.com/ericlevine/zxscan"
)

const (
	minDimensionToRecur = 100
	maxDepth            = 4
)

// GenericMultipleBarcodeReader decodes one symbol, then recurses into the
// parts of the image left of, above, right of and below it. Regions
// narrower than 100 pixels are not searched, and recursion stops four
// levels down.
type GenericMultipleBarcodeReader struct {
	delegate zxscan.Reader
}

// NewGenericMultipleBarcodeReader wraps delegate.
func NewGenericMultipleBarcodeReader(delegate zxscan.Reader) *GenericMultipleBarcodeReader {
	return &GenericMultipleBarcodeReader{delegate: delegate}
}

// DecodeMultiple implements zxscan.MultipleReader. Symbols with the same
// text are reported once. Points are in the coordinates of image.
func (r *GenericMultipleBarcodeReader) DecodeMultiple(image *zxscan.BinaryBitmap, opts *zxscan.DecodeOptions) ([]*zxscan.Result, error) {
	var results []*zxscan.Result
	lastErr := r.decodeRegion(image, opts, &results, 0, 0, 0)
	if len(results) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("multi: nothing decoded: %w", zxscan.ErrNotFound)
		}
		return nil, lastErr
	}
	return results, nil
}

func (r *GenericMultipleBarcodeReader) decodeRegion(image *zxscan.BinaryBitmap, opts *zxscan.DecodeOptions, results *[]*zxscan.Result, xOffset, yOffset, depth int) error {
	if depth > maxDepth {
		return nil
	}
	res, err := r.delegate.Decode(image, opts)
	if err != nil {
		return err
	}

	known := false
	for _, prev := range *results {
		if prev.Text == res.Text {
			known = true
			break
		}
	}
	if !known {
		*results = append(*results, translate(res, xOffset, yOffset))
	}
	if len(res.Points) == 0 {
		return nil
	}

	width, height := image.Width(), image.Height()
	minX, minY := float64(width), float64(height)
	maxX, maxY := 0.0, 0.0
	for _, p := range res.Points {
		minX, minY = min(minX, p.X), min(minY, p.Y)
		maxX, maxY = max(maxX, p.X), max(maxY, p.Y)
	}

	var lastErr error
	recurse := func(left, top, w, h int) {
		sub, err := image.Crop(left, top, w, h)
		if err != nil {
			return
		}
		if err := r.decodeRegion(sub, opts, results, xOffset+left, yOffset+top, depth+1); err != nil {
			lastErr = zxscan.MostSpecific(lastErr, err)
		}
	}
	if minX > minDimensionToRecur {
		recurse(0, 0, int(minX), height)
	}
	if minY > minDimensionToRecur {
		recurse(0, 0, width, int(minY))
	}
	if maxX < float64(width-minDimensionToRecur) {
		recurse(int(maxX), 0, width-int(maxX), height)
	}
	if maxY < float64(height-minDimensionToRecur) {
		recurse(0, int(maxY), width, height-int(maxY))
	}
	return lastErr
}

// translate returns res with its points shifted by the region's offset.
func translate(res *zxscan.Result, xOffset, yOffset int) *zxscan.Result {
	if len(res.Points) == 0 || (xOffset == 0 && yOffset == 0) {
		return res
	}
	out := *res
	out.Points = make([]zxscan.ResultPoint, len(res.Points))
	for i, p := range res.Points {
		out.Points[i] = zxscan.ResultPoint{X: p.X + float64(xOffset), Y: p.Y + float64(yOffset)}
	}
	return &out
}
