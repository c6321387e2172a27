package scanner

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"slices"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/binarizer"
	"github.com/ericlevine/zxscan/multi"
	"github.com/ericlevine/zxscan/qrcode"
)

// BarcodeReader is the high level entry point: give it an image, get back
// the symbol it holds. Under TryHarder it retries the image turned 90, 180
// and 270 degrees counter-clockwise.
//
// The reader keeps the MultiFormatReader built for its current settings and
// reuses it for every later image. Any setter call drops that cache. A
// BarcodeReader is meant for one goroutine; give each worker its own.
type BarcodeReader struct {
	opts      *zxscan.DecodeOptions
	binarizer binarizer.Factory
	logger    *slog.Logger

	onResult      func(*zxscan.Result)
	onResultPoint zxscan.ResultPointCallback

	reader  *MultiFormatReader // nil when the settings changed
	lastErr error
}

// NewBarcodeReader returns a reader using opts, which may be nil, and the
// hybrid binarizer.
func NewBarcodeReader(opts *zxscan.DecodeOptions) *BarcodeReader {
	return &BarcodeReader{
		opts:      opts.Clone(),
		binarizer: binarizer.HybridFactory,
		logger:    slog.New(slog.DiscardHandler),
	}
}

// Options returns a copy of the current options.
func (r *BarcodeReader) Options() *zxscan.DecodeOptions { return r.opts.Clone() }

// SetOptions replaces the options.
func (r *BarcodeReader) SetOptions(opts *zxscan.DecodeOptions) {
	r.opts = opts.Clone()
	r.invalidate("options")
}

// SetBinarizer selects how luminance is thresholded.
func (r *BarcodeReader) SetBinarizer(f binarizer.Factory) {
	if f == nil {
		f = binarizer.HybridFactory
	}
	r.binarizer = f
	r.invalidate("binarizer")
}

// SetLogger routes debug logging to logger. Nil silences it.
func (r *BarcodeReader) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r.logger = logger
}

// OnResult registers a function called with every decoded result.
func (r *BarcodeReader) OnResult(f func(*zxscan.Result)) {
	r.onResult = f
}

// OnResultPoint registers a function called with every candidate point
// the detectors consider. Points are in the coordinates of the image as
// the detector saw it, which differ from the input under rotation.
func (r *BarcodeReader) OnResultPoint(f zxscan.ResultPointCallback) {
	r.onResultPoint = f
	r.invalidate("result point hook")
}

// LastErr returns why the last Decode found nothing, or nil after a
// success.
func (r *BarcodeReader) LastErr() error { return r.lastErr }

func (r *BarcodeReader) invalidate(why string) {
	if r.reader != nil {
		r.logger.Debug("dropping cached readers", "changed", why)
	}
	r.reader = nil
}

// effectiveOptions merges the hooks into the options handed to readers.
func (r *BarcodeReader) effectiveOptions() *zxscan.DecodeOptions {
	opts := r.opts.Clone()
	if r.onResultPoint != nil {
		if opts == nil {
			opts = &zxscan.DecodeOptions{}
		}
		opts.ResultPointCallback = r.onResultPoint
	}
	return opts
}

func (r *BarcodeReader) multiFormat() *MultiFormatReader {
	if r.reader == nil {
		r.reader = NewMultiFormatReader(r.effectiveOptions())
		r.logger.Debug("built readers", "readers", r.reader.set.Len())
	}
	return r.reader
}

// Decode looks for one symbol in src. It returns (nil, nil) when there is
// none; LastErr then says why. Errors are returned only for unusable input.
func (r *BarcodeReader) Decode(src zxscan.LuminanceSource) (*zxscan.Result, error) {
	return r.DecodeContext(context.Background(), src)
}

// DecodeContext is Decode that gives up between rotations once ctx is done.
func (r *BarcodeReader) DecodeContext(ctx context.Context, src zxscan.LuminanceSource) (*zxscan.Result, error) {
	if src == nil || src.Width() < 1 || src.Height() < 1 {
		return nil, fmt.Errorf("scanner: empty luminance source: %w", zxscan.ErrInvalidArgument)
	}
	reader := r.multiFormat()
	turns := 1
	if r.opts != nil && r.opts.TryHarder {
		turns = 4
	}

	r.lastErr = nil
	rotated := src
	for k := 0; k < turns; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if k > 0 {
			rotated = zxscan.Rotate(rotated, 1)
			r.logger.Debug("retrying rotated", "degrees", 90*k)
		}
		res, err := reader.DecodeWithState(zxscan.NewBinaryBitmap(r.binarizer(rotated)))
		if err == nil {
			res.Points = unrotate(res.Points, src.Width(), src.Height(), k)
			res.AddOrientation(90 * k)
			r.logger.Debug("decoded", "format", res.Format, "orientation", res.Orientation())
			if r.onResult != nil {
				r.onResult(res)
			}
			return res, nil
		}
		r.lastErr = zxscan.MostSpecific(r.lastErr, err)
	}
	return nil, nil
}

// DecodeImage decodes an image.Image.
func (r *BarcodeReader) DecodeImage(img image.Image) (*zxscan.Result, error) {
	return r.Decode(zxscan.NewImageSource(img))
}

// DecodeRaw decodes a packed pixel buffer.
func (r *BarcodeReader) DecodeRaw(pix []byte, width, height, stride int, layout zxscan.PixelLayout) (*zxscan.Result, error) {
	src, err := zxscan.NewRawSource(pix, width, height, stride, layout)
	if err != nil {
		return nil, err
	}
	return r.Decode(src)
}

// DecodeMultiple returns every symbol found in src, without rotation
// retries. It returns nil and no error when there are none.
func (r *BarcodeReader) DecodeMultiple(src zxscan.LuminanceSource) ([]*zxscan.Result, error) {
	if src == nil || src.Width() < 1 || src.Height() < 1 {
		return nil, fmt.Errorf("scanner: empty luminance source: %w", zxscan.ErrInvalidArgument)
	}
	reader := r.multiFormat()
	bitmap := zxscan.NewBinaryBitmap(r.binarizer(src))
	results, err := multi.NewGenericMultipleBarcodeReader(stateful{reader}).DecodeMultiple(bitmap, reader.opts)

	// The QR multi reader joins structured-append sequences. Its results
	// replace sub-image hits it repeats or that are parts of a sequence.
	if reader.opts.Allows(zxscan.FormatQRCode) {
		if qrs, qrErr := qrcode.NewMultiReader().DecodeMultiple(bitmap, reader.opts); qrErr == nil {
			results = append(qrs, slices.DeleteFunc(results, func(res *zxscan.Result) bool {
				if res.Format != zxscan.FormatQRCode {
					return false
				}
				if _, part := res.Metadata[zxscan.MetadataStructuredAppendParity]; part {
					return true
				}
				return slices.ContainsFunc(qrs, func(q *zxscan.Result) bool { return q.Text == res.Text })
			})...)
			err = nil
		} else if err != nil {
			err = zxscan.MostSpecific(err, qrErr)
		}
	}
	r.lastErr = err
	if len(results) == 0 {
		return nil, nil
	}
	for _, res := range results {
		if r.onResult != nil {
			r.onResult(res)
		}
	}
	return results, nil
}

// stateful adapts a MultiFormatReader so that Decode keeps the configured
// readers instead of rebuilding them per call.
type stateful struct{ r *MultiFormatReader }

func (s stateful) Decode(image *zxscan.BinaryBitmap, _ *zxscan.DecodeOptions) (*zxscan.Result, error) {
	return s.r.DecodeWithState(image)
}

func (s stateful) Reset() { s.r.Reset() }

// unrotate maps points found after k counter-clockwise quarter turns back
// into the w×h input image.
func unrotate(points []zxscan.ResultPoint, w, h, k int) []zxscan.ResultPoint {
	if k == 0 || len(points) == 0 {
		return points
	}
	out := make([]zxscan.ResultPoint, len(points))
	copy(out, points)
	for i := k; i > 0; i-- {
		// width of the image before the i-th turn
		before := w
		if (i-1)%2 == 1 {
			before = h
		}
		for j, p := range out {
			out[j] = zxscan.ResultPoint{X: float64(before) - 1 - p.Y, Y: p.X}
		}
	}
	return out
}
