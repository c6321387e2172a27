package scanner

import (
	"github.com/ericlevine/zxscan"
)

// MultiFormatReader tries every reader of its ReaderSet until one decodes.
// It remembers the options and readers it was last configured with so that
// DecodeWithState can skip rebuilding them. A MultiFormatReader must not be
// shared between goroutines.
type MultiFormatReader struct {
	opts *zxscan.DecodeOptions
	set  *ReaderSet
}

// NewMultiFormatReader returns a reader configured for opts.
func NewMultiFormatReader(opts *zxscan.DecodeOptions) *MultiFormatReader {
	r := &MultiFormatReader{}
	r.SetOptions(opts)
	return r
}

// NewMultiFormatReaderWith returns a reader that tries set with opts.
func NewMultiFormatReaderWith(set *ReaderSet, opts *zxscan.DecodeOptions) *MultiFormatReader {
	return &MultiFormatReader{opts: opts.Clone(), set: set}
}

// SetOptions replaces the options and rebuilds the reader set.
func (r *MultiFormatReader) SetOptions(opts *zxscan.DecodeOptions) {
	r.opts = opts.Clone()
	r.set = NewReaderSet(r.opts)
}

// Options returns a copy of the current options.
func (r *MultiFormatReader) Options() *zxscan.DecodeOptions { return r.opts.Clone() }

// Decode implements zxscan.Reader. It reconfigures the reader for opts
// first, exactly like SetOptions followed by DecodeWithState.
func (r *MultiFormatReader) Decode(image *zxscan.BinaryBitmap, opts *zxscan.DecodeOptions) (*zxscan.Result, error) {
	r.SetOptions(opts)
	return r.DecodeWithState(image)
}

// DecodeWithState decodes with the options and readers already configured.
// With AlsoInverted set, a failed pass is repeated on the inverted image.
func (r *MultiFormatReader) DecodeWithState(image *zxscan.BinaryBitmap) (*zxscan.Result, error) {
	if r.set == nil {
		r.SetOptions(nil)
	}
	res, err := r.set.decode(image, r.opts)
	if err == nil || r.opts == nil || !r.opts.AlsoInverted {
		return res, err
	}
	res, invErr := r.set.decode(image.Invert(), r.opts)
	if invErr == nil {
		return res, nil
	}
	return nil, zxscan.MostSpecific(err, invErr)
}

// Reset implements zxscan.Reader.
func (r *MultiFormatReader) Reset() {
	if r.set != nil {
		r.set.reset()
	}
}
