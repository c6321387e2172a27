// Package scanner dispatches decoding across every supported format and
// wraps it in BarcodeReader, a facade that retries rotated images and
// caches its configured readers between frames.
package scanner

import (
	"fmt"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/oned"
	"github.com/ericlevine/zxscan/qrcode"
)

// ReaderSet is the ordered list of readers a MultiFormatReader tries. It is
// built once per set of options and never changes afterwards.
type ReaderSet struct {
	readers []zxscan.Reader
}

// NewReaderSet picks readers for the formats opts allows. Linear formats
// go first normally and last under TryHarder, where the slower row scan
// would otherwise delay the 2-D readers.
func NewReaderSet(opts *zxscan.DecodeOptions) *ReaderSet {
	tryHarder := opts != nil && opts.TryHarder
	var readers []zxscan.Reader
	linear := oned.NewMultiFormatOneDReader(opts)
	if !linear.Empty() && !tryHarder {
		readers = append(readers, linear)
	}
	if opts.Allows(zxscan.FormatQRCode) {
		readers = append(readers, qrcode.NewReader())
	}
	if !linear.Empty() && tryHarder {
		readers = append(readers, linear)
	}
	return &ReaderSet{readers: readers}
}

// NewReaderSetOf returns a set trying exactly readers, in order.
func NewReaderSetOf(readers ...zxscan.Reader) *ReaderSet {
	return &ReaderSet{readers: append([]zxscan.Reader(nil), readers...)}
}

// Len returns the number of readers.
func (s *ReaderSet) Len() int { return len(s.readers) }

// decode asks each reader in turn and returns the first result, or the
// most specific failure.
func (s *ReaderSet) decode(image *zxscan.BinaryBitmap, opts *zxscan.DecodeOptions) (*zxscan.Result, error) {
	var lastErr error
	for _, r := range s.readers {
		res, err := r.Decode(image, opts)
		if err == nil {
			return res, nil
		}
		lastErr = zxscan.MostSpecific(lastErr, err)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("scanner: no reader enabled: %w", zxscan.ErrNotFound)
	}
	return nil, lastErr
}

func (s *ReaderSet) reset() {
	for _, r := range s.readers {
		r.Reset()
	}
}
