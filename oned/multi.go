package oned

import (
	"fmt"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

// MultiFormatOneDReader tries each configured linear reader on a row and
// returns the first success. The reader set is fixed when it is built.
type MultiFormatOneDReader struct {
	readers []RowReader
}

// NewMultiFormatOneDReader builds readers for the linear formats opts
// allows. When opts allows no linear format the reader never decodes.
func NewMultiFormatOneDReader(opts *zxscan.DecodeOptions) *MultiFormatOneDReader {
	var readers []RowReader
	if opts.AllowsAny(zxscan.FormatEAN13, zxscan.FormatEAN8, zxscan.FormatUPCA) {
		readers = append(readers, NewUPCEANReader(opts))
	}
	if opts.Allows(zxscan.FormatCode39) {
		c := Code39Reader{}
		if opts != nil {
			c.CheckDigit = opts.AssumeCode39CheckDigit
			c.Extended = opts.Code39Extended
		}
		readers = append(readers, c)
	}
	if opts.Allows(zxscan.FormatITF) {
		readers = append(readers, ITFReader{})
	}
	return &MultiFormatOneDReader{readers: readers}
}

// Empty reports whether no linear format was allowed.
func (r *MultiFormatOneDReader) Empty() bool { return len(r.readers) == 0 }

// DecodeRow implements RowReader. A result whose format opts does not
// allow is discarded even when a reader produced it.
func (r *MultiFormatOneDReader) DecodeRow(rowNumber int, row *bitutil.BitArray, opts *zxscan.DecodeOptions) (*zxscan.Result, error) {
	var lastErr error
	for _, reader := range r.readers {
		res, err := reader.DecodeRow(rowNumber, row, opts)
		if err != nil {
			lastErr = zxscan.MostSpecific(lastErr, err)
			continue
		}
		if !opts.Allows(res.Format) {
			continue
		}
		return res, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("oned: no linear reader matched: %w", zxscan.ErrNotFound)
	}
	return nil, lastErr
}

// Decode implements zxscan.Reader.
func (r *MultiFormatOneDReader) Decode(image *zxscan.BinaryBitmap, opts *zxscan.DecodeOptions) (*zxscan.Result, error) {
	if r.Empty() {
		return nil, fmt.Errorf("oned: no linear format allowed: %w", zxscan.ErrNotFound)
	}
	return Scan(image, r, opts)
}

// Reset implements zxscan.Reader. Row readers keep no state.
func (r *MultiFormatOneDReader) Reset() {}
