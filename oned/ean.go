package oned

import (
	"fmt"
	"strings"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

// ean13Parity maps the leading digit of an EAN-13 number to the parity
// of the six left-hand digits; bit 5-i is set when digit i uses a G code.
var ean13Parity = [10]int{0x00, 0x0B, 0x0D, 0x0E, 0x13, 0x19, 0x1C, 0x15, 0x16, 0x1A}

// EAN13Reader reads EAN-13 rows.
type EAN13Reader struct{}

func (EAN13Reader) format() zxscan.Format { return zxscan.FormatEAN13 }

// DecodeRow implements RowReader.
func (r EAN13Reader) DecodeRow(rowNumber int, row *bitutil.BitArray, opts *zxscan.DecodeOptions) (*zxscan.Result, error) {
	start, err := findStartGuard(row)
	if err != nil {
		return nil, err
	}
	return decodeUPCEAN(rowNumber, row, start, r, opts)
}

func (EAN13Reader) decodeMiddle(row *bitutil.BitArray, start [2]int, sb *strings.Builder) (int, error) {
	var scratch [4]int
	counters := scratch[:]
	offset := start[1]

	var digits [12]byte
	parity := 0
	for i := 0; i < 6; i++ {
		d, err := decodeDigit(row, counters, offset, lgPatterns)
		if err != nil {
			return 0, err
		}
		digits[i] = '0' + byte(d%10)
		if d >= 10 {
			parity |= 1 << uint(5-i)
		}
		offset += sum(counters)
	}
	first := -1
	for d, p := range ean13Parity {
		if p == parity {
			first = d
			break
		}
	}
	if first < 0 {
		return 0, fmt.Errorf("oned: parity pattern %06b names no leading digit: %w", parity, zxscan.ErrNotFound)
	}

	middle, err := middleGuard.find(row, offset, true)
	if err != nil {
		return 0, err
	}
	offset = middle[1]
	for i := 6; i < 12; i++ {
		d, err := decodeDigit(row, counters, offset, lPatterns)
		if err != nil {
			return 0, err
		}
		digits[i] = '0' + byte(d)
		offset += sum(counters)
	}

	sb.WriteByte('0' + byte(first))
	sb.Write(digits[:])
	return offset, nil
}

// EAN8Reader reads EAN-8 rows.
type EAN8Reader struct{}

func (EAN8Reader) format() zxscan.Format { return zxscan.FormatEAN8 }

// DecodeRow implements RowReader.
func (r EAN8Reader) DecodeRow(rowNumber int, row *bitutil.BitArray, opts *zxscan.DecodeOptions) (*zxscan.Result, error) {
	start, err := findStartGuard(row)
	if err != nil {
		return nil, err
	}
	return decodeUPCEAN(rowNumber, row, start, r, opts)
}

func (EAN8Reader) decodeMiddle(row *bitutil.BitArray, start [2]int, sb *strings.Builder) (int, error) {
	var scratch [4]int
	counters := scratch[:]
	offset := start[1]
	for i := 0; i < 4; i++ {
		d, err := decodeDigit(row, counters, offset, lPatterns)
		if err != nil {
			return 0, err
		}
		sb.WriteByte('0' + byte(d))
		offset += sum(counters)
	}
	middle, err := middleGuard.find(row, offset, true)
	if err != nil {
		return 0, err
	}
	offset = middle[1]
	for i := 0; i < 4; i++ {
		d, err := decodeDigit(row, counters, offset, lPatterns)
		if err != nil {
			return 0, err
		}
		sb.WriteByte('0' + byte(d))
		offset += sum(counters)
	}
	return offset, nil
}

// UPCAReader reads UPC-A rows. A UPC-A symbol is an EAN-13 symbol whose
// leading digit is 0.
type UPCAReader struct{}

// DecodeRow implements RowReader.
func (UPCAReader) DecodeRow(rowNumber int, row *bitutil.BitArray, opts *zxscan.DecodeOptions) (*zxscan.Result, error) {
	res, err := EAN13Reader{}.DecodeRow(rowNumber, row, opts)
	if err != nil {
		return nil, err
	}
	return asUPCA(res)
}

func asUPCA(res *zxscan.Result) (*zxscan.Result, error) {
	if !strings.HasPrefix(res.Text, "0") {
		return nil, fmt.Errorf("oned: %q is not a UPC-A number: %w", res.Text, zxscan.ErrFormat)
	}
	out := zxscan.NewResult(res.Text[1:], nil, res.Points, zxscan.FormatUPCA)
	out.MergeMetadata(res.Metadata)
	return out, nil
}

// UPCEANReader tries every allowed member of the EAN/UPC family against a
// row, locating the start guard only once. It is configured once from the
// options it is built with.
type UPCEANReader struct {
	readers []middleDecoder
	upca    bool // report EAN-13 numbers starting with 0 as UPC-A
}

// NewUPCEANReader returns a reader for the EAN/UPC formats opts allows.
func NewUPCEANReader(opts *zxscan.DecodeOptions) *UPCEANReader {
	r := &UPCEANReader{}
	if opts.AllowsAny(zxscan.FormatEAN13, zxscan.FormatUPCA) {
		r.readers = append(r.readers, EAN13Reader{})
	}
	if opts.Allows(zxscan.FormatEAN8) {
		r.readers = append(r.readers, EAN8Reader{})
	}
	r.upca = opts.Allows(zxscan.FormatUPCA)
	return r
}

// DecodeRow implements RowReader.
func (r *UPCEANReader) DecodeRow(rowNumber int, row *bitutil.BitArray, opts *zxscan.DecodeOptions) (*zxscan.Result, error) {
	start, err := findStartGuard(row)
	if err != nil {
		return nil, err
	}
	lastErr := error(nil)
	for _, m := range r.readers {
		res, err := decodeUPCEAN(rowNumber, row, start, m, opts)
		if err != nil {
			lastErr = zxscan.MostSpecific(lastErr, err)
			continue
		}
		// UPC-A is reported as EAN-13 with a leading 0; convert it when the
		// caller asked for UPC-A, and keep EAN-13 when only that was asked.
		if res.Format == zxscan.FormatEAN13 && r.upca && strings.HasPrefix(res.Text, "0") {
			return asUPCA(res)
		}
		if !opts.Allows(res.Format) {
			lastErr = zxscan.MostSpecific(lastErr, fmt.Errorf("oned: %s not allowed: %w", res.Format, zxscan.ErrNotFound))
			continue
		}
		return res, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("oned: no EAN/UPC format enabled: %w", zxscan.ErrNotFound)
	}
	return nil, lastErr
}
