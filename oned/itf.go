package oned

import (
	"fmt"
	"slices"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

// Interleaved 2 of 5 encodes digit pairs, the first digit of each pair in
// the bars and the second in the spaces. Wide elements may be two or three
// times the narrow width.

const (
	itfMaxAverage      = 0.38
	itfMaxIndividual2x = 0.5
	itfMaxIndividual3x = 0.75
)

var itfPatterns = [][]int{
	{1, 1, 2, 2, 1}, {2, 1, 1, 1, 2}, {1, 2, 1, 1, 2}, {2, 2, 1, 1, 1}, {1, 1, 2, 1, 2},
	{2, 1, 2, 1, 1}, {1, 2, 2, 1, 1}, {1, 1, 1, 2, 2}, {2, 1, 1, 2, 1}, {1, 2, 1, 2, 1},
	{1, 1, 3, 3, 1}, {3, 1, 1, 1, 3}, {1, 3, 1, 1, 3}, {3, 3, 1, 1, 1}, {1, 1, 3, 1, 3},
	{3, 1, 3, 1, 1}, {1, 3, 3, 1, 1}, {1, 1, 1, 3, 3}, {3, 1, 1, 3, 1}, {1, 3, 1, 3, 1},
}

var (
	itfStart = guardSpec{[]int{1, 1, 1, 1}, itfMaxIndividual2x, itfMaxAverage}
	// end guards as seen on the reversed row
	itfEnds = []guardSpec{
		{[]int{1, 1, 2}, itfMaxIndividual2x, itfMaxAverage},
		{[]int{1, 1, 3}, itfMaxIndividual2x, itfMaxAverage},
	}
)

// DefaultITFLengths are the payload lengths accepted when the options name
// none.
var DefaultITFLengths = []int{6, 8, 10, 12, 14, 16, 18, 20, 24, 44}

// ITFReader reads Interleaved 2 of 5 rows. It keeps no state between rows.
type ITFReader struct{}

// DecodeRow implements RowReader.
func (ITFReader) DecodeRow(rowNumber int, row *bitutil.BitArray, opts *zxscan.DecodeOptions) (*zxscan.Result, error) {
	start, narrow, err := itfDecodeStart(row)
	if err != nil {
		return nil, err
	}
	end, err := itfDecodeEnd(row, narrow)
	if err != nil {
		return nil, err
	}
	if end[0] < start[1] {
		return nil, fmt.Errorf("oned: ITF guards overlap: %w", zxscan.ErrNotFound)
	}
	text, err := itfDecodeMiddle(row, start[1], end[0])
	if err != nil {
		return nil, err
	}

	var allowed []int
	if opts != nil {
		allowed = opts.AllowedLengths
	}
	if !itfLengthAllowed(len(text), allowed) {
		return nil, fmt.Errorf("oned: ITF length %d not allowed: %w", len(text), zxscan.ErrFormat)
	}

	y := float64(rowNumber)
	res := zxscan.NewResult(text, nil, []zxscan.ResultPoint{
		{X: float64(start[1]), Y: y},
		{X: float64(end[0]), Y: y},
	}, zxscan.FormatITF)
	res.PutMetadata(zxscan.MetadataSymbologyIdentifier, "]I0")
	return res, nil
}

// itfLengthAllowed accepts any listed length, and any length longer than
// the longest listed one.
func itfLengthAllowed(n int, allowed []int) bool {
	if len(allowed) == 0 {
		allowed = DefaultITFLengths
	}
	return slices.Contains(allowed, n) || n > slices.Max(allowed)
}

func itfDecodeMiddle(row *bitutil.BitArray, offset, end int) (string, error) {
	var pair [10]int
	var bars, spaces [5]int
	var out []byte
	for offset < end {
		if err := RecordPattern(row, offset, pair[:]); err != nil {
			return "", err
		}
		for k := 0; k < 5; k++ {
			bars[k] = pair[2*k]
			spaces[k] = pair[2*k+1]
		}
		d, err := itfDigit(bars[:])
		if err != nil {
			return "", err
		}
		out = append(out, '0'+byte(d))
		if d, err = itfDigit(spaces[:]); err != nil {
			return "", err
		}
		out = append(out, '0'+byte(d))
		offset += sum(pair[:])
	}
	return string(out), nil
}

// itfDecodeStart finds the start guard and returns it with the narrow
// element width it implies.
func itfDecodeStart(row *bitutil.BitArray) ([2]int, int, error) {
	first := row.NextSet(0)
	if first == row.Len() {
		return [2]int{}, 0, fmt.Errorf("oned: blank row: %w", zxscan.ErrNotFound)
	}
	r, err := itfStart.find(row, first, false)
	if err != nil {
		return r, 0, err
	}
	narrow := (r[1] - r[0]) / 4
	if err := itfQuietZone(row, r[0], narrow); err != nil {
		return r, 0, err
	}
	return r, narrow, nil
}

// itfQuietZone requires ten narrow widths of white before start, or as
// much as the row has.
func itfQuietZone(row *bitutil.BitArray, start, narrow int) error {
	quiet := max(0, start-max(1, 10*narrow))
	if !row.IsRange(quiet, start, false) {
		return fmt.Errorf("oned: no ITF quiet zone before %d: %w", start, zxscan.ErrNotFound)
	}
	return nil
}

func itfDecodeEnd(row *bitutil.BitArray, narrow int) ([2]int, error) {
	row.Reverse()
	defer row.Reverse()

	first := row.NextSet(0)
	if first == row.Len() {
		return [2]int{}, fmt.Errorf("oned: blank row: %w", zxscan.ErrNotFound)
	}
	var (
		r   [2]int
		err error
	)
	for _, g := range itfEnds {
		if r, err = g.find(row, first, false); err == nil {
			break
		}
	}
	if err != nil {
		return r, err
	}
	if err := itfQuietZone(row, r[0], narrow); err != nil {
		return r, err
	}
	n := row.Len()
	return [2]int{n - r[1], n - r[0]}, nil
}

// itfDigit matches five element widths against both the 2x and 3x digit
// tables. An exact tie between two digits is rejected.
func itfDigit(counters []int) (int, error) {
	best := -1
	bestVariance := itfMaxAverage
	for i, p := range itfPatterns {
		maxIndividual := itfMaxIndividual2x
		if i > 9 {
			maxIndividual = itfMaxIndividual3x
		}
		v := PatternMatchVariance(counters, p, maxIndividual)
		switch {
		case v < bestVariance:
			bestVariance = v
			best = i
		case v == bestVariance:
			best = -1
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("oned: no ITF digit matches %v: %w", counters, zxscan.ErrNotFound)
	}
	return best % 10, nil
}
