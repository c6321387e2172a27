// Package oned reads and writes linear barcodes: EAN-13, EAN-8, UPC-A,
// ITF and Code 39.
//
// Readers work on one binarized row at a time. Scan drives a RowReader
// over an image, starting at the middle row and moving outwards, and tries
// every row both forwards and reversed.
package oned

import (
	"fmt"
	"math"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

// RowReader decodes a symbol from a single row of black and white pixels.
type RowReader interface {
	DecodeRow(rowNumber int, row *bitutil.BitArray, opts *zxscan.DecodeOptions) (*zxscan.Result, error)
}

// Scan looks for a symbol by asking r to decode rows of image, working out
// from the middle row. Normally fifteen rows spread over the middle of the
// image are tried; with TryHarder every row is. A symbol found on a
// reversed row is reported with orientation 180 and its points mapped back
// to image coordinates.
func Scan(image *zxscan.BinaryBitmap, r RowReader, opts *zxscan.DecodeOptions) (*zxscan.Result, error) {
	width, height := image.Width(), image.Height()
	tryHarder := opts != nil && opts.TryHarder

	shift, maxLines := 5, 15
	if tryHarder {
		shift, maxLines = 8, height
	}
	step := max(1, height>>shift)
	middle := height / 2

	// reversed rows are speculative; keep callers' point hooks out of them
	reversedOpts := opts
	if opts != nil && opts.ResultPointCallback != nil {
		reversedOpts = opts.Clone()
		reversedOpts.ResultPointCallback = nil
	}

	var (
		row     *bitutil.BitArray
		lastErr error = fmt.Errorf("oned: no row decoded: %w", zxscan.ErrNotFound)
	)
	for x := 0; x < maxLines; x++ {
		offset := step * ((x + 1) / 2)
		if x&1 == 1 {
			offset = -offset
		}
		y := middle + offset
		if y < 0 || y >= height {
			break
		}
		var err error
		if row, err = image.BlackRow(y, row); err != nil {
			continue
		}

		res, err := r.DecodeRow(y, row, opts)
		if err == nil {
			return res, nil
		}
		lastErr = zxscan.MostSpecific(lastErr, err)

		row.Reverse()
		res, err = r.DecodeRow(y, row, reversedOpts)
		if err == nil {
			res.PutMetadata(zxscan.MetadataOrientation, 180)
			for i := range res.Points {
				res.Points[i].X = float64(width) - res.Points[i].X - 1
			}
			return res, nil
		}
		lastErr = zxscan.MostSpecific(lastErr, err)
	}
	return nil, lastErr
}

// RecordPattern measures len(counters) consecutive runs starting at start.
// Running off the end of the row is allowed only during the last run.
func RecordPattern(row *bitutil.BitArray, start int, counters []int) error {
	clear(counters)
	end := row.Len()
	if start >= end {
		return fmt.Errorf("oned: pattern start %d past row end: %w", start, zxscan.ErrNotFound)
	}
	white := !row.Get(start)
	pos := 0
	i := start
	for ; i < end; i++ {
		if row.Get(i) != white {
			counters[pos]++
			continue
		}
		pos++
		if pos == len(counters) {
			break
		}
		counters[pos] = 1
		white = !white
	}
	if pos != len(counters) && (pos != len(counters)-1 || i != end) {
		return fmt.Errorf("oned: row ended after %d of %d runs: %w", pos, len(counters), zxscan.ErrNotFound)
	}
	return nil
}

// RecordPatternInReverse walks back from start over len(counters)
// transitions and then records forwards from there.
func RecordPatternInReverse(row *bitutil.BitArray, start int, counters []int) error {
	left := len(counters)
	last := row.Get(start)
	for start > 0 && left >= 0 {
		start--
		if row.Get(start) != last {
			left--
			last = !last
		}
	}
	if left >= 0 {
		return fmt.Errorf("oned: too few transitions before %d: %w", start, zxscan.ErrNotFound)
	}
	return RecordPattern(row, start+1, counters)
}

// PatternMatchVariance scores how far the observed run widths are from
// pattern once both are scaled to the same total width. The result is the
// summed absolute deviation over the total observed width; 0 is a perfect
// match. It is +Inf when the observed total is narrower than the pattern
// or when any single run deviates by more than maxIndividual modules. A
// module is the largest width dividing every pattern element, so scaling
// the pattern does not change the result.
func PatternMatchVariance(counters, pattern []int, maxIndividual float64) float64 {
	total, patternLength, module := 0, 0, 0
	for i := range counters {
		total += counters[i]
		patternLength += pattern[i]
		module = gcd(module, pattern[i])
	}
	if total < patternLength {
		// a module would be under one pixel wide
		return math.Inf(1)
	}
	unit := float64(total) / float64(patternLength)
	maxIndividual *= unit * float64(max(module, 1))

	variance := 0.0
	for i, c := range counters {
		d := math.Abs(float64(c) - float64(pattern[i])*unit)
		if d > maxIndividual {
			return math.Inf(1)
		}
		variance += d
	}
	return variance / float64(total)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// guardSpec describes a guard pattern search.
type guardSpec struct {
	pattern       []int
	maxIndividual float64
	maxAverage    float64
}

// find scans row from offset for the pattern, starting on a white run when
// whiteFirst is set. It returns the pattern's start and end columns.
func (g guardSpec) find(row *bitutil.BitArray, offset int, whiteFirst bool) ([2]int, error) {
	counters := make([]int, len(g.pattern))
	if whiteFirst {
		offset = row.NextUnset(offset)
	} else {
		offset = row.NextSet(offset)
	}
	last := len(counters) - 1
	pos := 0
	patternStart := offset
	white := whiteFirst
	for x := offset; x < row.Len(); x++ {
		if row.Get(x) != white {
			counters[pos]++
			continue
		}
		if pos == last {
			if PatternMatchVariance(counters, g.pattern, g.maxIndividual) < g.maxAverage {
				return [2]int{patternStart, x}, nil
			}
			// slide the window on by one bar and one space
			patternStart += counters[0] + counters[1]
			copy(counters, counters[2:])
			counters[last-1], counters[last] = 0, 0
			pos--
		} else {
			pos++
		}
		counters[pos] = 1
		white = !white
	}
	return [2]int{}, fmt.Errorf("oned: guard pattern %v not found: %w", g.pattern, zxscan.ErrNotFound)
}

// bestMatch returns the index of the pattern the counters fit best, or -1
// when none is within maxAverage.
func bestMatch(counters []int, patterns [][]int, maxIndividual, maxAverage float64) int {
	best := -1
	bestVariance := maxAverage
	for i, p := range patterns {
		if v := PatternMatchVariance(counters, p, maxIndividual); v < bestVariance {
			bestVariance = v
			best = i
		}
	}
	return best
}

func sum(counters []int) int {
	n := 0
	for _, c := range counters {
		n += c
	}
	return n
}
