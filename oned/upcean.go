package oned

import (
	"fmt"
	"strings"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

const (
	upceanMaxAverage    = 0.48
	upceanMaxIndividual = 0.7
)

var (
	startEndGuard = guardSpec{[]int{1, 1, 1}, upceanMaxIndividual, upceanMaxAverage}
	middleGuard   = guardSpec{[]int{1, 1, 1, 1, 1}, upceanMaxIndividual, upceanMaxAverage}
)

// lPatterns are the run widths of the odd-parity ("L") digit codes,
// starting with a space.
var lPatterns = [][]int{
	{3, 2, 1, 1}, {2, 2, 2, 1}, {2, 1, 2, 2}, {1, 4, 1, 1}, {1, 1, 3, 2},
	{1, 2, 3, 1}, {1, 1, 1, 4}, {1, 3, 1, 2}, {1, 2, 1, 3}, {3, 1, 1, 2},
}

// lgPatterns holds the L codes followed by the even-parity G codes, which
// are the L codes reversed.
var lgPatterns = func() [][]int {
	out := make([][]int, 20)
	copy(out, lPatterns)
	for i, p := range lPatterns {
		g := make([]int, len(p))
		for j := range p {
			g[j] = p[len(p)-1-j]
		}
		out[10+i] = g
	}
	return out
}()

// middleDecoder reads the digits between the start and end guards.
type middleDecoder interface {
	format() zxscan.Format
	// decodeMiddle appends the digits to sb and returns the column where
	// the end guard starts.
	decodeMiddle(row *bitutil.BitArray, start [2]int, sb *strings.Builder) (int, error)
}

// findStartGuard returns the first 1:1:1 guard preceded by a quiet zone at
// least as wide as the guard itself.
func findStartGuard(row *bitutil.BitArray) ([2]int, error) {
	next := 0
	for {
		r, err := startEndGuard.find(row, next, false)
		if err != nil {
			return r, err
		}
		next = r[1]
		quiet := r[0] - (r[1] - r[0])
		if quiet >= 0 && row.IsRange(quiet, r[0], false) {
			return r, nil
		}
	}
}

func decodeUPCEAN(rowNumber int, row *bitutil.BitArray, start [2]int, m middleDecoder, opts *zxscan.DecodeOptions) (*zxscan.Result, error) {
	y := float64(rowNumber)
	opts.FoundPoint(zxscan.ResultPoint{X: float64(start[0]+start[1]) / 2, Y: y})

	var sb strings.Builder
	endStart, err := m.decodeMiddle(row, start, &sb)
	if err != nil {
		return nil, err
	}
	opts.FoundPoint(zxscan.ResultPoint{X: float64(endStart), Y: y})

	end, err := startEndGuard.find(row, endStart, false)
	if err != nil {
		return nil, err
	}
	opts.FoundPoint(zxscan.ResultPoint{X: float64(end[0]+end[1]) / 2, Y: y})

	// quiet zone after the end guard, at least as wide as the guard
	quietEnd := end[1] + (end[1] - end[0])
	if quietEnd >= row.Len() || !row.IsRange(end[1], quietEnd, false) {
		return nil, fmt.Errorf("oned: no quiet zone after %s: %w", m.format(), zxscan.ErrNotFound)
	}

	text := sb.String()
	if len(text) < 8 {
		return nil, fmt.Errorf("oned: %s payload %q too short: %w", m.format(), text, zxscan.ErrFormat)
	}
	if !validCheckDigit(text) {
		return nil, fmt.Errorf("oned: %s check digit mismatch in %q: %w", m.format(), text, zxscan.ErrChecksum)
	}

	res := zxscan.NewResult(text, nil, []zxscan.ResultPoint{
		{X: float64(start[0]+start[1]) / 2, Y: y},
		{X: float64(end[0]+end[1]) / 2, Y: y},
	}, m.format())
	switch m.format() {
	case zxscan.FormatEAN8:
		res.PutMetadata(zxscan.MetadataSymbologyIdentifier, "]E4")
	default:
		res.PutMetadata(zxscan.MetadataSymbologyIdentifier, "]E0")
		if country := countryFor(text); country != "" {
			res.PutMetadata(zxscan.MetadataPossibleCountry, country)
		}
	}
	return res, nil
}

// CheckDigit returns the UPC/EAN mod-10 check digit for digits, or -1 when
// digits holds anything but '0'..'9'.
func CheckDigit(digits string) int {
	total := 0
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i]) - '0'
		if d < 0 || d > 9 {
			return -1
		}
		// weights 3,1,3,1... counted from the right
		if (len(digits)-1-i)%2 == 0 {
			d *= 3
		}
		total += d
	}
	return (10 - total%10) % 10
}

func validCheckDigit(s string) bool {
	if len(s) < 2 {
		return false
	}
	return CheckDigit(s[:len(s)-1]) == int(s[len(s)-1])-'0'
}

// decodeDigit reads one digit at offset and returns its pattern index.
func decodeDigit(row *bitutil.BitArray, counters []int, offset int, patterns [][]int) (int, error) {
	if err := RecordPattern(row, offset, counters); err != nil {
		return 0, err
	}
	if i := bestMatch(counters, patterns, upceanMaxIndividual, upceanMaxAverage); i >= 0 {
		return i, nil
	}
	return 0, fmt.Errorf("oned: no digit matches %v: %w", counters, zxscan.ErrNotFound)
}
