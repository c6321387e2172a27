package oned

import (
	"fmt"
	"math"
	"strings"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

const code39Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-. $/+%"

// code39Encodings gives, per alphabet character, the nine elements as a
// bit mask with bit 8 for the first bar and a set bit for a wide element.
var code39Encodings = [43]int{
	0x034, 0x121, 0x061, 0x160, 0x031, 0x130, 0x070, 0x025, 0x124, 0x064,
	0x109, 0x049, 0x148, 0x019, 0x118, 0x058, 0x00D, 0x10C, 0x04C, 0x01C,
	0x103, 0x043, 0x142, 0x013, 0x112, 0x052, 0x007, 0x106, 0x046, 0x016,
	0x181, 0x0C1, 0x1C0, 0x091, 0x190, 0x0D0, 0x085, 0x184, 0x0C4, 0x0A8,
	0x0A2, 0x08A, 0x02A,
}

const code39Asterisk = 0x094

// Code39Reader reads Code 39 rows.
type Code39Reader struct {
	// CheckDigit verifies and strips the trailing mod-43 check character.
	CheckDigit bool
	// Extended decodes full-ASCII shift pairs.
	Extended bool
}

// DecodeRow implements RowReader. The options can switch on the check
// digit and extended mode in addition to the reader's own settings.
func (r Code39Reader) DecodeRow(rowNumber int, row *bitutil.BitArray, opts *zxscan.DecodeOptions) (*zxscan.Result, error) {
	var scratch [9]int
	counters := scratch[:]

	start, err := findCode39Start(row, counters)
	if err != nil {
		return nil, err
	}
	next := row.NextSet(start[1])
	end := row.Len()

	var (
		out       []byte
		lastStart int
	)
	for {
		if err := RecordPattern(row, next, counters); err != nil {
			return nil, err
		}
		ch, ok := code39Char(narrowWide(counters))
		if !ok {
			return nil, fmt.Errorf("oned: unknown Code 39 pattern %v: %w", counters, zxscan.ErrNotFound)
		}
		lastStart = next
		next = row.NextSet(next + sum(counters))
		if ch == '*' {
			break
		}
		out = append(out, ch)
	}

	// trailing white must be at least half the width of the stop character
	last := sum(counters)
	if trailing := next - lastStart - last; next != end && 2*trailing < last {
		return nil, fmt.Errorf("oned: no quiet zone after Code 39 stop: %w", zxscan.ErrNotFound)
	}

	text := string(out)
	if r.CheckDigit || (opts != nil && opts.AssumeCode39CheckDigit) {
		if len(text) == 0 {
			return nil, fmt.Errorf("oned: empty Code 39 payload: %w", zxscan.ErrNotFound)
		}
		body, check := text[:len(text)-1], text[len(text)-1]
		if Code39CheckChar(body) != check {
			return nil, fmt.Errorf("oned: Code 39 check character %q mismatch: %w", check, zxscan.ErrChecksum)
		}
		text = body
	}
	if len(text) == 0 {
		return nil, fmt.Errorf("oned: empty Code 39 payload: %w", zxscan.ErrNotFound)
	}
	if r.Extended || (opts != nil && opts.Code39Extended) {
		if text, err = decodeCode39Extended(text); err != nil {
			return nil, err
		}
	}

	y := float64(rowNumber)
	res := zxscan.NewResult(text, nil, []zxscan.ResultPoint{
		{X: float64(start[0]+start[1]) / 2, Y: y},
		{X: float64(lastStart) + float64(last)/2, Y: y},
	}, zxscan.FormatCode39)
	res.PutMetadata(zxscan.MetadataSymbologyIdentifier, "]A0")
	return res, nil
}

// Code39CheckChar returns the mod-43 check character for s, or 0 when s
// holds a character outside the Code 39 alphabet.
func Code39CheckChar(s string) byte {
	total := 0
	for i := 0; i < len(s); i++ {
		v := strings.IndexByte(code39Alphabet, s[i])
		if v < 0 {
			return 0
		}
		total += v
	}
	return code39Alphabet[total%43]
}

// findCode39Start finds the '*' start character with white before it of
// at least half its own width.
func findCode39Start(row *bitutil.BitArray, counters []int) ([2]int, error) {
	clear(counters)
	offset := row.NextSet(0)
	last := len(counters) - 1
	pos := 0
	patternStart := offset
	white := false
	for i := offset; i < row.Len(); i++ {
		if row.Get(i) != white {
			counters[pos]++
			continue
		}
		if pos == last {
			if narrowWide(counters) == code39Asterisk {
				quiet := max(0, patternStart-(i-patternStart)/2)
				if row.IsRange(quiet, patternStart, false) {
					return [2]int{patternStart, i}, nil
				}
			}
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
	return [2]int{}, fmt.Errorf("oned: no Code 39 start character: %w", zxscan.ErrNotFound)
}

// narrowWide classifies nine element widths into a wide/narrow bit mask
// with exactly three wide elements, or returns -1. The threshold is raised
// one distinct width at a time until at most three elements are wider.
func narrowWide(counters []int) int {
	maxNarrow := 0
	for {
		threshold := math.MaxInt
		for _, c := range counters {
			if c < threshold && c > maxNarrow {
				threshold = c
			}
		}
		maxNarrow = threshold
		wide, wideTotal, pattern := 0, 0, 0
		for i, c := range counters {
			if c > maxNarrow {
				pattern |= 1 << uint(len(counters)-1-i)
				wide++
				wideTotal += c
			}
		}
		if wide == 3 {
			// no single wide element may take half the wide width
			for _, c := range counters {
				if c > maxNarrow && 2*c >= wideTotal {
					return -1
				}
			}
			return pattern
		}
		if wide < 3 {
			return -1
		}
	}
}

func code39Char(pattern int) (byte, bool) {
	if pattern == code39Asterisk {
		return '*', true
	}
	for i, enc := range code39Encodings {
		if enc == pattern {
			return code39Alphabet[i], true
		}
	}
	return 0, false
}

// decodeCode39Extended resolves full-ASCII shift pairs.
func decodeCode39Extended(s string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !strings.ContainsRune("+$%/", rune(c)) {
			sb.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("oned: dangling Code 39 shift %q: %w", c, zxscan.ErrFormat)
		}
		next := s[i+1]
		i++
		var d byte
		ok := true
		switch c {
		case '+':
			ok = next >= 'A' && next <= 'Z'
			d = next + 32
		case '$':
			ok = next >= 'A' && next <= 'Z'
			d = next - 64
		case '%':
			switch {
			case next >= 'A' && next <= 'E':
				d = next - 38
			case next >= 'F' && next <= 'J':
				d = next - 11
			case next >= 'K' && next <= 'O':
				d = next + 16
			case next >= 'P' && next <= 'T':
				d = next + 43
			case next == 'U':
				d = 0
			case next == 'V':
				d = '@'
			case next == 'W':
				d = '`'
			case next == 'X', next == 'Y', next == 'Z':
				d = 127
			default:
				ok = false
			}
		case '/':
			switch {
			case next >= 'A' && next <= 'O':
				d = next - 32
			case next == 'Z':
				d = ':'
			default:
				ok = false
			}
		}
		if !ok {
			return "", fmt.Errorf("oned: invalid Code 39 shift pair %q: %w", string([]byte{c, next}), zxscan.ErrFormat)
		}
		sb.WriteByte(d)
	}
	return sb.String(), nil
}
