package oned

import (
	"fmt"
	"strings"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

// QuietZone is the blank margin, in modules, that writers leave on each
// side of a symbol.
const QuietZone = 10

// Writer renders contents as a symbol of a single format.
type Writer interface {
	// Encode returns a width×height matrix, enlarged if needed to fit the
	// symbol and its quiet zones. A format other than the writer's own or
	// contents the format cannot hold yield ErrInvalidArgument.
	Encode(contents string, format zxscan.Format, width, height int) (*bitutil.BitMatrix, error)
}

// NewWriter returns the writer for format.
func NewWriter(format zxscan.Format) (Writer, error) {
	switch format {
	case zxscan.FormatEAN13:
		return EAN13Writer{}, nil
	case zxscan.FormatEAN8:
		return EAN8Writer{}, nil
	case zxscan.FormatITF:
		return ITFWriter{}, nil
	case zxscan.FormatCode39:
		return Code39Writer{}, nil
	}
	return nil, fmt.Errorf("oned: no writer for %s: %w", format, zxscan.ErrInvalidArgument)
}

// render scales the module pattern to width and centres it, with at least
// QuietZone modules of white each side.
func render(code []bool, width, height int) *bitutil.BitMatrix {
	full := len(code) + 2*QuietZone
	width = max(width, full)
	height = max(height, 1)
	multiple := width / full
	left := (width - len(code)*multiple) / 2

	m := bitutil.NewBitMatrix(width, height)
	for i, black := range code {
		if black {
			m.SetRegion(left+i*multiple, 0, multiple, height)
		}
	}
	return m
}

// appendPattern writes runs of alternating colour, the first one black
// when black is set, and returns the number of modules written.
func appendPattern(target []bool, pos int, pattern []int, black bool) int {
	n := 0
	for _, w := range pattern {
		for j := 0; j < w; j++ {
			target[pos+n] = black
			n++
		}
		black = !black
	}
	return n
}

func wrongFormat(want, got zxscan.Format) error {
	return fmt.Errorf("oned: can only encode %s, got %s: %w", want, got, zxscan.ErrInvalidArgument)
}

// upceanContents accepts n-1 digits, to which the check digit is added,
// or n digits with a correct check digit.
func upceanContents(contents string, n int) (string, error) {
	for i := 0; i < len(contents); i++ {
		if contents[i] < '0' || contents[i] > '9' {
			return "", fmt.Errorf("oned: %q is not numeric: %w", contents, zxscan.ErrInvalidArgument)
		}
	}
	switch len(contents) {
	case n - 1:
		return contents + string(rune('0'+CheckDigit(contents))), nil
	case n:
		if !validCheckDigit(contents) {
			return "", fmt.Errorf("oned: %q has a bad check digit: %w", contents, zxscan.ErrInvalidArgument)
		}
		return contents, nil
	}
	return "", fmt.Errorf("oned: want %d or %d digits, got %d: %w", n-1, n, len(contents), zxscan.ErrInvalidArgument)
}

// EAN13Writer renders EAN-13 symbols from 12 or 13 digits.
type EAN13Writer struct{}

// Encode implements Writer.
func (EAN13Writer) Encode(contents string, format zxscan.Format, width, height int) (*bitutil.BitMatrix, error) {
	if format != zxscan.FormatEAN13 {
		return nil, wrongFormat(zxscan.FormatEAN13, format)
	}
	s, err := upceanContents(contents, 13)
	if err != nil {
		return nil, err
	}
	return render(ean13Modules(s), width, height), nil
}

// ean13Modules lays out 13 digits without checking them.
func ean13Modules(s string) []bool {
	code := make([]bool, 3+7*6+5+7*6+3)
	parity := ean13Parity[s[0]-'0']
	pos := appendPattern(code, 0, startEndGuard.pattern, true)
	for i := 1; i <= 6; i++ {
		d := int(s[i] - '0')
		if parity>>uint(6-i)&1 == 1 {
			d += 10
		}
		pos += appendPattern(code, pos, lgPatterns[d], false)
	}
	pos += appendPattern(code, pos, middleGuard.pattern, false)
	for i := 7; i <= 12; i++ {
		pos += appendPattern(code, pos, lPatterns[s[i]-'0'], true)
	}
	appendPattern(code, pos, startEndGuard.pattern, true)
	return code
}

// EAN8Writer renders EAN-8 symbols from 7 or 8 digits.
type EAN8Writer struct{}

// Encode implements Writer.
func (EAN8Writer) Encode(contents string, format zxscan.Format, width, height int) (*bitutil.BitMatrix, error) {
	if format != zxscan.FormatEAN8 {
		return nil, wrongFormat(zxscan.FormatEAN8, format)
	}
	s, err := upceanContents(contents, 8)
	if err != nil {
		return nil, err
	}
	code := make([]bool, 3+7*4+5+7*4+3)
	pos := appendPattern(code, 0, startEndGuard.pattern, true)
	for i := 0; i < 4; i++ {
		pos += appendPattern(code, pos, lPatterns[s[i]-'0'], false)
	}
	pos += appendPattern(code, pos, middleGuard.pattern, false)
	for i := 4; i < 8; i++ {
		pos += appendPattern(code, pos, lPatterns[s[i]-'0'], true)
	}
	appendPattern(code, pos, startEndGuard.pattern, true)
	return render(code, width, height), nil
}

// ITFWriter renders Interleaved 2 of 5 symbols from an even number of
// digits, with wide elements three modules across.
type ITFWriter struct{}

// Encode implements Writer.
func (ITFWriter) Encode(contents string, format zxscan.Format, width, height int) (*bitutil.BitMatrix, error) {
	if format != zxscan.FormatITF {
		return nil, wrongFormat(zxscan.FormatITF, format)
	}
	if len(contents) == 0 || len(contents)%2 != 0 || len(contents) > 80 {
		return nil, fmt.Errorf("oned: ITF needs an even number of digits up to 80, got %d: %w", len(contents), zxscan.ErrInvalidArgument)
	}
	for i := 0; i < len(contents); i++ {
		if contents[i] < '0' || contents[i] > '9' {
			return nil, fmt.Errorf("oned: %q is not numeric: %w", contents, zxscan.ErrInvalidArgument)
		}
	}
	end := []int{3, 1, 1}
	// each digit pair takes two digits of 2 wide and 3 narrow elements
	code := make([]bool, 4+len(contents)/2*18+5)
	pos := appendPattern(code, 0, itfStart.pattern, true)
	var pair [10]int
	for i := 0; i < len(contents); i += 2 {
		bars := itfPatterns[10+int(contents[i]-'0')]
		spaces := itfPatterns[10+int(contents[i+1]-'0')]
		for j := 0; j < 5; j++ {
			pair[2*j] = bars[j]
			pair[2*j+1] = spaces[j]
		}
		pos += appendPattern(code, pos, pair[:], true)
	}
	appendPattern(code, pos, end, true)
	return render(code, width, height), nil
}

// Code39Writer renders Code 39 symbols. Contents outside the Code 39
// alphabet are written in full-ASCII mode.
type Code39Writer struct{}

// Encode implements Writer.
func (Code39Writer) Encode(contents string, format zxscan.Format, width, height int) (*bitutil.BitMatrix, error) {
	if format != zxscan.FormatCode39 {
		return nil, wrongFormat(zxscan.FormatCode39, format)
	}
	for i := 0; i < len(contents); i++ {
		if strings.IndexByte(code39Alphabet, contents[i]) < 0 {
			var err error
			if contents, err = code39FullASCII(contents); err != nil {
				return nil, err
			}
			break
		}
	}
	if len(contents) == 0 || len(contents) > 80 {
		return nil, fmt.Errorf("oned: Code 39 holds 1 to 80 characters, got %d: %w", len(contents), zxscan.ErrInvalidArgument)
	}

	// every character is 12 modules plus a one-module gap
	code := make([]bool, 25+13*len(contents))
	var widths [9]int
	gap := []int{1}
	code39Widths(code39Asterisk, &widths)
	pos := appendPattern(code, 0, widths[:], true)
	pos += appendPattern(code, pos, gap, false)
	for i := 0; i < len(contents); i++ {
		code39Widths(code39Encodings[strings.IndexByte(code39Alphabet, contents[i])], &widths)
		pos += appendPattern(code, pos, widths[:], true)
		pos += appendPattern(code, pos, gap, false)
	}
	code39Widths(code39Asterisk, &widths)
	appendPattern(code, pos, widths[:], true)
	return render(code, width, height), nil
}

func code39Widths(enc int, widths *[9]int) {
	for i := range widths {
		widths[i] = 1
		if enc&(1<<uint(8-i)) != 0 {
			widths[i] = 2
		}
	}
}

// code39FullASCII rewrites ASCII text as Code 39 shift pairs.
func code39FullASCII(s string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == 0:
			sb.WriteString("%U")
		case c == ' ' || c == '-' || c == '.':
			sb.WriteByte(c)
		case c == '@':
			sb.WriteString("%V")
		case c == '`':
			sb.WriteString("%W")
		case c <= 26:
			sb.WriteByte('$')
			sb.WriteByte('A' + c - 1)
		case c < ' ':
			sb.WriteByte('%')
			sb.WriteByte('A' + c - 27)
		case c <= ',' || c == '/' || c == ':':
			sb.WriteByte('/')
			sb.WriteByte('A' + c - 33)
		case c <= '9':
			sb.WriteByte(c)
		case c <= '?':
			sb.WriteByte('%')
			sb.WriteByte('F' + c - 59)
		case c <= 'Z':
			sb.WriteByte(c)
		case c <= '_':
			sb.WriteByte('%')
			sb.WriteByte('K' + c - 91)
		case c <= 'z':
			sb.WriteByte('+')
			sb.WriteByte('A' + c - 97)
		case c <= 127:
			sb.WriteByte('%')
			sb.WriteByte('P' + c - 123)
		default:
			return "", fmt.Errorf("oned: %q cannot be written in Code 39: %w", c, zxscan.ErrInvalidArgument)
		}
	}
	return sb.String(), nil
}
