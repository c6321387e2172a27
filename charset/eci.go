// Package charset maps ECI designators to text encodings and converts byte
// segments to UTF-8.
package charset

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnknownECI is returned for an ECI value outside 0..999999 or one with no
// known encoding.
var ErrUnknownECI = errors.New("charset: unknown ECI")

// ECI is an Extended Channel Interpretation designator together with the
// encoding it selects.
type ECI struct {
	Value int
	Name  string // IANA name
	enc   encoding.Encoding
}

// Encoding returns the text encoding the ECI designates.
func (e *ECI) Encoding() encoding.Encoding { return e.enc }

var ecis = []struct {
	values []int
	name   string
	enc    encoding.Encoding
}{
	{[]int{0, 2}, "IBM437", charmap.CodePage437},
	{[]int{1, 3}, "ISO-8859-1", charmap.ISO8859_1},
	{[]int{4}, "ISO-8859-2", charmap.ISO8859_2},
	{[]int{5}, "ISO-8859-3", charmap.ISO8859_3},
	{[]int{6}, "ISO-8859-4", charmap.ISO8859_4},
	{[]int{7}, "ISO-8859-5", charmap.ISO8859_5},
	{[]int{8}, "ISO-8859-6", charmap.ISO8859_6},
	{[]int{9}, "ISO-8859-7", charmap.ISO8859_7},
	{[]int{10}, "ISO-8859-8", charmap.ISO8859_8},
	{[]int{11}, "ISO-8859-9", charmap.ISO8859_9},
	{[]int{12}, "ISO-8859-10", charmap.ISO8859_10},
	{[]int{13}, "TIS-620", charmap.Windows874},
	{[]int{15}, "ISO-8859-13", charmap.ISO8859_13},
	{[]int{16}, "ISO-8859-14", charmap.ISO8859_14},
	{[]int{17}, "ISO-8859-15", charmap.ISO8859_15},
	{[]int{18}, "ISO-8859-16", charmap.ISO8859_16},
	{[]int{20}, "Shift_JIS", japanese.ShiftJIS},
	{[]int{21}, "windows-1250", charmap.Windows1250},
	{[]int{22}, "windows-1251", charmap.Windows1251},
	{[]int{23}, "windows-1252", charmap.Windows1252},
	{[]int{24}, "windows-1256", charmap.Windows1256},
	{[]int{25}, "UTF-16BE", unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
	{[]int{26}, "UTF-8", unicode.UTF8},
	{[]int{27, 170}, "US-ASCII", charmap.Windows1252},
	{[]int{28}, "Big5", traditionalchinese.Big5},
	{[]int{29}, "GB18030", simplifiedchinese.GB18030},
	{[]int{30}, "EUC-KR", korean.EUCKR},
}

// ByValue returns the ECI registered for value.
func ByValue(value int) (*ECI, error) {
	if value < 0 || value > 999999 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownECI, value)
	}
	for _, e := range ecis {
		for _, v := range e.values {
			if v == value {
				return &ECI{Value: value, Name: e.name, enc: e.enc}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownECI, value)
}

// Lookup resolves an encoding by IANA name or alias, case-insensitively.
func Lookup(name string) (encoding.Encoding, error) {
	for _, e := range ecis {
		if strings.EqualFold(e.name, name) {
			return e.enc, nil
		}
	}
	switch strings.ToUpper(strings.ReplaceAll(name, "-", "_")) {
	case "SJIS":
		return japanese.ShiftJIS, nil
	case "UTF8":
		return unicode.UTF8, nil
	case "ISO8859_1":
		return charmap.ISO8859_1, nil
	case "GBK", "GB2312", "EUC_CN":
		return simplifiedchinese.GB18030, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("charset %q is not supported", name)
	}
	return enc, nil
}

// Decode converts data in the named encoding to UTF-8. Bytes that are
// already valid UTF-8 pass through when the name cannot be resolved.
func Decode(data []byte, name string) (string, error) {
	enc, err := Lookup(name)
	if err != nil {
		if utf8.Valid(data) {
			return string(data), nil
		}
		return "", err
	}
	return DecodeWith(data, enc)
}

// DecodeWith converts data using enc.
func DecodeWith(data []byte, enc encoding.Encoding) (string, error) {
	if enc == unicode.UTF8 {
		return string(data), nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("charset: %w", err)
	}
	return string(out), nil
}
