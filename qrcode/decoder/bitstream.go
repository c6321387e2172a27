package decoder

import (
	"strconv"
	"strings"

	"github.com/ericlevine/zxscan/bitutil"
	"github.com/ericlevine/zxscan/charset"
	"github.com/ericlevine/zxscan/internal"
)

// Mode is a segment mode indicator.
type Mode int

const (
	ModeTerminator    Mode = 0x0
	ModeNumeric       Mode = 0x1
	ModeAlphanumeric  Mode = 0x2
	ModeStructuredApp Mode = 0x3
	ModeByte          Mode = 0x4
	ModeFNC1First     Mode = 0x5
	ModeECI           Mode = 0x7
	ModeKanji         Mode = 0x8
	ModeFNC1Second    Mode = 0x9
	ModeHanzi         Mode = 0xD
)

// countBits returns the width of the character count field, which grows at
// versions 10 and 27.
func (m Mode) countBits(v *Version) int {
	var widths [3]int
	switch m {
	case ModeNumeric:
		widths = [3]int{10, 12, 14}
	case ModeAlphanumeric:
		widths = [3]int{9, 11, 13}
	case ModeByte:
		widths = [3]int{8, 16, 16}
	case ModeKanji, ModeHanzi:
		widths = [3]int{8, 10, 12}
	default:
		return 0
	}
	switch {
	case v.Number <= 9:
		return widths[0]
	case v.Number <= 26:
		return widths[1]
	}
	return widths[2]
}

const alnumTable = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ $%*+-./:"

const hanziGB2312 = 1

// streamDecoder accumulates the text of consecutive segments.
type streamDecoder struct {
	src      *bitutil.BitSource
	version  *Version
	hint     string
	text     strings.Builder
	segments [][]byte
	eci      *charset.ECI
	fnc1     bool
}

// decodeStream turns the corrected data codewords into text.
func decodeStream(data []byte, v *Version, level ECLevel, hint string) (*internal.DecoderResult, error) {
	d := &streamDecoder{src: bitutil.NewBitSource(data), version: v, hint: hint}
	seq, parity := -1, -1
	fnc1First, fnc1Second := false, false

	for {
		mode := ModeTerminator
		if d.src.Available() >= 4 {
			bits, err := d.read(4)
			if err != nil {
				return nil, err
			}
			mode = Mode(bits)
		}

		var err error
		switch mode {
		case ModeTerminator:
		case ModeFNC1First:
			fnc1First, d.fnc1 = true, true
		case ModeFNC1Second:
			fnc1Second, d.fnc1 = true, true
		case ModeStructuredApp:
			if d.src.Available() < 16 {
				return nil, formatErr("truncated structured append header")
			}
			seq, _ = d.src.ReadBits(8)
			parity, _ = d.src.ReadBits(8)
		case ModeECI:
			err = d.readECI()
		case ModeHanzi:
			subset, rerr := d.read(4)
			if rerr != nil {
				return nil, rerr
			}
			count, rerr := d.read(mode.countBits(v))
			if rerr != nil {
				return nil, rerr
			}
			if subset == hanziGB2312 {
				err = d.doubleByte(count, 0x060, 0x00A00, 0x0A1A1, 0x0A6A1, "GB18030")
			}
		case ModeNumeric, ModeAlphanumeric, ModeByte, ModeKanji:
			count, rerr := d.read(mode.countBits(v))
			if rerr != nil {
				return nil, rerr
			}
			switch mode {
			case ModeNumeric:
				err = d.numeric(count)
			case ModeAlphanumeric:
				err = d.alphanumeric(count)
			case ModeByte:
				err = d.bytes(count)
			case ModeKanji:
				err = d.doubleByte(count, 0x0C0, 0x01F00, 0x08140, 0x0C140, "Shift_JIS")
			}
		default:
			return nil, formatErr("unknown mode %#x", int(mode))
		}
		if err != nil {
			return nil, err
		}
		if mode == ModeTerminator {
			break
		}
	}

	// AIM modifier: 1 plain, 3 GS1, 5 AIM application, +1 with ECI
	modifier := 1
	switch {
	case fnc1First:
		modifier = 3
	case fnc1Second:
		modifier = 5
	}
	if d.eci != nil {
		modifier++
	}

	r := internal.NewDecoderResult(data, d.text.String(), d.segments, level.String())
	r.SequenceNumber, r.Parity = seq, parity
	r.SymbologyModifier = modifier
	return r, nil
}

func (d *streamDecoder) read(n int) (int, error) {
	v, err := d.src.ReadBits(n)
	if err != nil {
		return 0, formatErr("truncated bit stream")
	}
	return v, nil
}

func (d *streamDecoder) readECI() error {
	first, err := d.read(8)
	if err != nil {
		return err
	}
	var value int
	switch {
	case first&0x80 == 0:
		value = first & 0x7F
	case first&0xC0 == 0x80:
		second, err := d.read(8)
		if err != nil {
			return err
		}
		value = (first&0x3F)<<8 | second
	case first&0xE0 == 0xC0:
		rest, err := d.read(16)
		if err != nil {
			return err
		}
		value = (first&0x1F)<<16 | rest
	default:
		return formatErr("bad ECI designator %#x", first)
	}
	eci, err := charset.ByValue(value)
	if err != nil {
		return formatErr("ECI %d", value)
	}
	d.eci = eci
	return nil
}

func (d *streamDecoder) numeric(count int) error {
	group := func(width, limit, digits int) error {
		if d.src.Available() < width {
			return formatErr("truncated numeric segment")
		}
		v, _ := d.src.ReadBits(width)
		if v >= limit {
			return formatErr("numeric group %d out of range", v)
		}
		s := strconv.Itoa(v)
		d.text.WriteString(strings.Repeat("0", digits-len(s)) + s)
		return nil
	}
	for ; count >= 3; count -= 3 {
		if err := group(10, 1000, 3); err != nil {
			return err
		}
	}
	switch count {
	case 2:
		return group(7, 100, 2)
	case 1:
		return group(4, 10, 1)
	}
	return nil
}

func (d *streamDecoder) alphanumeric(count int) error {
	var seg []byte
	char := func(v int) error {
		if v >= len(alnumTable) {
			return formatErr("alphanumeric value %d", v)
		}
		seg = append(seg, alnumTable[v])
		return nil
	}
	for ; count > 1; count -= 2 {
		if d.src.Available() < 11 {
			return formatErr("truncated alphanumeric segment")
		}
		pair, _ := d.src.ReadBits(11)
		if err := char(pair / 45); err != nil {
			return err
		}
		if err := char(pair % 45); err != nil {
			return err
		}
	}
	if count == 1 {
		if d.src.Available() < 6 {
			return formatErr("truncated alphanumeric segment")
		}
		v, _ := d.src.ReadBits(6)
		if err := char(v); err != nil {
			return err
		}
	}
	if d.fnc1 {
		// in GS1 mode "%" is the group separator and "%%" a literal percent
		var out []byte
		for i := 0; i < len(seg); i++ {
			switch {
			case seg[i] != '%':
				out = append(out, seg[i])
			case i+1 < len(seg) && seg[i+1] == '%':
				out = append(out, '%')
				i++
			default:
				out = append(out, 0x1D)
			}
		}
		seg = out
	}
	d.text.Write(seg)
	return nil
}

func (d *streamDecoder) bytes(count int) error {
	if 8*count > d.src.Available() {
		return formatErr("byte segment of %d overruns the stream", count)
	}
	raw := make([]byte, count)
	for i := range raw {
		v, _ := d.src.ReadBits(8)
		raw[i] = byte(v)
	}
	var (
		s   string
		err error
	)
	if d.eci != nil {
		s, err = charset.DecodeWith(raw, d.eci.Encoding())
	} else {
		s, err = charset.Decode(raw, charset.Guess(raw, d.hint))
	}
	if err != nil {
		return formatErr("byte segment: %v", err)
	}
	d.text.WriteString(s)
	d.segments = append(d.segments, raw)
	return nil
}

// doubleByte reads 13-bit Kanji or Hanzi characters. Each packs a two-byte
// code as hi*div + lo, offset by one of two bases split at cut.
func (d *streamDecoder) doubleByte(count, div, cut, lowBase, highBase int, enc string) error {
	if 13*count > d.src.Available() {
		return formatErr("double-byte segment of %d overruns the stream", count)
	}
	buf := make([]byte, 0, 2*count)
	for range count {
		v, _ := d.src.ReadBits(13)
		code := (v/div)<<8 | v%div
		if code < cut {
			code += lowBase
		} else {
			code += highBase
		}
		buf = append(buf, byte(code>>8), byte(code))
	}
	s, err := charset.Decode(buf, enc)
	if err != nil {
		return formatErr("%s segment: %v", enc, err)
	}
	d.text.WriteString(s)
	return nil
}
