package decoder

import "github.com/ericlevine/zxscan/bitutil"

// gridParser reads the fixed fields and codewords of a sampled grid. When
// mirrored is set every read swaps x and y, which is how a symbol printed
// mirror-image is recovered.
type gridParser struct {
	grid     *bitutil.BitMatrix
	version  *Version
	format   *FormatInfo
	mirrored bool
}

func newGridParser(grid *bitutil.BitMatrix) (*gridParser, error) {
	n := grid.Height()
	if n < 21 || n&3 != 1 || grid.Width() != n {
		return nil, formatErr("grid %dx%d is not a QR Code size", grid.Width(), n)
	}
	return &gridParser{grid: grid}, nil
}

// bit appends module (x, y) to acc.
func (p *gridParser) bit(x, y, acc int) int {
	v := p.grid.Get(x, y)
	if p.mirrored {
		v = p.grid.Get(y, x)
	}
	acc <<= 1
	if v {
		acc |= 1
	}
	return acc
}

// readFormat reads both copies of the format field: around the top-left
// finder, and split between the top-right and bottom-left finders.
func (p *gridParser) readFormat() (FormatInfo, error) {
	if p.format != nil {
		return *p.format, nil
	}
	a := 0
	for x := 0; x < 6; x++ {
		a = p.bit(x, 8, a)
	}
	a = p.bit(7, 8, a)
	a = p.bit(8, 8, a)
	a = p.bit(8, 7, a)
	for y := 5; y >= 0; y-- {
		a = p.bit(8, y, a)
	}

	n := p.grid.Height()
	b := 0
	for y := n - 1; y >= n-7; y-- {
		b = p.bit(8, y, b)
	}
	for x := n - 8; x < n; x++ {
		b = p.bit(x, 8, b)
	}

	fi, ok := decodeFormat(a, b)
	if !ok {
		return FormatInfo{}, formatErr("unreadable format information %#x/%#x", a, b)
	}
	p.format = &fi
	return fi, nil
}

// readVersion derives the version from the grid size, confirming it against
// the version blocks for versions 7 and up.
func (p *gridParser) readVersion() (*Version, error) {
	if p.version != nil {
		return p.version, nil
	}
	n := p.grid.Height()
	if prov := (n - 17) / 4; prov <= 6 {
		v, err := VersionByNumber(prov)
		if err != nil {
			return nil, err
		}
		p.version = v
		return v, nil
	}

	// top-right block is 3 wide and 6 tall, bottom-left is its transpose
	word := 0
	for y := 5; y >= 0; y-- {
		for x := n - 9; x >= n-11; x-- {
			word = p.bit(x, y, word)
		}
	}
	if v, ok := decodeVersionBits(word); ok && v.Dimension() == n {
		p.version = v
		return v, nil
	}
	word = 0
	for x := 5; x >= 0; x-- {
		for y := n - 9; y >= n-11; y-- {
			word = p.bit(x, y, word)
		}
	}
	if v, ok := decodeVersionBits(word); ok && v.Dimension() == n {
		p.version = v
		return v, nil
	}
	return nil, formatErr("unreadable version information")
}

// readCodewords unmasks the grid and reads data modules in the zigzag
// order: two-column strips from the right edge, alternating up and down,
// skipping the vertical timing column.
func (p *gridParser) readCodewords() ([]byte, error) {
	fi, err := p.readFormat()
	if err != nil {
		return nil, err
	}
	v, err := p.readVersion()
	if err != nil {
		return nil, err
	}
	unmask(p.grid, fi.Mask)
	fn := v.FunctionPattern()

	n := p.grid.Height()
	out := make([]byte, 0, v.TotalCodewords)
	cur, nbits := 0, 0
	up := true
	for x := n - 1; x > 0; x -= 2 {
		if x == 6 {
			x--
		}
		for k := 0; k < n; k++ {
			y := k
			if up {
				y = n - 1 - k
			}
			for dx := 0; dx < 2; dx++ {
				if fn.Get(x-dx, y) {
					continue
				}
				cur <<= 1
				if p.grid.Get(x-dx, y) {
					cur |= 1
				}
				if nbits++; nbits == 8 {
					out = append(out, byte(cur))
					cur, nbits = 0, 0
				}
			}
		}
		up = !up
	}
	if len(out) != v.TotalCodewords {
		return nil, formatErr("read %d codewords, want %d", len(out), v.TotalCodewords)
	}
	return out, nil
}

// remask undoes readCodewords' unmasking so the grid can be read again.
func (p *gridParser) remask() {
	if p.format != nil {
		unmask(p.grid, p.format.Mask)
	}
}

// setMirrored switches read orientation and forgets cached fields.
func (p *gridParser) setMirrored(m bool) {
	p.version, p.format = nil, nil
	p.mirrored = m
}
