package bitutil

import (
	"fmt"
	"math/bits"
	"strings"
)

// BitMatrix is a width×height grid of bits, row-major with each row padded to
// a whole number of 32-bit words. x is the column and y the row; (0,0) is the
// top-left corner. A set bit means "black".
type BitMatrix struct {
	width, height int
	stride        int // words per row
	words         []uint32
}

// NewBitMatrix returns an all-white matrix. It panics if either dimension is
// below one.
func NewBitMatrix(width, height int) *BitMatrix {
	if width < 1 || height < 1 {
		panic(fmt.Sprintf("bitutil: invalid matrix size %dx%d", width, height))
	}
	stride := wordCount(width)
	return &BitMatrix{width: width, height: height, stride: stride, words: make([]uint32, stride*height)}
}

// NewSquareBitMatrix returns an all-white dim×dim matrix.
func NewSquareBitMatrix(dim int) *BitMatrix {
	return NewBitMatrix(dim, dim)
}

// ParseBitMatrix builds a matrix from rows of text in which set and unset
// spell the two cell values. Blank lines are skipped.
func ParseBitMatrix(text, set, unset string) (*BitMatrix, error) {
	var rows [][]bool
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		var row []bool
		for len(line) > 0 {
			switch {
			case strings.HasPrefix(line, set):
				row = append(row, true)
				line = line[len(set):]
			case strings.HasPrefix(line, unset):
				row = append(row, false)
				line = line[len(unset):]
			default:
				return nil, fmt.Errorf("bitutil: unexpected input %q", line)
			}
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, fmt.Errorf("bitutil: row %d has %d cells, want %d", len(rows), len(row), len(rows[0]))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("bitutil: empty matrix")
	}
	m := NewBitMatrix(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, v := range row {
			if v {
				m.Set(x, y)
			}
		}
	}
	return m, nil
}

// Width returns the number of columns.
func (m *BitMatrix) Width() int { return m.width }

// Height returns the number of rows.
func (m *BitMatrix) Height() int { return m.height }

func (m *BitMatrix) index(x, y int) (int, uint32) {
	return y*m.stride + x/wordBits, 1 << uint(x%wordBits)
}

// Get reports whether (x, y) is set. Coordinates outside the matrix read as
// unset.
func (m *BitMatrix) Get(x, y int) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	i, bit := m.index(x, y)
	return m.words[i]&bit != 0
}

// Set sets (x, y).
func (m *BitMatrix) Set(x, y int) {
	i, bit := m.index(x, y)
	m.words[i] |= bit
}

// Unset clears (x, y).
func (m *BitMatrix) Unset(x, y int) {
	i, bit := m.index(x, y)
	m.words[i] &^= bit
}

// Flip inverts (x, y).
func (m *BitMatrix) Flip(x, y int) {
	i, bit := m.index(x, y)
	m.words[i] ^= bit
}

// FlipAll inverts every bit.
func (m *BitMatrix) FlipAll() {
	for i := range m.words {
		m.words[i] = ^m.words[i]
	}
	// keep row padding clear so the corner queries stay in bounds
	if tail := m.width % wordBits; tail != 0 {
		mask := uint32(1)<<uint(tail) - 1
		for y := 0; y < m.height; y++ {
			m.words[(y+1)*m.stride-1] &= mask
		}
	}
}

// Clear unsets every bit.
func (m *BitMatrix) Clear() {
	clear(m.words)
}

// SetRegion sets the width×height rectangle whose top-left corner is
// (left, top).
func (m *BitMatrix) SetRegion(left, top, width, height int) {
	if left < 0 || top < 0 || width < 1 || height < 1 || left+width > m.width || top+height > m.height {
		panic(fmt.Sprintf("bitutil: region %d,%d %dx%d outside %dx%d matrix", left, top, width, height, m.width, m.height))
	}
	for y := top; y < top+height; y++ {
		for x := left; x < left+width; x++ {
			m.Set(x, y)
		}
	}
}

// Crop returns a copy of the width×height rectangle whose top-left corner
// is (left, top).
func (m *BitMatrix) Crop(left, top, width, height int) *BitMatrix {
	if left < 0 || top < 0 || width < 1 || height < 1 || left+width > m.width || top+height > m.height {
		panic(fmt.Sprintf("bitutil: crop %d,%d %dx%d outside %dx%d matrix", left, top, width, height, m.width, m.height))
	}
	c := NewBitMatrix(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if m.Get(left+x, top+y) {
				c.Set(x, y)
			}
		}
	}
	return c
}

// Row copies row y into row, allocating when row is nil or too short.
func (m *BitMatrix) Row(y int, row *BitArray) *BitArray {
	if row == nil || row.Len() < m.width {
		row = NewBitArray(m.width)
	} else {
		row.Clear()
	}
	copy(row.words, m.words[y*m.stride:(y+1)*m.stride])
	return row
}

// SetRow overwrites row y with the first Width bits of row.
func (m *BitMatrix) SetRow(y int, row *BitArray) {
	copy(m.words[y*m.stride:(y+1)*m.stride], row.words)
}

// Transpose swaps (x, y) with (y, x) in place. The matrix must be square.
func (m *BitMatrix) Transpose() {
	if m.width != m.height {
		panic("bitutil: Transpose needs a square matrix")
	}
	for x := 0; x < m.width; x++ {
		for y := x + 1; y < m.height; y++ {
			if m.Get(x, y) != m.Get(y, x) {
				m.Flip(x, y)
				m.Flip(y, x)
			}
		}
	}
}

// TopLeftOnBit returns the first set bit in row-major order.
func (m *BitMatrix) TopLeftOnBit() (x, y int, ok bool) {
	for i, w := range m.words {
		if w != 0 {
			return (i%m.stride)*wordBits + bits.TrailingZeros32(w), i / m.stride, true
		}
	}
	return 0, 0, false
}

// BottomRightOnBit returns the last set bit in row-major order.
func (m *BitMatrix) BottomRightOnBit() (x, y int, ok bool) {
	for i := len(m.words) - 1; i >= 0; i-- {
		if w := m.words[i]; w != 0 {
			return (i%m.stride)*wordBits + wordBits - 1 - bits.LeadingZeros32(w), i / m.stride, true
		}
	}
	return 0, 0, false
}

// EnclosingRectangle returns the bounding box of all set bits.
func (m *BitMatrix) EnclosingRectangle() (left, top, width, height int, ok bool) {
	left, top = m.width, m.height
	right, bottom := -1, -1
	for y := 0; y < m.height; y++ {
		row := m.words[y*m.stride : (y+1)*m.stride]
		for i, w := range row {
			if w == 0 {
				continue
			}
			top = min(top, y)
			bottom = max(bottom, y)
			left = min(left, i*wordBits+bits.TrailingZeros32(w))
			right = max(right, i*wordBits+wordBits-1-bits.LeadingZeros32(w))
		}
	}
	if right < left || bottom < top {
		return 0, 0, 0, 0, false
	}
	return left, top, right - left + 1, bottom - top + 1, true
}

// Clone returns an independent copy.
func (m *BitMatrix) Clone() *BitMatrix {
	c := *m
	c.words = append([]uint32(nil), m.words...)
	return &c
}

// Equal reports whether both matrices have the same size and bits.
func (m *BitMatrix) Equal(o *BitMatrix) bool {
	if m.width != o.width || m.height != o.height {
		return false
	}
	for i, w := range m.words {
		if w != o.words[i] {
			return false
		}
	}
	return true
}

// String renders the matrix with "X " for set and "  " for unset cells.
func (m *BitMatrix) String() string {
	return m.Format("X ", "  ")
}

// Format renders the matrix using the given cell strings, one line per row.
func (m *BitMatrix) Format(set, unset string) string {
	var sb strings.Builder
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.Get(x, y) {
				sb.WriteString(set)
			} else {
				sb.WriteString(unset)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
