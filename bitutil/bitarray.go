// Package bitutil holds the packed bit containers shared by every detector
// and decoder: a one-dimensional BitArray for scanlines, a two-dimensional
// BitMatrix for binarized images and module grids, and a BitSource for
// reading variable-width fields out of decoded codewords.
package bitutil

import (
	"math/bits"
	"strings"
)

const wordBits = 32

// BitArray is a fixed-length sequence of bits packed into 32-bit words.
// Bit i lives in word i/32 at position i%32 (least significant first).
type BitArray struct {
	words []uint32
	n     int
}

// NewBitArray returns a zeroed array of n bits.
func NewBitArray(n int) *BitArray {
	if n < 0 {
		n = 0
	}
	return &BitArray{words: make([]uint32, wordCount(n)), n: n}
}

func wordCount(n int) int {
	return (n + wordBits - 1) / wordBits
}

// Len returns the number of bits.
func (a *BitArray) Len() int { return a.n }

// Get reports whether bit i is set.
func (a *BitArray) Get(i int) bool {
	return a.words[i/wordBits]&(1<<uint(i%wordBits)) != 0
}

// Set sets bit i.
func (a *BitArray) Set(i int) {
	a.words[i/wordBits] |= 1 << uint(i%wordBits)
}

// Flip inverts bit i.
func (a *BitArray) Flip(i int) {
	a.words[i/wordBits] ^= 1 << uint(i%wordBits)
}

// Clear unsets every bit.
func (a *BitArray) Clear() {
	clear(a.words)
}

// SetWord overwrites the 32 bits of the word containing bit i.
func (a *BitArray) SetWord(i int, w uint32) {
	a.words[i/wordBits] = w
}

// Words exposes the backing words. Bits past Len are unspecified.
func (a *BitArray) Words() []uint32 { return a.words }

// NextSet returns the index of the first set bit at or after from, or Len if
// there is none.
func (a *BitArray) NextSet(from int) int {
	return a.scan(from, 0)
}

// NextUnset returns the index of the first unset bit at or after from, or Len
// if there is none.
func (a *BitArray) NextUnset(from int) int {
	return a.scan(from, ^uint32(0))
}

// scan finds the next bit that differs from the fill pattern.
func (a *BitArray) scan(from int, fill uint32) int {
	if from >= a.n {
		return a.n
	}
	w := from / wordBits
	cur := (a.words[w] ^ fill) &^ (1<<uint(from%wordBits) - 1)
	for cur == 0 {
		w++
		if w == len(a.words) {
			return a.n
		}
		cur = a.words[w] ^ fill
	}
	return min(w*wordBits+bits.TrailingZeros32(cur), a.n)
}

// SetRange sets bits [start, end).
func (a *BitArray) SetRange(start, end int) {
	if start < 0 || end > a.n || end < start {
		panic("bitutil: SetRange out of bounds")
	}
	for i := start; i < end; {
		if i%wordBits == 0 && end-i >= wordBits {
			a.words[i/wordBits] = ^uint32(0)
			i += wordBits
			continue
		}
		a.Set(i)
		i++
	}
}

// IsRange reports whether every bit in [start, end) equals value.
func (a *BitArray) IsRange(start, end int, value bool) bool {
	if start < 0 || end > a.n || end < start {
		panic("bitutil: IsRange out of bounds")
	}
	if value {
		return a.NextUnset(start) >= end
	}
	return a.NextSet(start) >= end
}

// Reverse reverses the order of the bits in place.
func (a *BitArray) Reverse() {
	if a.n == 0 {
		return
	}
	out := make([]uint32, len(a.words))
	last := len(a.words) - 1
	for i, w := range a.words {
		out[last-i] = bits.Reverse32(w)
	}
	// The reversed bits sit at the top of the last word; shift them down so
	// that bit 0 is the old bit n-1.
	if shift := uint(len(a.words)*wordBits - a.n); shift != 0 {
		for i := range out {
			out[i] >>= shift
			if i+1 < len(out) {
				out[i] |= out[i+1] << (wordBits - shift)
			}
		}
	}
	a.words = out
}

// Clone returns an independent copy.
func (a *BitArray) Clone() *BitArray {
	return &BitArray{words: append([]uint32(nil), a.words...), n: a.n}
}

// String renders set bits as 'X' and unset bits as '.', grouped by byte.
func (a *BitArray) String() string {
	var sb strings.Builder
	sb.Grow(a.n + a.n/8 + 1)
	for i := 0; i < a.n; i++ {
		if i%8 == 0 {
			sb.WriteByte(' ')
		}
		if a.Get(i) {
			sb.WriteByte('X')
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
