// Package reedsolomon corrects errors in codeword blocks over GF(2^n).
package reedsolomon

import "fmt"

// Field is GF(size) built from a primitive polynomial, with precomputed
// exponent and logarithm tables.
type Field struct {
	exp       []int
	log       []int
	size      int
	primitive int
	base      int // b in the generator (x - a^b)(x - a^(b+1))...
}

// QRField is GF(256) with x^8 + x^4 + x^3 + x^2 + 1 and generator base 0.
var QRField = NewField(0x011D, 256, 0)

// NewField builds GF(size). primitive must be irreducible of degree log2(size).
func NewField(primitive, size, base int) *Field {
	f := &Field{exp: make([]int, size), log: make([]int, size), size: size, primitive: primitive, base: base}
	x := 1
	for i := range size {
		f.exp[i] = x
		x <<= 1
		if x >= size {
			x = (x ^ primitive) & (size - 1)
		}
	}
	for i := 0; i < size-1; i++ {
		f.log[f.exp[i]] = i
	}
	return f
}

func (f *Field) Size() int { return f.size }

// Base returns the generator base.
func (f *Field) Base() int { return f.base }

// Exp returns a^n for the primitive element a.
func (f *Field) Exp(n int) int { return f.exp[n] }

// Log returns n such that a^n = v. It panics for zero.
func (f *Field) Log(v int) int {
	if v == 0 {
		panic("reedsolomon: log of zero")
	}
	return f.log[v]
}

// Inv returns the multiplicative inverse of v. It panics for zero.
func (f *Field) Inv(v int) int {
	if v == 0 {
		panic("reedsolomon: inverse of zero")
	}
	return f.exp[f.size-1-f.log[v]]
}

// Mul multiplies two field elements.
func (f *Field) Mul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return f.exp[(f.log[a]+f.log[b])%(f.size-1)]
}

func (f *Field) String() string {
	return fmt.Sprintf("GF(%d, %#x)", f.size, f.primitive)
}
