package reedsolomon

import (
	"errors"
	"fmt"
)

// ErrUncorrectable means the block holds more errors than its check
// codewords can repair.
var ErrUncorrectable = errors.New("reedsolomon: uncorrectable block")

// Decoder repairs codeword blocks in place.
type Decoder struct {
	field *Field
}

func NewDecoder(f *Field) *Decoder { return &Decoder{field: f} }

// Decode corrects block, whose last ecCount values are check codewords, and
// returns how many codewords it changed. Up to ecCount/2 errors can be
// repaired.
func (d *Decoder) Decode(block []int, ecCount int) (int, error) {
	f := d.field
	received := newPoly(block)

	synd := make([]int, ecCount)
	clean := true
	for i := range ecCount {
		v := received.eval(f, f.Exp(i+f.base))
		synd[ecCount-1-i] = v
		clean = clean && v == 0
	}
	if clean {
		return 0, nil
	}

	sigma, omega, err := d.euclid(monomial(ecCount, 1), newPoly(synd), ecCount)
	if err != nil {
		return 0, err
	}
	locs, err := d.errorLocations(sigma)
	if err != nil {
		return 0, err
	}
	mags := d.errorMagnitudes(omega, locs)
	for i, loc := range locs {
		pos := len(block) - 1 - f.Log(loc)
		if pos < 0 {
			return 0, fmt.Errorf("error location %d outside block: %w", pos, ErrUncorrectable)
		}
		block[pos] ^= mags[i]
	}
	return len(locs), nil
}

// euclid runs the extended Euclidean algorithm on x^R and the syndrome,
// stopping at the first remainder of degree below R/2. It returns the error
// locator and evaluator, normalised so that sigma(0) = 1.
func (d *Decoder) euclid(a, b poly, R int) (sigma, omega poly, err error) {
	f := d.field
	if a.degree() < b.degree() {
		a, b = b, a
	}
	rPrev, r := a, b
	tPrev, t := poly{0}, poly{1}

	for 2*r.degree() >= R {
		rPrevPrev, tPrevPrev := rPrev, tPrev
		rPrev, tPrev = r, t
		if rPrev.isZero() {
			return nil, nil, fmt.Errorf("remainder vanished early: %w", ErrUncorrectable)
		}
		var q poly
		q, r = rPrevPrev.divmod(f, rPrev)
		t = q.mul(f, tPrev).add(tPrevPrev)
		if r.degree() >= rPrev.degree() {
			return nil, nil, fmt.Errorf("division failed to reduce degree: %w", ErrUncorrectable)
		}
	}

	t0 := t.coef(0)
	if t0 == 0 {
		return nil, nil, fmt.Errorf("sigma(0) is zero: %w", ErrUncorrectable)
	}
	inv := f.Inv(t0)
	return t.scale(f, 0, inv), r.scale(f, 0, inv), nil
}

// errorLocations finds the inverse roots of sigma by exhaustive search.
func (d *Decoder) errorLocations(sigma poly) ([]int, error) {
	f := d.field
	n := sigma.degree()
	if n == 1 {
		return []int{sigma.coef(1)}, nil
	}
	locs := make([]int, 0, n)
	for x := 1; x < f.size && len(locs) < n; x++ {
		if sigma.eval(f, x) == 0 {
			locs = append(locs, f.Inv(x))
		}
	}
	if len(locs) != n {
		return nil, fmt.Errorf("locator of degree %d has %d roots: %w", n, len(locs), ErrUncorrectable)
	}
	return locs, nil
}

// errorMagnitudes applies Forney's formula.
func (d *Decoder) errorMagnitudes(omega poly, locs []int) []int {
	f := d.field
	mags := make([]int, len(locs))
	for i, loc := range locs {
		xInv := f.Inv(loc)
		den := 1
		for j, other := range locs {
			if i != j {
				// 1 + X_j/X_i, written as a bit toggle in characteristic 2
				den = f.Mul(den, f.Mul(other, xInv)^1)
			}
		}
		mags[i] = f.Mul(omega.eval(f, xInv), f.Inv(den))
		if f.base != 0 {
			mags[i] = f.Mul(mags[i], xInv)
		}
	}
	return mags
}
