package reedsolomon

// Encoder computes check codewords. Generator polynomials are cached per
// degree, so an Encoder is not safe for concurrent use.
type Encoder struct {
	field *Field
	gens  []poly
}

func NewEncoder(f *Field) *Encoder {
	return &Encoder{field: f, gens: []poly{{1}}}
}

func (e *Encoder) generator(degree int) poly {
	for d := len(e.gens); d <= degree; d++ {
		next := e.gens[d-1].mul(e.field, poly{1, e.field.Exp(d - 1 + e.field.base)})
		e.gens = append(e.gens, next)
	}
	return e.gens[degree]
}

// Encode fills the last ecCount entries of block with check codewords for
// the data before them.
func (e *Encoder) Encode(block []int, ecCount int) {
	n := len(block) - ecCount
	if ecCount < 1 || n < 1 {
		panic("reedsolomon: block needs both data and check codewords")
	}
	data := make([]int, n)
	copy(data, block[:n])
	_, rem := newPoly(data).scale(e.field, ecCount, 1).divmod(e.field, e.generator(ecCount))
	pad := ecCount - len(rem)
	clear(block[n : n+pad])
	copy(block[n+pad:], rem)
}
