package reedsolomon

// poly is a polynomial over a Field, highest degree coefficient first. The
// zero polynomial is poly{0}; no other value has a leading zero.
type poly []int

func newPoly(c []int) poly {
	i := 0
	for i < len(c)-1 && c[i] == 0 {
		i++
	}
	return poly(c[i:])
}

func monomial(degree, coef int) poly {
	if coef == 0 {
		return poly{0}
	}
	p := make(poly, degree+1)
	p[0] = coef
	return p
}

func (p poly) degree() int  { return len(p) - 1 }
func (p poly) isZero() bool { return p[0] == 0 }

// coef returns the coefficient of x^d.
func (p poly) coef(d int) int { return p[len(p)-1-d] }

func (p poly) eval(f *Field, x int) int {
	if x == 0 {
		return p.coef(0)
	}
	v := 0
	for _, c := range p {
		v = f.Mul(v, x) ^ c
	}
	return v
}

func (p poly) add(q poly) poly {
	if p.isZero() {
		return q
	}
	if q.isZero() {
		return p
	}
	if len(p) < len(q) {
		p, q = q, p
	}
	out := make([]int, len(p))
	copy(out, p)
	off := len(p) - len(q)
	for i, c := range q {
		out[off+i] ^= c
	}
	return newPoly(out)
}

func (p poly) mul(f *Field, q poly) poly {
	if p.isZero() || q.isZero() {
		return poly{0}
	}
	out := make([]int, len(p)+len(q)-1)
	for i, a := range p {
		for j, b := range q {
			out[i+j] ^= f.Mul(a, b)
		}
	}
	return newPoly(out)
}

// scale multiplies p by coef·x^shift.
func (p poly) scale(f *Field, shift, coef int) poly {
	if coef == 0 {
		return poly{0}
	}
	out := make([]int, len(p)+shift)
	for i, c := range p {
		out[i] = f.Mul(c, coef)
	}
	return newPoly(out)
}

// divmod returns the quotient and remainder of p / d.
func (p poly) divmod(f *Field, d poly) (q, r poly) {
	if d.isZero() {
		panic("reedsolomon: division by zero polynomial")
	}
	q, r = poly{0}, p
	lead := f.Inv(d[0])
	for !r.isZero() && r.degree() >= d.degree() {
		shift := r.degree() - d.degree()
		c := f.Mul(r[0], lead)
		q = q.add(monomial(shift, c))
		r = r.add(d.scale(f, shift, c))
	}
	return q, r
}
