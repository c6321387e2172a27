// Package transform maps sampled module grids onto image coordinates.
package transform

import "github.com/ericlevine/zxscan"

// Quad is four corners in order: top-left, top-right, bottom-right,
// bottom-left.
type Quad [4]zxscan.ResultPoint

// Perspective is a 3x3 projective transform stored column-major as used by
// Apply: x' = (m[0]x + m[3]y + m[6]) / (m[2]x + m[5]y + m[8]).
type Perspective [9]float64

// QuadToQuad returns the transform taking from onto to.
func QuadToQuad(from, to Quad) Perspective {
	return SquareToQuad(to).Mul(QuadToSquare(from))
}

// SquareToQuad maps the unit square onto q.
func SquareToQuad(q Quad) Perspective {
	x0, y0 := q[0].X, q[0].Y
	x1, y1 := q[1].X, q[1].Y
	x2, y2 := q[2].X, q[2].Y
	x3, y3 := q[3].X, q[3].Y
	dx3 := x0 - x1 + x2 - x3
	dy3 := y0 - y1 + y2 - y3
	if dx3 == 0 && dy3 == 0 {
		return Perspective{
			x1 - x0, y1 - y0, 0,
			x2 - x1, y2 - y1, 0,
			x0, y0, 1,
		}
	}
	dx1, dx2 := x1-x2, x3-x2
	dy1, dy2 := y1-y2, y3-y2
	den := dx1*dy2 - dx2*dy1
	g := (dx3*dy2 - dx2*dy3) / den
	h := (dx1*dy3 - dx3*dy1) / den
	return Perspective{
		x1 - x0 + g*x1, y1 - y0 + g*y1, g,
		x3 - x0 + h*x3, y3 - y0 + h*y3, h,
		x0, y0, 1,
	}
}

// QuadToSquare maps q onto the unit square.
func QuadToSquare(q Quad) Perspective {
	return SquareToQuad(q).Adjoint()
}

// Adjoint returns the classical adjoint, which inverts a projective
// transform up to scale.
func (m Perspective) Adjoint() Perspective {
	a11, a12, a13 := m[0], m[1], m[2]
	a21, a22, a23 := m[3], m[4], m[5]
	a31, a32, a33 := m[6], m[7], m[8]
	return Perspective{
		a22*a33 - a23*a32, a13*a32 - a12*a33, a12*a23 - a13*a22,
		a23*a31 - a21*a33, a11*a33 - a13*a31, a13*a21 - a11*a23,
		a21*a32 - a22*a31, a12*a31 - a11*a32, a11*a22 - a12*a21,
	}
}

// Mul returns m∘o, the transform applying o first.
func (m Perspective) Mul(o Perspective) Perspective {
	var r Perspective
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			r[col*3+row] = m[row]*o[col*3] + m[3+row]*o[col*3+1] + m[6+row]*o[col*3+2]
		}
	}
	return r
}

// Apply transforms one point.
func (m Perspective) Apply(x, y float64) (float64, float64) {
	d := m[2]*x + m[5]*y + m[8]
	return (m[0]*x + m[3]*y + m[6]) / d, (m[1]*x + m[4]*y + m[7]) / d
}

// ApplyAll transforms interleaved x, y pairs in place.
func (m Perspective) ApplyAll(xy []float64) {
	for i := 0; i+1 < len(xy); i += 2 {
		xy[i], xy[i+1] = m.Apply(xy[i], xy[i+1])
	}
}
