// Package detector locates QR Codes in a binary image and samples them into
// module grids. Symbols may be rotated, skewed or seen in perspective.
package detector

import (
	"fmt"
	"math"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
	geom "github.com/ericlevine/zxscan/detector"
	"github.com/ericlevine/zxscan/internal"
	"github.com/ericlevine/zxscan/qrcode/decoder"
	"github.com/ericlevine/zxscan/transform"
)

// Detector finds one QR Code in a binary image.
type Detector struct {
	image *bitutil.BitMatrix
	opts  *zxscan.DecodeOptions
}

// New returns a Detector over image. opts may be nil.
func New(image *bitutil.BitMatrix, opts *zxscan.DecodeOptions) *Detector {
	return &Detector{image: image, opts: opts}
}

// Detect locates the finder patterns and samples the symbol. The returned
// points are bottom-left, top-left, top-right and, when one was found, the
// alignment pattern.
func (d *Detector) Detect() (*internal.DetectorResult, error) {
	info, err := NewFinder(d.image, d.opts).Find()
	if err != nil {
		return nil, err
	}
	return d.Process(info)
}

// Process samples the symbol anchored on info.
func (d *Detector) Process(info FinderPatternInfo) (*internal.DetectorResult, error) {
	tl, tr, bl := info.TopLeft, info.TopRight, info.BottomLeft

	size := d.moduleSize(tl, tr, bl)
	if size < 1 {
		return nil, fmt.Errorf("qrcode: module size %.2f: %w", size, zxscan.ErrNotFound)
	}
	dim, err := dimension(tl, tr, bl, size)
	if err != nil {
		return nil, err
	}
	version, err := decoder.VersionForDimension(dim)
	if err != nil {
		return nil, fmt.Errorf("qrcode: dimension %d: %w", dim, zxscan.ErrNotFound)
	}

	var align *AlignmentPattern
	if len(version.Alignment) > 0 {
		brX := tr.X - tl.X + bl.X
		brY := tr.Y - tl.Y + bl.Y
		// the alignment center sits three modules in from the far corner
		k := 1 - 3/float64(version.Dimension()-7)
		ex := int(tl.X + k*(brX-tl.X))
		ey := int(tl.Y + k*(brY-tl.Y))
		for allowance := 4; allowance <= 16; allowance <<= 1 {
			if p, err := d.alignmentInRegion(size, ex, ey, float64(allowance)); err == nil {
				align = &p
				break
			}
		}
	}

	bits, err := transform.Sample(d.image, dim, dim, gridTransform(tl, tr, bl, align, dim))
	if err != nil {
		return nil, err
	}
	points := []zxscan.ResultPoint{bl.ResultPoint, tl.ResultPoint, tr.ResultPoint}
	if align != nil {
		points = append(points, align.ResultPoint)
	}
	return &internal.DetectorResult{Bits: bits, Points: points}, nil
}

// gridTransform maps module space onto the image, anchored on the three
// finder centers (3.5 modules in from each corner) and either the alignment
// pattern or the parallelogram's fourth corner.
func gridTransform(tl, tr, bl FinderPattern, align *AlignmentPattern, dim int) transform.Perspective {
	far := float64(dim) - 3.5
	srcBR := zxscan.ResultPoint{X: far, Y: far}
	dstBR := zxscan.ResultPoint{X: tr.X - tl.X + bl.X, Y: tr.Y - tl.Y + bl.Y}
	if align != nil {
		srcBR = zxscan.ResultPoint{X: far - 3, Y: far - 3}
		dstBR = align.ResultPoint
	}
	from := transform.Quad{{X: 3.5, Y: 3.5}, {X: far, Y: 3.5}, srcBR, {X: 3.5, Y: far}}
	to := transform.Quad{tl.ResultPoint, tr.ResultPoint, dstBR, bl.ResultPoint}
	return transform.QuadToQuad(from, to)
}

// dimension derives the symbol size from the finder spacing, snapping to the
// nearest 4n+1.
func dimension(tl, tr, bl FinderPattern, size float64) (int, error) {
	across := geom.Round(zxscan.Distance(tl.ResultPoint, tr.ResultPoint) / size)
	down := geom.Round(zxscan.Distance(tl.ResultPoint, bl.ResultPoint) / size)
	dim := (across+down)/2 + 7
	switch dim & 3 {
	case 0:
		dim++
	case 2:
		dim--
	case 3:
		return 0, fmt.Errorf("qrcode: estimated dimension %d: %w", dim, zxscan.ErrNotFound)
	}
	return dim, nil
}

func (d *Detector) moduleSize(tl, tr, bl FinderPattern) float64 {
	return (d.moduleSizeOneWay(tl, tr) + d.moduleSizeOneWay(tl, bl)) / 2
}

// moduleSizeOneWay measures the 7-module black-white-black run of both
// finder patterns along the line joining them.
func (d *Detector) moduleSizeOneWay(p, o FinderPattern) float64 {
	a := d.runBothWays(int(p.X), int(p.Y), int(o.X), int(o.Y))
	b := d.runBothWays(int(o.X), int(o.Y), int(p.X), int(p.Y))
	switch {
	case math.IsNaN(a):
		return b / 7
	case math.IsNaN(b):
		return a / 7
	}
	return (a + b) / 14
}

// runBothWays measures the run from (fromX, fromY) towards (toX, toY) and
// in the opposite direction, clipping the mirrored end to the image.
func (d *Detector) runBothWays(fromX, fromY, toX, toY int) float64 {
	w, h := d.image.Width(), d.image.Height()
	result := d.run(fromX, fromY, toX, toY)

	scale := 1.0
	otherX := fromX - (toX - fromX)
	if otherX < 0 {
		scale = float64(fromX) / float64(fromX-otherX)
		otherX = 0
	} else if otherX >= w {
		scale = float64(w-1-fromX) / float64(otherX-fromX)
		otherX = w - 1
	}
	otherY := int(float64(fromY) - float64(toY-fromY)*scale)

	scale = 1.0
	if otherY < 0 {
		scale = float64(fromY) / float64(fromY-otherY)
		otherY = 0
	} else if otherY >= h {
		scale = float64(h-1-fromY) / float64(otherY-fromY)
		otherY = h - 1
	}
	otherX = int(float64(fromX) + float64(otherX-fromX)*scale)

	// the center pixel was counted twice
	return result + d.run(fromX, fromY, otherX, otherY) - 1
}

// run walks a Bresenham line from the finder center and returns the
// distance to the start of the second black run: center box, ring, outer
// ring. It returns NaN when the line ends first.
func (d *Detector) run(fromX, fromY, toX, toY int) float64 {
	steep := abs(toY-fromY) > abs(toX-fromX)
	if steep {
		fromX, fromY = fromY, fromX
		toX, toY = toY, toX
	}
	dx, dy := abs(toX-fromX), abs(toY-fromY)
	errAcc := -dx / 2
	xstep, ystep := 1, 1
	if fromX > toX {
		xstep = -1
	}
	if fromY > toY {
		ystep = -1
	}

	state := 0
	limit := toX + xstep
	for x, y := fromX, fromY; x != limit; x += xstep {
		rx, ry := x, y
		if steep {
			rx, ry = y, x
		}
		// black in state 1, white otherwise
		if (state == 1) == d.image.Get(rx, ry) {
			if state == 2 {
				return math.Hypot(float64(x-fromX), float64(y-fromY))
			}
			state++
		}
		errAcc += dy
		if errAcc > 0 {
			if y == toY {
				break
			}
			y += ystep
			errAcc -= dx
		}
	}
	if state == 2 {
		return math.Hypot(float64(toX+xstep-fromX), float64(toY-fromY))
	}
	return math.NaN()
}

func (d *Detector) alignmentInRegion(size float64, ex, ey int, factor float64) (AlignmentPattern, error) {
	allowance := int(factor * size)
	left := max(0, ex-allowance)
	right := min(d.image.Width()-1, ex+allowance)
	top := max(0, ey-allowance)
	bottom := min(d.image.Height()-1, ey+allowance)
	if float64(right-left) < 3*size || float64(bottom-top) < 3*size {
		return AlignmentPattern{}, fmt.Errorf("qrcode: alignment window too small: %w", zxscan.ErrNotFound)
	}
	f := &alignmentFinder{
		image:      d.image,
		left:       left,
		top:        top,
		width:      right - left,
		height:     bottom - top,
		moduleSize: size,
		opts:       d.opts,
	}
	return f.find()
}
