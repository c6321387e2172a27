package detector

import (
	"fmt"
	"math"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

// AlignmentPattern is the center of the small bottom-right locator present
// from version 2 up.
type AlignmentPattern struct {
	zxscan.ResultPoint
	ModuleSize float64
}

func (p AlignmentPattern) aboutEquals(size, y, x float64) bool {
	if math.Abs(y-p.Y) > size || math.Abs(x-p.X) > size {
		return false
	}
	d := math.Abs(size - p.ModuleSize)
	return d <= 1 || d <= p.ModuleSize
}

func (p AlignmentPattern) combine(y, x, size float64) AlignmentPattern {
	return AlignmentPattern{
		ResultPoint: zxscan.ResultPoint{X: (p.X + x) / 2, Y: (p.Y + y) / 2},
		ModuleSize:  (p.ModuleSize + size) / 2,
	}
}

// alignmentFinder looks for the white-black-white 1:1:1 core of an
// alignment pattern inside a search window, starting from the window's
// middle row and moving outwards.
type alignmentFinder struct {
	image         *bitutil.BitMatrix
	left, top     int
	width, height int
	moduleSize    float64
	opts          *zxscan.DecodeOptions
	centers       []AlignmentPattern
}

func (f *alignmentFinder) find() (AlignmentPattern, error) {
	maxX := f.left + f.width
	mid := f.top + f.height/2
	for gen := 0; gen < f.height; gen++ {
		y := mid + (gen+1)/2
		if gen&1 == 1 {
			y = mid - (gen+1)/2
		}
		var c [3]int
		x := f.left
		// a pattern cannot start with white
		for x < maxX && !f.image.Get(x, y) {
			x++
		}
		state := 0
		for ; x < maxX; x++ {
			if !f.image.Get(x, y) {
				if state == 1 {
					state++
				}
				c[state]++
				continue
			}
			switch state {
			case 1:
				c[1]++
			case 2:
				if f.ratio(c) {
					if p, ok := f.handleCenter(c, y, x); ok {
						return p, nil
					}
				}
				c = [3]int{c[2], 1, 0}
				state = 1
			default:
				state++
				c[state]++
			}
		}
		if f.ratio(c) {
			if p, ok := f.handleCenter(c, y, maxX); ok {
				return p, nil
			}
		}
	}
	// a single sighting is better than nothing
	if len(f.centers) > 0 {
		return f.centers[0], nil
	}
	return AlignmentPattern{}, fmt.Errorf("qrcode: no alignment pattern: %w", zxscan.ErrNotFound)
}

func (f *alignmentFinder) ratio(c [3]int) bool {
	slack := f.moduleSize / 2
	for _, v := range c {
		if math.Abs(f.moduleSize-float64(v)) >= slack {
			return false
		}
	}
	return true
}

func alignCenterFromEnd(c [3]int, end int) float64 {
	return float64(end-c[2]) - float64(c[1])/2
}

func (f *alignmentFinder) crossCheckVertical(startY, x, maxCount, origTotal int) float64 {
	img := f.image
	maxY := img.Height()
	var c [3]int

	y := startY
	for y >= 0 && img.Get(x, y) && c[1] <= maxCount {
		c[1]++
		y--
	}
	if y < 0 || c[1] > maxCount {
		return math.NaN()
	}
	for y >= 0 && !img.Get(x, y) && c[0] <= maxCount {
		c[0]++
		y--
	}
	if c[0] > maxCount {
		return math.NaN()
	}

	y = startY + 1
	for y < maxY && img.Get(x, y) && c[1] <= maxCount {
		c[1]++
		y++
	}
	if y == maxY || c[1] > maxCount {
		return math.NaN()
	}
	for y < maxY && !img.Get(x, y) && c[2] <= maxCount {
		c[2]++
		y++
	}
	if c[2] > maxCount {
		return math.NaN()
	}

	if 5*abs(c[0]+c[1]+c[2]-origTotal) >= 2*origTotal || !f.ratio(c) {
		return math.NaN()
	}
	return alignCenterFromEnd(c, y)
}

// handleCenter returns a pattern once the same center has been seen twice.
func (f *alignmentFinder) handleCenter(c [3]int, y, x int) (AlignmentPattern, bool) {
	n := c[0] + c[1] + c[2]
	cx := alignCenterFromEnd(c, x)
	cy := f.crossCheckVertical(y, int(cx), 2*c[1], n)
	if math.IsNaN(cy) {
		return AlignmentPattern{}, false
	}
	size := float64(n) / 3
	for _, p := range f.centers {
		if p.aboutEquals(size, cy, cx) {
			return p.combine(cy, cx, size), true
		}
	}
	p := AlignmentPattern{ResultPoint: zxscan.ResultPoint{X: cx, Y: cy}, ModuleSize: size}
	f.centers = append(f.centers, p)
	f.opts.FoundPoint(p.ResultPoint)
	return AlignmentPattern{}, false
}
