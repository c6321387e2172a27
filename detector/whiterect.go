package detector

import (
	"fmt"
	"math"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

const (
	whiteRectInit = 30
	whiteRectCorr = 1
)

// WhiteRectangle grows a box from the center of img until each of its four
// sides crosses only white pixels, then walks diagonally in from each side
// to find the extreme black points. It returns them as top, left, right,
// bottom.
func WhiteRectangle(img *bitutil.BitMatrix) ([4]zxscan.ResultPoint, error) {
	w, h := img.Width(), img.Height()
	return whiteRect(img, (w-whiteRectInit)>>1, (w+whiteRectInit)>>1, (h-whiteRectInit)>>1, (h+whiteRectInit)>>1)
}

// WhiteRectangleAt is WhiteRectangle seeded with a size×size box centered
// on (x, y).
func WhiteRectangleAt(img *bitutil.BitMatrix, size, x, y int) ([4]zxscan.ResultPoint, error) {
	half := size >> 1
	return whiteRect(img, x-half, x+half, y-half, y+half)
}

func whiteRect(img *bitutil.BitMatrix, left, right, up, down int) ([4]zxscan.ResultPoint, error) {
	var none [4]zxscan.ResultPoint
	w, h := img.Width(), img.Height()
	if up < 0 || left < 0 || down >= h || right >= w {
		return none, fmt.Errorf("image %dx%d too small for seed box: %w", w, h, zxscan.ErrNotFound)
	}

	// column x between rows lo..hi, or row y between columns lo..hi
	column := func(x, lo, hi int) bool {
		for y := lo; y <= hi; y++ {
			if img.Get(x, y) {
				return true
			}
		}
		return false
	}
	row := func(y, lo, hi int) bool {
		for x := lo; x <= hi; x++ {
			if img.Get(x, y) {
				return true
			}
		}
		return false
	}

	grew := false
	for changed := true; changed; {
		changed = false
		for right < w && column(right, up, down) {
			right++
			changed = true
		}
		if right >= w {
			return none, fmt.Errorf("right edge left the image: %w", zxscan.ErrNotFound)
		}
		for down < h && row(down, left, right) {
			down++
			changed = true
		}
		if down >= h {
			return none, fmt.Errorf("bottom edge left the image: %w", zxscan.ErrNotFound)
		}
		for left >= 0 && column(left, up, down) {
			left--
			changed = true
		}
		if left < 0 {
			return none, fmt.Errorf("left edge left the image: %w", zxscan.ErrNotFound)
		}
		for up >= 0 && row(up, left, right) {
			up--
			changed = true
		}
		if up < 0 {
			return none, fmt.Errorf("top edge left the image: %w", zxscan.ErrNotFound)
		}
		grew = grew || changed
	}
	if !grew {
		return none, fmt.Errorf("no black pixels around the seed: %w", zxscan.ErrNotFound)
	}

	maxSize := right - left
	corner := func(ax, ay, dx, dy int) (zxscan.ResultPoint, bool) {
		// slide a diagonal segment from the corner (ax, ay) inward
		for i := 1; i < maxSize; i++ {
			if p, ok := blackOnSegment(img, float64(ax), float64(ay+dy*i), float64(ax+dx*i), float64(ay)); ok {
				return p, true
			}
		}
		return zxscan.ResultPoint{}, false
	}
	z, ok := corner(left, down, 1, -1)
	if !ok {
		return none, fmt.Errorf("no black point near bottom-left: %w", zxscan.ErrNotFound)
	}
	t, ok := corner(left, up, 1, 1)
	if !ok {
		return none, fmt.Errorf("no black point near top-left: %w", zxscan.ErrNotFound)
	}
	x, ok := corner(right, up, -1, 1)
	if !ok {
		return none, fmt.Errorf("no black point near top-right: %w", zxscan.ErrNotFound)
	}
	y, ok := corner(right, down, -1, -1)
	if !ok {
		return none, fmt.Errorf("no black point near bottom-right: %w", zxscan.ErrNotFound)
	}
	return centerEdges(w, y, z, x, t), nil
}

// blackOnSegment returns the first black pixel walking from a toward b.
func blackOnSegment(img *bitutil.BitMatrix, ax, ay, bx, by float64) (zxscan.ResultPoint, bool) {
	dist := Round(math.Hypot(bx-ax, by-ay))
	if dist < 1 {
		return zxscan.ResultPoint{}, false
	}
	sx, sy := (bx-ax)/float64(dist), (by-ay)/float64(dist)
	for i := 0; i < dist; i++ {
		x, y := Round(ax+float64(i)*sx), Round(ay+float64(i)*sy)
		if img.Get(x, y) {
			return zxscan.ResultPoint{X: float64(x), Y: float64(y)}, true
		}
	}
	return zxscan.ResultPoint{}, false
}

// centerEdges nudges each extreme point one pixel toward the symbol center.
// y is bottom-most, z left-most, x right-most and t top-most; which way a
// point moves depends on whether the symbol leans left or right.
func centerEdges(width int, y, z, x, t zxscan.ResultPoint) [4]zxscan.ResultPoint {
	const c = whiteRectCorr
	pt := func(p zxscan.ResultPoint, dx, dy float64) zxscan.ResultPoint {
		return zxscan.ResultPoint{X: p.X + dx, Y: p.Y + dy}
	}
	if y.X < float64(width)/2 {
		return [4]zxscan.ResultPoint{pt(t, -c, c), pt(z, c, c), pt(x, -c, -c), pt(y, c, -c)}
	}
	return [4]zxscan.ResultPoint{pt(t, c, c), pt(z, c, -c), pt(x, -c, c), pt(y, -c, -c)}
}
