package binarizer

import (
	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

const (
	blockPower      = 3
	blockSize       = 1 << blockPower
	minDimension    = blockSize * 5
	minDynamicRange = 24
)

// Hybrid thresholds each 8x8 block against the average black point of the
// surrounding 5x5 blocks. Rows still go through the global histogram, which
// is what 1-D readers want. Images smaller than 40 pixels on either side
// fall back to GlobalHistogram entirely.
type Hybrid struct {
	*GlobalHistogram
	matrix *bitutil.BitMatrix
}

// NewHybrid returns a Hybrid binarizer over source.
func NewHybrid(source zxscan.LuminanceSource) *Hybrid {
	return &Hybrid{GlobalHistogram: NewGlobalHistogram(source)}
}

// Derive returns a Hybrid over source.
func (h *Hybrid) Derive(source zxscan.LuminanceSource) zxscan.Binarizer {
	return NewHybrid(source)
}

// BlackMatrix computes and caches the locally thresholded matrix. It fails
// with zxscan.ErrNotFound when the whole image spans no more than
// minDynamicRange luminance levels. Single flat blocks are fine; a symbol
// whose modules line up with the block grid has nothing else.
func (h *Hybrid) BlackMatrix() (*bitutil.BitMatrix, error) {
	if h.matrix != nil {
		return h.matrix, nil
	}
	w, ht := h.Width(), h.Height()
	if w < minDimension || ht < minDimension {
		m, err := h.GlobalHistogram.BlackMatrix()
		if err != nil {
			return nil, err
		}
		h.matrix = m
		return m, nil
	}

	lum := h.LuminanceSource().Matrix()
	g := blockGrid{
		cols: (w + blockSize - 1) >> blockPower,
		rows: (ht + blockSize - 1) >> blockPower,
		w:    w,
		h:    ht,
	}
	points, contrast := g.blackPoints(lum)
	if !contrast {
		return nil, zxscan.ErrNotFound
	}
	m := bitutil.NewBitMatrix(w, ht)
	g.threshold(lum, points, m)
	h.matrix = m
	return m, nil
}

type blockGrid struct {
	cols, rows int
	w, h       int
}

// origin returns the pixel offset of block (bx, by). The last row and column
// of blocks are pulled back so they stay inside the image.
func (g blockGrid) origin(bx, by int) (int, int) {
	return min(bx<<blockPower, g.w-blockSize), min(by<<blockPower, g.h-blockSize)
}

// blackPoints computes one black point per block. Low contrast blocks take
// half their minimum, or their neighbours' estimate when that is brighter,
// so that a flat block inside a symbol does not read as all black. It also
// reports whether the image as a whole has any contrast.
func (g blockGrid) blackPoints(lum []byte) ([]int, bool) {
	points := make([]int, g.cols*g.rows)
	darkest, brightest := 0xFF, 0
	for by := 0; by < g.rows; by++ {
		for bx := 0; bx < g.cols; bx++ {
			x0, y0 := g.origin(bx, by)
			sum, lo, hi := 0, 0xFF, 0
			for yy := 0; yy < blockSize; yy++ {
				off := (y0+yy)*g.w + x0
				for _, p := range lum[off : off+blockSize] {
					v := int(p)
					sum += v
					lo = min(lo, v)
					hi = max(hi, v)
				}
			}

			darkest = min(darkest, lo)
			brightest = max(brightest, hi)

			avg := sum >> (2 * blockPower)
			if hi-lo <= minDynamicRange {
				avg = lo / 2
				if bx > 0 && by > 0 {
					up := points[(by-1)*g.cols+bx]
					left := points[by*g.cols+bx-1]
					diag := points[(by-1)*g.cols+bx-1]
					if n := (up + 2*left + diag) / 4; lo < n {
						avg = n
					}
				}
			}
			points[by*g.cols+bx] = avg
		}
	}
	return points, brightest-darkest > minDynamicRange
}

// threshold marks pixels at or below the 5x5 neighbourhood average.
func (g blockGrid) threshold(lum []byte, points []int, m *bitutil.BitMatrix) {
	clampCenter := func(v, n int) int { return max(2, min(v, n-3)) }
	for by := 0; by < g.rows; by++ {
		cy := clampCenter(by, g.rows)
		for bx := 0; bx < g.cols; bx++ {
			cx := clampCenter(bx, g.cols)
			sum := 0
			for dy := -2; dy <= 2; dy++ {
				row := points[(cy+dy)*g.cols:]
				for dx := -2; dx <= 2; dx++ {
					sum += row[cx+dx]
				}
			}
			t := sum / 25

			x0, y0 := g.origin(bx, by)
			for yy := 0; yy < blockSize; yy++ {
				off := (y0+yy)*g.w + x0
				for xx, p := range lum[off : off+blockSize] {
					if int(p) <= t {
						m.Set(x0+xx, y0+yy)
					}
				}
			}
		}
	}
}
