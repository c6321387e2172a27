// Package binarizer turns luminance into black and white bits.
package binarizer

import (
	"fmt"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

const (
	histBits    = 5
	histShift   = 8 - histBits
	histBuckets = 1 << histBits
)

// GlobalHistogram picks one black point for a row, or for the whole image,
// from a coarse luminance histogram. It is fast and handles evenly lit
// images; use Hybrid for shadows and gradients.
type GlobalHistogram struct {
	source zxscan.LuminanceSource
	row    []byte
}

// NewGlobalHistogram returns a GlobalHistogram over source.
func NewGlobalHistogram(source zxscan.LuminanceSource) *GlobalHistogram {
	return &GlobalHistogram{source: source}
}

func (g *GlobalHistogram) Derive(source zxscan.LuminanceSource) zxscan.Binarizer {
	return NewGlobalHistogram(source)
}

func (g *GlobalHistogram) LuminanceSource() zxscan.LuminanceSource { return g.source }
func (g *GlobalHistogram) Width() int                              { return g.source.Width() }
func (g *GlobalHistogram) Height() int                             { return g.source.Height() }

// BlackRow thresholds row y against its own histogram, with a small
// sharpening kernel (4c - l - r) / 2 applied to interior pixels.
func (g *GlobalHistogram) BlackRow(y int, row *bitutil.BitArray) (*bitutil.BitArray, error) {
	w := g.source.Width()
	if row == nil || row.Len() < w {
		row = bitutil.NewBitArray(w)
	} else {
		row.Clear()
	}
	g.row = g.source.Row(y, g.row)
	lum := g.row

	var hist [histBuckets]int
	for _, v := range lum[:w] {
		hist[v>>histShift]++
	}
	black, err := blackPoint(&hist)
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", y, err)
	}

	if w < 3 {
		for x, v := range lum[:w] {
			if int(v) < black {
				row.Set(x)
			}
		}
		return row, nil
	}
	l, c := int(lum[0]), int(lum[1])
	for x := 1; x < w-1; x++ {
		r := int(lum[x+1])
		if (4*c-l-r)/2 < black {
			row.Set(x)
		}
		l, c = c, r
	}
	return row, nil
}

// BlackMatrix samples four rows across the middle three fifths of the image
// to build one histogram, then thresholds every pixel against it.
func (g *GlobalHistogram) BlackMatrix() (*bitutil.BitMatrix, error) {
	w, h := g.source.Width(), g.source.Height()

	var hist [histBuckets]int
	for i := 1; i < 5; i++ {
		g.row = g.source.Row(h*i/5, g.row)
		for _, v := range g.row[w/5 : 4*w/5] {
			hist[v>>histShift]++
		}
	}
	black, err := blackPoint(&hist)
	if err != nil {
		return nil, err
	}

	m := bitutil.NewBitMatrix(w, h)
	lum := g.source.Matrix()
	for y := 0; y < h; y++ {
		for x, v := range lum[y*w : (y+1)*w] {
			if int(v) < black {
				m.Set(x, y)
			}
		}
	}
	return m, nil
}

// blackPoint finds the two dominant histogram peaks and returns the
// luminance of the deepest valley between them, biased toward the white
// peak. A single populated bucket, or peaks closer than a sixteenth of the
// range, mean there is no usable contrast.
func blackPoint(hist *[histBuckets]int) (int, error) {
	first, firstSize, tallest := 0, 0, 0
	for i, n := range hist {
		if n > firstSize {
			first, firstSize = i, n
		}
		tallest = max(tallest, n)
	}

	// second peak: far from the first and still tall
	second, secondScore := 0, 0
	for i, n := range hist {
		d := i - first
		if s := n * d * d; s > secondScore {
			second, secondScore = i, s
		}
	}
	if first > second {
		first, second = second, first
	}
	if secondScore == 0 || second-first <= histBuckets/16 {
		return 0, zxscan.ErrNotFound
	}

	valley, valleyScore := second-1, -1
	for i := second - 1; i > first; i-- {
		d := i - first
		if s := d * d * (second - i) * (tallest - hist[i]); s > valleyScore {
			valley, valleyScore = i, s
		}
	}
	return valley << histShift, nil
}
