package transform

import (
	"fmt"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

// Sample reads a dimX×dimY module grid from img, taking module (x, y) from
// the image pixel that t maps the module center onto.
func Sample(img *bitutil.BitMatrix, dimX, dimY int, t Perspective) (*bitutil.BitMatrix, error) {
	if dimX < 1 || dimY < 1 {
		return nil, fmt.Errorf("grid %dx%d: %w", dimX, dimY, zxscan.ErrNotFound)
	}
	out := bitutil.NewBitMatrix(dimX, dimY)
	xy := make([]float64, 2*dimX)
	for y := 0; y < dimY; y++ {
		for x := 0; x < dimX; x++ {
			xy[2*x] = float64(x) + 0.5
			xy[2*x+1] = float64(y) + 0.5
		}
		t.ApplyAll(xy)
		if err := nudge(img, xy); err != nil {
			return nil, err
		}
		for x := 0; x < dimX; x++ {
			px, py := int(xy[2*x]), int(xy[2*x+1])
			if px < 0 || py < 0 || px >= img.Width() || py >= img.Height() {
				return nil, fmt.Errorf("module (%d,%d) maps outside the image: %w", x, y, zxscan.ErrNotFound)
			}
			if img.Get(px, py) {
				out.Set(x, y)
			}
		}
	}
	return out, nil
}

// SampleQuad samples the grid whose module-space corners from land on the
// image corners to.
func SampleQuad(img *bitutil.BitMatrix, dimX, dimY int, from, to Quad) (*bitutil.BitMatrix, error) {
	return Sample(img, dimX, dimY, QuadToQuad(from, to))
}

// nudge pulls points lying one pixel outside the image back onto its edge.
// Only the runs at either end of the row are checked, which is where a
// slightly off transform overshoots.
func nudge(img *bitutil.BitMatrix, xy []float64) error {
	w, h := img.Width(), img.Height()
	fix := func(i int) (bool, error) {
		x, y := int(xy[i]), int(xy[i+1])
		if x < -1 || x > w || y < -1 || y > h {
			return false, fmt.Errorf("point (%d,%d) outside %dx%d: %w", x, y, w, h, zxscan.ErrNotFound)
		}
		moved := false
		switch x {
		case -1:
			xy[i], moved = 0, true
		case w:
			xy[i], moved = float64(w-1), true
		}
		switch y {
		case -1:
			xy[i+1], moved = 0, true
		case h:
			xy[i+1], moved = float64(h-1), true
		}
		return moved, nil
	}
	for i := 0; i+1 < len(xy); i += 2 {
		moved, err := fix(i)
		if err != nil {
			return err
		}
		if !moved {
			break
		}
	}
	for i := len(xy) - 2; i >= 0; i -= 2 {
		moved, err := fix(i)
		if err != nil {
			return err
		}
		if !moved {
			break
		}
	}
	return nil
}
