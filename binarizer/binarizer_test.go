package binarizer

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericlevine/zxscan"
)

func flatSource(t *testing.T, w, h int, v byte) zxscan.LuminanceSource {
	t.Helper()
	lum := make([]byte, w*h)
	for i := range lum {
		lum[i] = v
	}
	src, err := zxscan.NewPlanarSource(lum, w, h)
	require.NoError(t, err)
	return src
}

// checkerSource draws black squares of the given size on a background whose
// brightness falls from left to right.
func checkerSource(w, h, cell int, shaded bool) zxscan.LuminanceSource {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			bg := uint8(230)
			if shaded {
				bg = uint8(230 - 120*x/w)
			}
			if (x/cell+y/cell)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: bg / 6})
			} else {
				img.SetGray(x, y, color.Gray{Y: bg})
			}
		}
	}
	return zxscan.NewImageSource(img)
}

func TestFlatImagesAreNotFound(t *testing.T) {
	for _, v := range []byte{0, 128, 255} {
		for _, size := range []int{20, 120} {
			src := flatSource(t, size, size, v)
			_, err := NewGlobalHistogram(src).BlackMatrix()
			assert.ErrorIs(t, err, zxscan.ErrNotFound, "global, value %d size %d", v, size)
			_, err = NewHybrid(src).BlackMatrix()
			assert.ErrorIs(t, err, zxscan.ErrNotFound, "hybrid, value %d size %d", v, size)
			_, err = NewGlobalHistogram(src).BlackRow(size/2, nil)
			assert.ErrorIs(t, err, zxscan.ErrNotFound, "row, value %d size %d", v, size)
		}
	}
}

func TestGlobalHistogramMatrix(t *testing.T) {
	src := checkerSource(64, 64, 8, false)
	m, err := NewGlobalHistogram(src).BlackMatrix()
	require.NoError(t, err)
	assert.True(t, m.Get(3, 3))
	assert.False(t, m.Get(11, 3))
	assert.True(t, m.Get(11, 11))
}

func TestGlobalHistogramRowReusesBuffer(t *testing.T) {
	src := checkerSource(64, 16, 8, false)
	g := NewGlobalHistogram(src)
	row, err := g.BlackRow(2, nil)
	require.NoError(t, err)
	assert.True(t, row.Get(4))
	assert.False(t, row.Get(12))

	again, err := g.BlackRow(10, row)
	require.NoError(t, err)
	assert.Same(t, row, again)
	assert.False(t, again.Get(4))
	assert.True(t, again.Get(12))
}

func TestHybridHandlesShading(t *testing.T) {
	src := checkerSource(156, 96, 12, true)
	m, err := NewHybrid(src).BlackMatrix()
	require.NoError(t, err)
	for cy := 0; cy < 96/12; cy++ {
		for cx := 0; cx < 156/12; cx++ {
			x, y := cx*12+6, cy*12+6
			assert.Equal(t, (cx+cy)%2 == 0, m.Get(x, y), "cell (%d,%d)", cx, cy)
		}
	}
}

func TestHybridCachesMatrix(t *testing.T) {
	h := NewHybrid(checkerSource(64, 64, 8, false))
	a, err := h.BlackMatrix()
	require.NoError(t, err)
	b, err := h.BlackMatrix()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

// Cells that line up with the 8 pixel blocks leave every block flat; the
// image as a whole still has contrast.
func TestHybridBlockAlignedCells(t *testing.T) {
	for _, cell := range []int{8, 16} {
		src := checkerSource(128, 128, cell, false)
		m, err := NewHybrid(src).BlackMatrix()
		require.NoError(t, err, "cell %d", cell)
		for cy := 0; cy < 128/cell; cy++ {
			for cx := 0; cx < 128/cell; cx++ {
				x, y := cx*cell+cell/2, cy*cell+cell/2
				assert.Equal(t, (cx+cy)%2 == 0, m.Get(x, y), "cell %d at (%d,%d)", cell, cx, cy)
			}
		}
	}
}

func TestHybridFallsBackForSmallImages(t *testing.T) {
	src := checkerSource(32, 32, 4, false)
	want, err := NewGlobalHistogram(src).BlackMatrix()
	require.NoError(t, err)
	got, err := NewHybrid(src).BlackMatrix()
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestLookup(t *testing.T) {
	src := flatSource(t, 8, 8, 128)
	for _, name := range []string{"", "hybrid", " Hybrid "} {
		f, err := Lookup(name)
		require.NoError(t, err, name)
		assert.IsType(t, &Hybrid{}, f(src))
	}
	f, err := Lookup("histogram")
	require.NoError(t, err)
	b := f(src)
	assert.IsType(t, &GlobalHistogram{}, b)
	assert.IsType(t, &GlobalHistogram{}, b.Derive(src))
	assert.IsType(t, &Hybrid{}, NewHybrid(src).Derive(src))

	_, err = Lookup("otsu")
	assert.ErrorIs(t, err, zxscan.ErrInvalidArgument)
}

func TestBinaryBitmapViews(t *testing.T) {
	bm := zxscan.NewBinaryBitmap(NewGlobalHistogram(checkerSource(64, 64, 8, false)))
	full, err := bm.BlackMatrix()
	require.NoError(t, err)
	require.True(t, full.Get(0, 0))

	crop, err := bm.Crop(8, 0, 16, 16)
	require.NoError(t, err)
	assert.IsType(t, &GlobalHistogram{}, crop.Binarizer())
	m, err := crop.BlackMatrix()
	require.NoError(t, err)
	assert.Equal(t, 16, m.Width())
	assert.False(t, m.Get(0, 0))
	assert.True(t, m.Get(8, 0))

	_, err = bm.Crop(60, 60, 10, 10)
	assert.ErrorIs(t, err, zxscan.ErrInvalidArgument)

	// (x, y) moves to (y, 63-x)
	rot, err := bm.RotateCounterClockwise().BlackMatrix()
	require.NoError(t, err)
	assert.True(t, rot.Get(0, 63))
	assert.False(t, rot.Get(0, 0))

	inv, err := bm.Invert().BlackMatrix()
	require.NoError(t, err)
	assert.False(t, inv.Get(0, 0))
	assert.True(t, inv.Get(8, 0))
}
