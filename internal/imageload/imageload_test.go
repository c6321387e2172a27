package imageload

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIsImage(t *testing.T) {
	for _, p := range []string{"a.png", "dir/B.JPG", "x.tiff", "y.webp", "z.bmp"} {
		assert.True(t, IsImage(p), p)
	}
	for _, p := range []string{"notes.txt", "png", "archive.png.gz"} {
		assert.False(t, IsImage(p), p)
	}
}

func TestDecodeAndFit(t *testing.T) {
	src := imaging.New(400, 100, color.White)
	img, err := Decode(bytes.NewReader(encodePNG(t, src)), 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 100), img.Bounds())

	img, err = Decode(bytes.NewReader(encodePNG(t, src)), 200)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	assert.Same(t, src, Fit(src, 1000))

	_, err = Decode(bytes.NewReader([]byte("not an image")), 0)
	assert.Error(t, err)
}

func TestOpenReadsRegisteredFormats(t *testing.T) {
	fs := afero.NewMemMapFs()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, imaging.New(30, 20, color.Black)))
	require.NoError(t, afero.WriteFile(fs, "/in/frame.bmp", buf.Bytes(), 0o644))

	img, err := Open(fs, "/in/frame.bmp", 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())

	_, err = Open(fs, "/in/missing.png", 0)
	assert.Error(t, err)
}
