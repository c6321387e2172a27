package multi

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	qrenc "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/binarizer"
	"github.com/ericlevine/zxscan/qrcode"
)

func bitmap(img image.Image) *zxscan.BinaryBitmap {
	return zxscan.NewBinaryBitmap(binarizer.NewHybrid(zxscan.NewImageSource(img)))
}

func TestDecodeMultipleTwoQRCodes(t *testing.T) {
	first, err := qrenc.New("FIRST", qrenc.Medium)
	require.NoError(t, err)
	second, err := qrenc.New("SECOND", qrenc.Medium)
	require.NoError(t, err)

	canvas := imaging.New(500, 500, color.White)
	canvas = imaging.Paste(canvas, first.Image(-4), image.Pt(0, 0))
	canvas = imaging.Paste(canvas, second.Image(-4), image.Pt(380, 380))

	results, err := NewGenericMultipleBarcodeReader(qrcode.NewReader()).DecodeMultiple(bitmap(canvas), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byText := map[string]*zxscan.Result{}
	for _, r := range results {
		byText[r.Text] = r
	}
	require.Contains(t, byText, "FIRST")
	require.Contains(t, byText, "SECOND")
	for _, p := range byText["FIRST"].Points {
		assert.Less(t, p.X, 120.0)
		assert.Less(t, p.Y, 120.0)
	}
	for _, p := range byText["SECOND"].Points {
		assert.Greater(t, p.X, 380.0, "points must be in canvas coordinates")
		assert.Greater(t, p.Y, 380.0)
	}
}

// fixedReader returns the same symbol, anchored near the top-left corner of
// whatever region it is handed.
type fixedReader struct {
	sizes [][2]int
}

func (f *fixedReader) Decode(image *zxscan.BinaryBitmap, _ *zxscan.DecodeOptions) (*zxscan.Result, error) {
	f.sizes = append(f.sizes, [2]int{image.Width(), image.Height()})
	return zxscan.NewResult("SAME", nil, []zxscan.ResultPoint{{X: 10, Y: 10}, {X: 20, Y: 20}}, zxscan.FormatQRCode), nil
}

func (f *fixedReader) Reset() {}

func TestDecodeMultipleDedupesAndStopsRecursing(t *testing.T) {
	stub := &fixedReader{}
	img := imaging.New(1000, 50, color.White)

	results, err := NewGenericMultipleBarcodeReader(stub).DecodeMultiple(bitmap(img), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "SAME", results[0].Text)
	assert.Equal(t, zxscan.ResultPoint{X: 10, Y: 10}, results[0].Points[0])

	// one region per level, each starting at the previous symbol's right edge
	require.Len(t, stub.sizes, maxDepth+1)
	assert.Equal(t, [2]int{1000, 50}, stub.sizes[0])
	assert.Equal(t, [2]int{980, 50}, stub.sizes[1])
}

func TestDecodeMultipleNothingFound(t *testing.T) {
	img := imaging.New(300, 300, color.White)
	_, err := NewGenericMultipleBarcodeReader(qrcode.NewReader()).DecodeMultiple(bitmap(img), nil)
	assert.ErrorIs(t, err, zxscan.ErrNotFound)
}

func TestTranslate(t *testing.T) {
	res := zxscan.NewResult("x", nil, []zxscan.ResultPoint{{X: 1, Y: 2}}, zxscan.FormatEAN8)
	moved := translate(res, 10, 20)
	assert.Equal(t, zxscan.ResultPoint{X: 11, Y: 22}, moved.Points[0])
	assert.Equal(t, zxscan.ResultPoint{X: 1, Y: 2}, res.Points[0], "input must not change")
	assert.Same(t, res, translate(res, 0, 0))
}
