package qrcode

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/disintegration/imaging"
	qrenc "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/binarizer"
)

func qrImage(t *testing.T, content string, level qrenc.RecoveryLevel, px int) image.Image {
	t.Helper()
	q, err := qrenc.New(content, level)
	require.NoError(t, err)
	return q.Image(-px)
}

func bitmap(img image.Image) *zxscan.BinaryBitmap {
	return zxscan.NewBinaryBitmap(binarizer.NewHybrid(zxscan.NewImageSource(img)))
}

func TestReaderDecode(t *testing.T) {
	img := qrImage(t, "HELLO WORLD", qrenc.Medium, 4)
	res, err := NewReader().Decode(bitmap(img), nil)
	require.NoError(t, err)

	assert.Equal(t, "HELLO WORLD", res.Text)
	assert.Equal(t, zxscan.FormatQRCode, res.Format)
	assert.Equal(t, "M", res.Metadata[zxscan.MetadataErrorCorrectionLevel])
	assert.Equal(t, "]Q1", res.Metadata[zxscan.MetadataSymbologyIdentifier])
	assert.Equal(t, 0, res.Metadata[zxscan.MetadataErrorsCorrected])
	assert.Equal(t, 0, res.Orientation())
	assert.Len(t, res.Points, 3)
}

func TestReaderOrientation(t *testing.T) {
	img := qrImage(t, "which way is up", qrenc.Low, 4)
	tests := []struct {
		name string
		img  image.Image
		want int
	}{
		{"upright", img, 0},
		{"quarter turn clockwise", imaging.Rotate270(img), 90},
		{"upside down", imaging.Rotate180(img), 180},
		{"quarter turn counter-clockwise", imaging.Rotate90(img), 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewReader().Decode(bitmap(tt.img), nil)
			require.NoError(t, err)
			assert.Equal(t, "which way is up", res.Text)
			assert.Equal(t, tt.want, res.Orientation())
		})
	}
}

func TestReaderPureBarcode(t *testing.T) {
	img := qrImage(t, "0123456789", qrenc.Highest, 3)
	opts := &zxscan.DecodeOptions{PureBarcode: true}
	res, err := NewReader().Decode(bitmap(img), opts)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", res.Text)
	assert.Equal(t, "H", res.Metadata[zxscan.MetadataErrorCorrectionLevel])
	assert.Empty(t, res.Points)
}

func TestReaderPureBarcodeWithStrayMark(t *testing.T) {
	src := qrImage(t, "0123456789", qrenc.Medium, 3)
	img := image.NewGray(src.Bounds())
	draw.Draw(img, img.Bounds(), src, image.Point{}, draw.Src)
	// a speck in the quiet zone moves the bounding box off the symbol
	for y := 1; y < 3; y++ {
		for x := 1; x < 3; x++ {
			img.SetGray(x, y, color.Gray{})
		}
	}

	matrix, err := bitmap(img).BlackMatrix()
	require.NoError(t, err)
	region, err := pureRegion(matrix)
	require.NoError(t, err)
	left, top, _ := region.TopLeftOnBit()
	assert.Greater(t, left, 0)
	assert.Greater(t, top, 0)
	assert.Less(t, region.Width(), matrix.Width()-8)

	res, err := NewReader().Decode(bitmap(img), &zxscan.DecodeOptions{PureBarcode: true})
	require.NoError(t, err)
	assert.Equal(t, "0123456789", res.Text)
}

func TestReaderCharacterSetOverride(t *testing.T) {
	// ISO-8859-1 bytes that a UTF-8 reading would reject
	img := qrImage(t, "caf\xe9", qrenc.Medium, 4)
	opts := &zxscan.DecodeOptions{CharacterSet: "ISO-8859-1"}
	res, err := NewReader().Decode(bitmap(img), opts)
	require.NoError(t, err)
	assert.Equal(t, "café", res.Text)
}

func TestReaderNothingThere(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 120, 120))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 0xFF}), image.Point{}, draw.Src)
	img.SetGray(60, 60, color.Gray{})
	_, err := NewReader().Decode(bitmap(img), nil)
	assert.ErrorIs(t, err, zxscan.ErrNotFound)
}

func TestMultiReader(t *testing.T) {
	a := qrImage(t, "LEFT", qrenc.Medium, 4)
	b := qrImage(t, "RIGHT", qrenc.Medium, 4)
	w := a.Bounds().Dx() + b.Bounds().Dx() + 20
	h := max(a.Bounds().Dy(), b.Bounds().Dy())
	canvas := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, a.Bounds(), a, image.Point{}, draw.Src)
	draw.Draw(canvas, b.Bounds().Add(image.Pt(a.Bounds().Dx()+20, 0)), b, image.Point{}, draw.Src)

	res, err := NewMultiReader().DecodeMultiple(bitmap(canvas), &zxscan.DecodeOptions{TryHarder: true})
	require.NoError(t, err)
	var texts []string
	for _, r := range res {
		texts = append(texts, r.Text)
	}
	assert.ElementsMatch(t, []string{"LEFT", "RIGHT"}, texts)
}

func TestJoinStructuredAppend(t *testing.T) {
	part := func(text string, seq, parity int) *zxscan.Result {
		r := zxscan.NewResult(text, []byte(text), nil, zxscan.FormatQRCode)
		r.PutMetadata(zxscan.MetadataStructuredAppendSequence, seq)
		r.PutMetadata(zxscan.MetadataStructuredAppendParity, parity)
		r.PutMetadata(zxscan.MetadataByteSegments, [][]byte{[]byte(text)})
		return r
	}
	alone := zxscan.NewResult("alone", nil, nil, zxscan.FormatQRCode)
	// index in the high nibble, total-1 in the low nibble
	in := []*zxscan.Result{part("world", 0x11, 7), alone, part("hello ", 0x01, 7), part("x", 0x00, 9)}

	out := JoinStructuredAppend(in)
	require.Len(t, out, 3)
	assert.Equal(t, "alone", out[0].Text)
	assert.Equal(t, "hello world", out[1].Text)
	assert.Equal(t, []byte("hello world"), out[1].RawBytes)
	assert.Equal(t, [][]byte{[]byte("hello world")}, out[1].Metadata[zxscan.MetadataByteSegments])
	assert.Equal(t, "x", out[2].Text)
}

func TestOrientationRounding(t *testing.T) {
	p := func(x, y float64) zxscan.ResultPoint { return zxscan.ResultPoint{X: x, Y: y} }
	assert.Equal(t, 0, orientation(p(0, 0), p(10, 1)))
	assert.Equal(t, 90, orientation(p(0, 0), p(-1, 10)))
	assert.Equal(t, 180, orientation(p(0, 0), p(-10, 0)))
	assert.Equal(t, 270, orientation(p(0, 0), p(2, -10)))
}
