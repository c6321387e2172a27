package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/binarizer"
	"github.com/ericlevine/zxscan/oned"
)

// encodeAndDecode renders contents with the format's writer and reads it
// back through the facade.
func encodeAndDecode(t *testing.T, contents string, format zxscan.Format, width, height int) *zxscan.Result {
	t.Helper()

	w, err := oned.NewWriter(format)
	require.NoError(t, err)
	matrix, err := w.Encode(contents, format, width, height)
	require.NoError(t, err)
	require.NotZero(t, matrix.Width())

	img := zxscan.BitMatrixToImage(matrix, 2)
	reader := NewBarcodeReader(&zxscan.DecodeOptions{PossibleFormats: []zxscan.Format{format}})
	reader.SetBinarizer(binarizer.HistogramFactory)
	res, err := reader.DecodeImage(img)
	require.NoError(t, err)
	require.NotNil(t, res, "decode %s: %v", format, reader.LastErr())
	return res
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		format   zxscan.Format
		want     string
	}{
		{"EAN13", "590123412345", zxscan.FormatEAN13, "5901234123457"},
		{"EAN13 with check digit", "4006381333931", zxscan.FormatEAN13, "4006381333931"},
		{"EAN8", "9638507", zxscan.FormatEAN8, "96385074"},
		{"ITF", "00123456", zxscan.FormatITF, "00123456"},
		{"Code39", "ROUND TRIP-39", zxscan.FormatCode39, "ROUND TRIP-39"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := encodeAndDecode(t, tt.contents, tt.format, 0, 40)
			assert.Equal(t, tt.want, res.Text)
			assert.Equal(t, tt.format, res.Format)
		})
	}
}

func TestRoundTripUPCA(t *testing.T) {
	w, err := oned.NewWriter(zxscan.FormatEAN13)
	require.NoError(t, err)
	matrix, err := w.Encode("0036000291452", zxscan.FormatEAN13, 0, 40)
	require.NoError(t, err)

	// A leading zero on an EAN-13 is a UPC-A symbol.
	reader := NewBarcodeReader(&zxscan.DecodeOptions{PossibleFormats: []zxscan.Format{zxscan.FormatUPCA}})
	res, err := reader.DecodeImage(zxscan.BitMatrixToImage(matrix, 2))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, zxscan.FormatUPCA, res.Format)
	assert.Equal(t, "036000291452", res.Text)
}
