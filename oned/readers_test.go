package oned

import (
	"strings"
	"testing"

	"github.com/boombuler/barcode/code39"
	"github.com/boombuler/barcode/ean"
	"github.com/boombuler/barcode/twooffive"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericlevine/zxscan"
)

func digitString(ds []int) string {
	var sb strings.Builder
	for _, d := range ds {
		sb.WriteByte('0' + byte(d))
	}
	return sb.String()
}

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"123456789012", 8},
		{"400638133393", 1},
		{"03600029145", 2},
		{"9638507", 4},
		{"12a", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CheckDigit(tt.in), tt.in)
	}
}

func TestEAN13RoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("12 digits come back with their mod-10 check digit", prop.ForAll(
		func(ds []int) bool {
			payload := digitString(ds)
			row := rowOf(t, EAN13Writer{}, payload, zxscan.FormatEAN13)
			res, err := EAN13Reader{}.DecodeRow(0, row, nil)
			if err != nil {
				return false
			}
			return res.Format == zxscan.FormatEAN13 &&
				res.Text == payload+string(rune('0'+CheckDigit(payload)))
		},
		gen.SliceOfN(12, gen.IntRange(0, 9)),
	))

	properties.TestingRun(t)
}

func TestEAN13BadCheckDigit(t *testing.T) {
	m := render(ean13Modules("1234567890127"), 0, 1)
	_, err := EAN13Reader{}.DecodeRow(0, m.Row(0, nil), nil)
	assert.ErrorIs(t, err, zxscan.ErrChecksum)
}

func TestUPCAConversion(t *testing.T) {
	row := rowOf(t, EAN13Writer{}, "003600029145", zxscan.FormatEAN13)

	res, err := NewUPCEANReader(nil).DecodeRow(0, row, nil)
	require.NoError(t, err)
	assert.Equal(t, zxscan.FormatUPCA, res.Format)
	assert.Equal(t, "036000291452", res.Text)
	assert.Equal(t, "]E0", res.Metadata[zxscan.MetadataSymbologyIdentifier])

	onlyEAN := &zxscan.DecodeOptions{PossibleFormats: []zxscan.Format{zxscan.FormatEAN13}}
	res, err = NewUPCEANReader(onlyEAN).DecodeRow(0, row, onlyEAN)
	require.NoError(t, err)
	assert.Equal(t, zxscan.FormatEAN13, res.Format)
	assert.Equal(t, "0036000291452", res.Text)

	res, err = UPCAReader{}.DecodeRow(0, row, nil)
	require.NoError(t, err)
	assert.Equal(t, "036000291452", res.Text)

	row = rowOf(t, EAN13Writer{}, "123456789012", zxscan.FormatEAN13)
	_, err = UPCAReader{}.DecodeRow(0, row, nil)
	assert.ErrorIs(t, err, zxscan.ErrFormat)

	onlyUPCA := &zxscan.DecodeOptions{PossibleFormats: []zxscan.Format{zxscan.FormatUPCA}}
	_, err = NewUPCEANReader(onlyUPCA).DecodeRow(0, row, onlyUPCA)
	assert.Error(t, err, "EAN-13 with a non-zero lead is not UPC-A")
}

func TestEAN8(t *testing.T) {
	row := rowOf(t, EAN8Writer{}, "9638507", zxscan.FormatEAN8)
	res, err := EAN8Reader{}.DecodeRow(7, row, nil)
	require.NoError(t, err)
	assert.Equal(t, "96385074", res.Text)
	assert.Equal(t, "]E4", res.Metadata[zxscan.MetadataSymbologyIdentifier])
	assert.Nil(t, res.Metadata[zxscan.MetadataPossibleCountry])
	assert.Equal(t, 7.0, res.Points[0].Y)

	bc, err := ean.Encode("9638507")
	require.NoError(t, err)
	opts := &zxscan.DecodeOptions{PossibleFormats: []zxscan.Format{zxscan.FormatEAN8}}
	res, err = NewMultiFormatOneDReader(opts).Decode(bitmap(fixture(t, bc, 3)), opts)
	require.NoError(t, err)
	assert.Equal(t, zxscan.FormatEAN8, res.Format)
	assert.Equal(t, "96385074", res.Text)
}

func TestITFLengths(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		allowed []int
		ok      bool
	}{
		{"default six", "123456", nil, true},
		{"default fourteen", "10012345678902", nil, true},
		{"four not in defaults", "1234", nil, false},
		{"four allowed explicitly", "1234", []int{4}, true},
		{"longer than any default", strings.Repeat("12", 23), nil, true},
		{"between listed lengths", strings.Repeat("12", 11), nil, false},
		{"longer than the explicit maximum", "12345678", []int{4, 6}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := rowOf(t, ITFWriter{}, tt.payload, zxscan.FormatITF)
			res, err := ITFReader{}.DecodeRow(0, row, &zxscan.DecodeOptions{AllowedLengths: tt.allowed})
			if !tt.ok {
				assert.ErrorIs(t, err, zxscan.ErrFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.payload, res.Text)
			assert.Equal(t, zxscan.FormatITF, res.Format)
			assert.Equal(t, "]I0", res.Metadata[zxscan.MetadataSymbologyIdentifier])
		})
	}
}

func TestITFQuietZone(t *testing.T) {
	m, err := ITFWriter{}.Encode("123456", zxscan.FormatITF, 0, 1)
	require.NoError(t, err)
	row := m.Row(0, nil)
	// a stray bar inside the leading quiet zone
	row.Set(QuietZone - 4)
	_, err = ITFReader{}.DecodeRow(0, row, nil)
	assert.ErrorIs(t, err, zxscan.ErrNotFound)
}

func TestITFImage(t *testing.T) {
	bc, err := twooffive.Encode("12345670", true)
	require.NoError(t, err)
	opts := &zxscan.DecodeOptions{PossibleFormats: []zxscan.Format{zxscan.FormatITF}}
	res, err := NewMultiFormatOneDReader(opts).Decode(bitmap(fixture(t, bc, 2)), opts)
	require.NoError(t, err)
	assert.Equal(t, "12345670", res.Text)
}

func TestCode39CheckCharacter(t *testing.T) {
	assert.Equal(t, byte('G'), Code39CheckChar("HELLO-39"))
	assert.Zero(t, Code39CheckChar("hello"))

	bc, err := code39.Encode("HELLO-39", true, false)
	require.NoError(t, err)
	img := fixture(t, bc, 2)
	only39 := []zxscan.Format{zxscan.FormatCode39}

	plain := &zxscan.DecodeOptions{PossibleFormats: only39}
	res, err := NewMultiFormatOneDReader(plain).Decode(bitmap(img), plain)
	require.NoError(t, err)
	assert.Equal(t, "HELLO-39G", res.Text)
	assert.Equal(t, "]A0", res.Metadata[zxscan.MetadataSymbologyIdentifier])

	checked := &zxscan.DecodeOptions{PossibleFormats: only39, AssumeCode39CheckDigit: true}
	res, err = NewMultiFormatOneDReader(checked).Decode(bitmap(img), checked)
	require.NoError(t, err)
	assert.Equal(t, "HELLO-39", res.Text)

	row := rowOf(t, Code39Writer{}, "HELLO-39X", zxscan.FormatCode39)
	_, err = Code39Reader{CheckDigit: true}.DecodeRow(0, row, nil)
	assert.ErrorIs(t, err, zxscan.ErrChecksum)
}

func TestCode39Extended(t *testing.T) {
	row := rowOf(t, Code39Writer{}, "Hello, world!", zxscan.FormatCode39)

	res, err := Code39Reader{}.DecodeRow(0, row, nil)
	require.NoError(t, err)
	assert.Equal(t, "H+E+L+L+O/L +W+O+R+L+D/A", res.Text)

	res, err = Code39Reader{Extended: true}.DecodeRow(0, row, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", res.Text)

	res, err = Code39Reader{}.DecodeRow(0, row, &zxscan.DecodeOptions{Code39Extended: true})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", res.Text)

	for _, bad := range []string{"AB+", "+1", "%9", "/P"} {
		_, err := decodeCode39Extended(bad)
		assert.ErrorIs(t, err, zxscan.ErrFormat, bad)
	}
}

func TestCode39FullASCIIRoundTrip(t *testing.T) {
	var all []byte
	for c := 0; c < 128; c++ {
		all = append(all, byte(c))
	}
	shifted, err := code39FullASCII(string(all))
	require.NoError(t, err)
	back, err := decodeCode39Extended(shifted)
	require.NoError(t, err)
	assert.Equal(t, string(all), back)
}

func TestNarrowWide(t *testing.T) {
	assert.Equal(t, code39Asterisk, narrowWide([]int{1, 2, 1, 1, 2, 1, 2, 1, 1}))
	assert.Equal(t, code39Asterisk, narrowWide([]int{3, 7, 3, 2, 8, 3, 7, 3, 3}))
	assert.Equal(t, -1, narrowWide([]int{1, 1, 1, 1, 1, 1, 1, 1, 1}))
	assert.Equal(t, -1, narrowWide([]int{1, 2, 2, 2, 2, 1, 1, 1, 1}))
}

func TestMultiFormatOneDRestrictedToCode39(t *testing.T) {
	only39 := &zxscan.DecodeOptions{PossibleFormats: []zxscan.Format{zxscan.FormatCode39}}
	properties := gopter.NewProperties(nil)

	properties.Property("never returns a format other than CODE_39", prop.ForAll(
		func(ds []int, itf bool) bool {
			payload := digitString(ds)
			row := rowOf(t, EAN13Writer{}, payload, zxscan.FormatEAN13)
			if itf {
				row = rowOf(t, ITFWriter{}, payload, zxscan.FormatITF)
			}
			res, err := NewMultiFormatOneDReader(only39).DecodeRow(0, row, only39)
			return err != nil || res.Format == zxscan.FormatCode39
		},
		gen.SliceOfN(12, gen.IntRange(0, 9)),
		gen.Bool(),
	))

	properties.TestingRun(t)

	row := rowOf(t, Code39Writer{}, "ABC123", zxscan.FormatCode39)
	res, err := NewMultiFormatOneDReader(only39).DecodeRow(0, row, only39)
	require.NoError(t, err)
	assert.Equal(t, zxscan.FormatCode39, res.Format)

	// the options a row is decoded with filter as well
	all := NewMultiFormatOneDReader(nil)
	eanRow := rowOf(t, EAN13Writer{}, "123456789012", zxscan.FormatEAN13)
	_, err = all.DecodeRow(0, eanRow, only39)
	assert.Error(t, err)

	qrOnly := &zxscan.DecodeOptions{PossibleFormats: []zxscan.Format{zxscan.FormatQRCode}}
	assert.True(t, NewMultiFormatOneDReader(qrOnly).Empty())
}
