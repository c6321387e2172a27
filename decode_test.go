package zxscan

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMostSpecific(t *testing.T) {
	other := fmt.Errorf("disk on fire")
	notFound := fmt.Errorf("row 3: %w", ErrNotFound)
	format := fmt.Errorf("guard: %w", ErrFormat)
	checksum := fmt.Errorf("mod 10: %w", ErrChecksum)

	tests := []struct {
		a, b, want error
	}{
		{nil, notFound, notFound},
		{notFound, nil, notFound},
		{notFound, format, format},
		{checksum, format, checksum},
		{format, checksum, checksum},
		{other, notFound, notFound},
		{notFound, fmt.Errorf("again: %w", ErrNotFound), notFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MostSpecific(tt.a, tt.b), "MostSpecific(%v, %v)", tt.a, tt.b)
	}
	assert.True(t, IsDecodeFailure(checksum))
	assert.False(t, IsDecodeFailure(other))
	assert.False(t, IsDecodeFailure(ErrInvalidArgument))
}

func TestDecodeOptionsAllows(t *testing.T) {
	var none *DecodeOptions
	assert.True(t, none.Allows(FormatITF))
	assert.True(t, (&DecodeOptions{}).Allows(FormatITF))

	o := &DecodeOptions{PossibleFormats: []Format{FormatEAN8, FormatQRCode}}
	assert.True(t, o.Allows(FormatQRCode))
	assert.False(t, o.Allows(FormatCode39))
	assert.True(t, o.AllowsAny(FormatCode39, FormatEAN8))
	assert.False(t, o.AllowsAny(FormatCode39, FormatUPCA))
}

func TestDecodeOptionsCloneIsDeep(t *testing.T) {
	assert.Nil(t, (*DecodeOptions)(nil).Clone())

	o := &DecodeOptions{PossibleFormats: []Format{FormatITF}, AllowedLengths: []int{6}}
	c := o.Clone()
	c.PossibleFormats[0] = FormatEAN13
	c.AllowedLengths[0] = 8
	assert.Equal(t, FormatITF, o.PossibleFormats[0])
	assert.Equal(t, 6, o.AllowedLengths[0])
}

func TestFoundPoint(t *testing.T) {
	var seen []ResultPoint
	o := &DecodeOptions{ResultPointCallback: func(p ResultPoint) { seen = append(seen, p) }}
	o.FoundPoint(ResultPoint{X: 1, Y: 2})
	(*DecodeOptions)(nil).FoundPoint(ResultPoint{})
	assert.Equal(t, []ResultPoint{{X: 1, Y: 2}}, seen)
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{
		"QR_CODE": FormatQRCode,
		"qrcode":  FormatQRCode,
		"ean-13":  FormatEAN13,
		"Code 39": FormatCode39,
		"upc_a":   FormatUPCA,
		"itf":     FormatITF,
	} {
		got, err := ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseFormat("aztec")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	var f Format
	require.NoError(t, f.UnmarshalText([]byte("ean8")))
	assert.Equal(t, FormatEAN8, f)
	text, err := f.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "EAN_8", string(text))
	assert.Equal(t, "UNKNOWN", Format(99).String())
}

func TestAddOrientationWraps(t *testing.T) {
	r := NewResult("x", []byte("x"), nil, FormatQRCode)
	assert.Equal(t, 0, r.Orientation())
	assert.Equal(t, 8, r.NumBits)
	r.AddOrientation(270)
	r.AddOrientation(180)
	assert.Equal(t, 90, r.Orientation())
	r.AddOrientation(-180)
	assert.Equal(t, 270, r.Orientation())
}

func TestOrderBestPatterns(t *testing.T) {
	bl := ResultPoint{X: 0, Y: 10}
	tl := ResultPoint{X: 0, Y: 0}
	tr := ResultPoint{X: 10, Y: 0}
	for _, in := range [][3]ResultPoint{{bl, tl, tr}, {tr, bl, tl}, {tl, tr, bl}} {
		assert.Equal(t, [3]ResultPoint{bl, tl, tr}, OrderBestPatterns(in))
	}
}
