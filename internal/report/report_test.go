package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/resultparser"
)

func sample() *zxscan.Result {
	res := zxscan.NewResult("geo:1.5,2", []byte("geo:1.5,2"), []zxscan.ResultPoint{{X: 1, Y: 2}}, zxscan.FormatQRCode)
	res.PutMetadata(zxscan.MetadataErrorCorrectionLevel, "M")
	res.PutMetadata(zxscan.MetadataByteSegments, [][]byte{{1, 2}})
	res.AddOrientation(90)
	return res
}

func TestFromResult(t *testing.T) {
	e := FromResult("a.png", sample(), resultparser.Default())
	assert.Equal(t, "QR_CODE", e.Format)
	assert.Equal(t, 90, e.Orientation)
	assert.Equal(t, []Point{{X: 1, Y: 2}}, e.Points)
	assert.Equal(t, map[string]any{"ERROR_CORRECTION_LEVEL": "M"}, e.Metadata)
	require.NotNil(t, e.Parsed)
	assert.Equal(t, resultparser.TypeGeo, e.Parsed.Type)
	assert.Equal(t, "1.5, 2.0", e.Parsed.Display)

	assert.Nil(t, FromResult("", sample(), nil).Parsed)
}

func TestWriteFormats(t *testing.T) {
	entries := []Entry{
		FromResult("a.png", sample(), resultparser.Default()),
		Failure("b.png", errors.New("no barcode")),
	}

	var text bytes.Buffer
	require.NoError(t, Write(&text, "text", entries))
	assert.Equal(t, "a.png: [QR_CODE] geo:1.5,2 (1.5, 2.0)\nb.png: error: no barcode\n", text.String())

	var js bytes.Buffer
	require.NoError(t, Write(&js, "json", entries))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "QR_CODE", decoded[0]["format"])
	assert.Equal(t, "GEO", decoded[0]["parsed"].(map[string]any)["type"])
	assert.Equal(t, "no barcode", decoded[1]["error"])

	var ym bytes.Buffer
	require.NoError(t, Write(&ym, "yaml", entries))
	var back []map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &back))
	require.Len(t, back, 2)
	assert.Equal(t, "geo:1.5,2", back[0]["text"])

	var empty bytes.Buffer
	require.NoError(t, Write(&empty, "json", nil))
	assert.Equal(t, "[]\n", empty.String())

	assert.Error(t, Write(&empty, "csv", entries))
}
