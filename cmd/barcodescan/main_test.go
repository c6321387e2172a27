package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/ean"
	"github.com/disintegration/imaging"
	qrenc "github.com/skip2/go-qrcode"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writePNG(t *testing.T, fs afero.Fs, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0o644))
}

func qrImage(t *testing.T, content string) image.Image {
	t.Helper()
	q, err := qrenc.New(content, qrenc.Medium)
	require.NoError(t, err)
	return q.Image(-4)
}

func eanImage(t *testing.T) image.Image {
	t.Helper()
	bc, err := ean.Encode("123456789012")
	require.NoError(t, err)
	w := bc.Bounds().Dx() * 2
	scaled, err := barcode.Scale(bc, w, 60)
	require.NoError(t, err)
	canvas := imaging.New(w+60, 100, color.White)
	return imaging.Paste(canvas, scaled, image.Pt(30, 20))
}

// fixtureFs holds two decodable images at the top level, one nested, and
// a file that is not an image.
func fixtureFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/imgs/a.png", qrImage(t, "ALPHA"))
	writePNG(t, fs, "/imgs/b.png", eanImage(t))
	writePNG(t, fs, "/imgs/sub/c.png", qrImage(t, "NESTED"))
	require.NoError(t, afero.WriteFile(fs, "/imgs/notes.txt", []byte("not an image"), 0o644))
	return fs
}

func run(t *testing.T, fs afero.Fs, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(fs)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScanDirectory(t *testing.T) {
	fs := fixtureFs(t)

	out, err := run(t, fs, "", "scan", "/imgs")
	require.NoError(t, err, out)
	assert.Equal(t, "/imgs/a.png: [QR_CODE] ALPHA\n/imgs/b.png: [EAN_13] 1234567890128\n", out)

	out, err = run(t, fs, "", "scan", "--recursive", "--workers", "1", "/imgs")
	require.NoError(t, err, out)
	assert.Contains(t, out, "/imgs/sub/c.png: [QR_CODE] NESTED")
	assert.Equal(t, 3, strings.Count(out, "\n"))
}

func TestScanJSONOutput(t *testing.T) {
	fs := fixtureFs(t)
	writePNG(t, fs, "/geo.png", qrImage(t, "geo:48.8583,2.2945"))

	out, err := run(t, fs, "", "scan", "-o", "json", "/geo.png", "/imgs/b.png")
	require.NoError(t, err, out)

	var entries []struct {
		Source string `json:"source"`
		Text   string `json:"text"`
		Format string `json:"format"`
		Parsed struct {
			Type   string         `json:"type"`
			Fields map[string]any `json:"fields"`
		} `json:"parsed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries), out)
	require.Len(t, entries, 2)
	assert.Equal(t, "/geo.png", entries[0].Source)
	assert.Equal(t, "GEO", entries[0].Parsed.Type)
	assert.InDelta(t, 48.8583, entries[0].Parsed.Fields["latitude"], 1e-9)
	assert.Equal(t, "EAN_13", entries[1].Format)
	assert.Equal(t, "TEXT", entries[1].Parsed.Type)
}

func TestScanFailures(t *testing.T) {
	fs := fixtureFs(t)
	writePNG(t, fs, "/blank.png", imaging.New(80, 80, color.White))

	out, err := run(t, fs, "", "scan", "/imgs/a.png", "/blank.png", "/missing.png")
	assert.ErrorIs(t, err, errIncomplete)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "/imgs/a.png: [QR_CODE] ALPHA", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "/blank.png: error: "), lines[1])
	assert.Contains(t, lines[1], "not found")
	assert.True(t, strings.HasPrefix(lines[2], "/missing.png: error: "), lines[2])
}

func TestScanFormatsFlag(t *testing.T) {
	fs := fixtureFs(t)

	out, err := run(t, fs, "", "scan", "--formats", "EAN_13,EAN_8", "/imgs")
	assert.ErrorIs(t, err, errIncomplete)
	assert.Contains(t, out, "/imgs/a.png: error:")
	assert.Contains(t, out, "/imgs/b.png: [EAN_13] 1234567890128")

	_, err = run(t, fs, "", "scan", "--formats", "AZTEC", "/imgs")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errIncomplete)
}

func TestScanMulti(t *testing.T) {
	fs := afero.NewMemMapFs()
	canvas := imaging.New(500, 500, color.White)
	canvas = imaging.Paste(canvas, qrImage(t, "FIRST"), image.Pt(0, 0))
	canvas = imaging.Paste(canvas, qrImage(t, "SECOND"), image.Pt(380, 380))
	writePNG(t, fs, "/two.png", canvas)

	out, err := run(t, fs, "", "scan", "--multi", "/two.png")
	require.NoError(t, err, out)
	assert.Contains(t, out, "/two.png: [QR_CODE] FIRST")
	assert.Contains(t, out, "/two.png: [QR_CODE] SECOND")
}

func TestScanConfigFile(t *testing.T) {
	fs := fixtureFs(t)
	require.NoError(t, afero.WriteFile(fs, "/etc/scan.yaml", []byte(`
scan:
  output: yaml
  recursive: true
decode:
  binarizer: histogram
`), 0o644))

	out, err := run(t, fs, "", "--config", "/etc/scan.yaml", "scan", "/imgs/sub")
	require.NoError(t, err, out)

	var entries []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &entries), out)
	require.Len(t, entries, 1)
	assert.Equal(t, "NESTED", entries[0]["text"])

	// An explicit flag beats the file.
	out, err = run(t, fs, "", "--config", "/etc/scan.yaml", "scan", "-o", "text", "/imgs/sub")
	require.NoError(t, err)
	assert.Equal(t, "/imgs/sub/c.png: [QR_CODE] NESTED\n", out)
}

func TestScanBadConfig(t *testing.T) {
	fs := fixtureFs(t)

	_, err := run(t, fs, "", "--binarizer", "otsu", "scan", "/imgs")
	assert.Error(t, err)

	_, err = run(t, fs, "", "--config", "/nowhere.yaml", "scan", "/imgs")
	assert.Error(t, err)

	_, err = run(t, fs, "", "scan", "/empty")
	assert.Error(t, err)

	require.NoError(t, fs.MkdirAll("/emptydir", 0o755))
	_, err = run(t, fs, "", "scan", "/emptydir")
	assert.ErrorContains(t, err, "no images found")
}

func TestDiscover(t *testing.T) {
	fs := fixtureFs(t)

	paths, err := discover(fs, []string{"/imgs"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"/imgs/a.png", "/imgs/b.png"}, paths)

	paths, err = discover(fs, []string{"/imgs", "/imgs/notes.txt"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/imgs/a.png", "/imgs/b.png", "/imgs/sub/c.png", "/imgs/notes.txt"}, paths)
}

func TestParse(t *testing.T) {
	fs := afero.NewMemMapFs()

	out, err := run(t, fs, "", "parse", "geo:48.8583,2.2945,120?q=tower")
	require.NoError(t, err)
	assert.Equal(t, "GEO\n48.8583, 2.2945, 120.0m (q=tower)\n", out)

	out, err = run(t, fs, "", "parse", "just", "words")
	require.NoError(t, err)
	assert.Equal(t, "TEXT\njust words\n", out)

	vcard := "BEGIN:VCARD\nFN:Ada Lovelace\nTEL;TYPE=CELL:+44 20 7946 0000\nEND:VCARD\n"
	out, err = run(t, fs, vcard, "parse", "-o", "json")
	require.NoError(t, err)

	var entries []struct {
		Parsed struct {
			Type   string `json:"type"`
			Fields struct {
				Names        []string `json:"names"`
				PhoneNumbers []string `json:"phone_numbers"`
				PhoneTypes   []string `json:"phone_types"`
			} `json:"fields"`
		} `json:"parsed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries), out)
	require.Len(t, entries, 1)
	assert.Equal(t, "ADDRESSBOOK", entries[0].Parsed.Type)
	assert.Equal(t, []string{"Ada Lovelace"}, entries[0].Parsed.Fields.Names)
	assert.Equal(t, []string{"+44 20 7946 0000"}, entries[0].Parsed.Fields.PhoneNumbers)
	assert.Equal(t, []string{"CELL"}, entries[0].Parsed.Fields.PhoneTypes)
}

func TestServeRejectsArgs(t *testing.T) {
	_, err := run(t, afero.NewMemMapFs(), "", "serve", "extra")
	assert.Error(t, err)
}
