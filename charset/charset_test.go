package charset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuess(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		hint string
		want string
	}{
		{"ascii", []byte("hello"), "", "ISO-8859-1"},
		{"utf8", []byte("héllo"), "", "UTF-8"},
		{"latin1", []byte{'c', 'a', 'f', 0xE9}, "", "ISO-8859-1"},
		{"shift jis kanji", []byte{0x93, 0xFA, 0x96, 0x7B, 0x8C, 0xEA}, "", "Shift_JIS"},
		{"utf16 bom", []byte{0xFE, 0xFF, 0x00, 0x41}, "", "UTF-16BE"},
		{"hint wins", []byte("héllo"), "windows-1252", "windows-1252"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Guess(tt.in, tt.hint))
		})
	}
}

func TestByValue(t *testing.T) {
	e, err := ByValue(3)
	require.NoError(t, err)
	assert.Equal(t, "ISO-8859-1", e.Name)

	e, err = ByValue(26)
	require.NoError(t, err)
	assert.Equal(t, "UTF-8", e.Name)

	_, err = ByValue(14)
	assert.ErrorIs(t, err, ErrUnknownECI)
	_, err = ByValue(-1)
	assert.ErrorIs(t, err, ErrUnknownECI)
}

func TestDecode(t *testing.T) {
	s, err := Decode([]byte{'c', 'a', 'f', 0xE9}, "ISO-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "café", s)

	s, err = Decode([]byte{0x93, 0xFA, 0x96, 0x7B}, "SJIS")
	require.NoError(t, err)
	assert.Equal(t, "日本", s)

	s, err = Decode([]byte("plain"), "no-such-charset")
	require.NoError(t, err)
	assert.Equal(t, "plain", s)
}
