package reedsolomon

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// qrV1M is the single block of a version 1-M symbol: 16 data codewords
// followed by 10 check codewords.
var qrV1M = []int{
	0x10, 0x20, 0x0C, 0x56, 0x61, 0x80, 0xEC, 0x11,
	0xEC, 0x11, 0xEC, 0x11, 0xEC, 0x11, 0xEC, 0x11,
	0xA5, 0x24, 0xD4, 0xC1, 0xED, 0x36, 0xC7, 0x87,
	0x2C, 0x55,
}

func TestEncodeKnownBlock(t *testing.T) {
	block := slices.Clone(qrV1M)
	clear(block[16:])
	NewEncoder(QRField).Encode(block, 10)
	assert.Equal(t, qrV1M, block)
}

func TestDecodeCleanBlock(t *testing.T) {
	block := slices.Clone(qrV1M)
	n, err := NewDecoder(QRField).Decode(block, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, qrV1M, block)
}

func TestDecodeRepairsUpToHalfTheCheckWords(t *testing.T) {
	block := slices.Clone(qrV1M)
	for _, i := range []int{0, 5, 11, 17, 25} {
		block[i] ^= 0x5A
	}
	n, err := NewDecoder(QRField).Decode(block, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, qrV1M, block)
}

func TestDecodeTooManyErrors(t *testing.T) {
	block := slices.Clone(qrV1M)
	for i := range block {
		block[i] ^= 0xFF
	}
	_, err := NewDecoder(QRField).Decode(block, 10)
	assert.ErrorIs(t, err, ErrUncorrectable)
}

func TestFieldInverse(t *testing.T) {
	for a := 1; a < QRField.Size(); a++ {
		require.Equal(t, 1, QRField.Mul(a, QRField.Inv(a)), "a=%d", a)
		require.Equal(t, a, QRField.Exp(QRField.Log(a)), "a=%d", a)
	}
	assert.Zero(t, QRField.Mul(0, 77))
	assert.Panics(t, func() { QRField.Inv(0) })
}

func TestPolyDivmod(t *testing.T) {
	f := QRField
	a := newPoly([]int{3, 0, 7, 1, 9})
	b := newPoly([]int{1, 4})
	q, r := a.divmod(f, b)
	assert.Less(t, r.degree(), b.degree())
	assert.Equal(t, a, q.mul(f, b).add(r))
}

func TestRoundTripProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("errors within budget are corrected", prop.ForAll(
		func(seed int64, dataLen, ecCount int) bool {
			rng := rand.New(rand.NewSource(seed))
			block := make([]int, dataLen+ecCount)
			for i := range dataLen {
				block[i] = rng.Intn(256)
			}
			NewEncoder(QRField).Encode(block, ecCount)
			want := slices.Clone(block)

			for _, pos := range rng.Perm(len(block))[:ecCount/2] {
				block[pos] ^= 1 + rng.Intn(255)
			}
			if _, err := NewDecoder(QRField).Decode(block, ecCount); err != nil {
				return false
			}
			return slices.Equal(want, block)
		},
		gen.Int64(),
		gen.IntRange(1, 60),
		gen.IntRange(2, 30),
	))

	properties.TestingRun(t)
}
