// Package decoder reads QR Code module grids: format and version
// information, codeword extraction, error correction and segment decoding.
package decoder

import (
	"fmt"
	"math/bits"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

// ECLevel is a QR error correction level, ordered L, M, Q, H.
type ECLevel int

const (
	ECLevelL ECLevel = iota
	ECLevelM
	ECLevelQ
	ECLevelH
)

func (l ECLevel) String() string {
	if l >= ECLevelL && l <= ECLevelH {
		return "LMQH"[l : l+1]
	}
	return "?"
}

// Bits returns the two-bit code stored in format information.
func (l ECLevel) Bits() int {
	return [...]int{1, 0, 3, 2}[l]
}

// ecLevelForBits is the inverse of ECLevel.Bits.
var ecLevelForBits = [4]ECLevel{ECLevelM, ECLevelL, ECLevelH, ECLevelQ}

const formatMask = 0x5412

// FormatInfo is the decoded 5-bit format field.
type FormatInfo struct {
	Level ECLevel
	Mask  int
}

// formatCodes lists the 32 valid masked 15-bit format words, indexed by the
// 5-bit value they carry.
var formatCodes = [32]int{
	0x5412, 0x5125, 0x5E7C, 0x5B4B, 0x45F9, 0x40CE, 0x4F97, 0x4AA0,
	0x77C4, 0x72F3, 0x7DAA, 0x789D, 0x662F, 0x6318, 0x6C41, 0x6976,
	0x1689, 0x13BE, 0x1CE7, 0x19D0, 0x0762, 0x0255, 0x0D0C, 0x083B,
	0x355F, 0x3068, 0x3F31, 0x3A06, 0x24B4, 0x2183, 0x2EDA, 0x2BED,
}

// decodeFormat matches the two copies of format information against every
// valid code and accepts the nearest within three bit errors. Some encoders
// forget to mask the field, so the unmasked reading is tried as well.
func decodeFormat(a, b int) (FormatInfo, bool) {
	if fi, ok := nearestFormat(a, b); ok {
		return fi, true
	}
	return nearestFormat(a^formatMask, b^formatMask)
}

func nearestFormat(a, b int) (FormatInfo, bool) {
	best, bestDist := 0, 32
	for v, code := range formatCodes {
		if code == a || code == b {
			return formatFromBits(v), true
		}
		if d := bits.OnesCount(uint(a ^ code)); d < bestDist {
			best, bestDist = v, d
		}
		if a != b {
			if d := bits.OnesCount(uint(b ^ code)); d < bestDist {
				best, bestDist = v, d
			}
		}
	}
	if bestDist <= 3 {
		return formatFromBits(best), true
	}
	return FormatInfo{}, false
}

func formatFromBits(v int) FormatInfo {
	return FormatInfo{Level: ecLevelForBits[(v>>3)&3], Mask: v & 7}
}

// masked reports whether data mask m inverts the module at row i, column j.
func masked(m, i, j int) bool {
	switch m {
	case 0:
		return (i+j)&1 == 0
	case 1:
		return i&1 == 0
	case 2:
		return j%3 == 0
	case 3:
		return (i+j)%3 == 0
	case 4:
		return (i/2+j/3)&1 == 0
	case 5:
		return i*j%6 == 0
	case 6:
		return i*j%6 < 3
	case 7:
		return (i+j+i*j%3)&1 == 0
	}
	panic(fmt.Sprintf("qrcode: data mask %d", m))
}

// unmask toggles every module selected by mask m. Applying it twice is a
// no-op.
func unmask(grid *bitutil.BitMatrix, m int) {
	n := grid.Height()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if masked(m, i, j) {
				grid.Flip(j, i)
			}
		}
	}
}

func formatErr(format string, args ...any) error {
	return fmt.Errorf("qrcode: "+format+": %w", append(args, zxscan.ErrFormat)...)
}
