package qrcode

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/qrcode/detector"
)

// MultiReader decodes every QR Code in an image. Symbols belonging to a
// structured-append sequence are joined into one result per sequence.
type MultiReader struct {
	Reader
}

// NewMultiReader returns a MultiReader.
func NewMultiReader() *MultiReader {
	return &MultiReader{Reader: *NewReader()}
}

// DecodeMultiple returns all symbols that decoded. Candidates that fail to
// decode are skipped; ErrNotFound is returned when none succeed.
func (r *MultiReader) DecodeMultiple(image *zxscan.BinaryBitmap, opts *zxscan.DecodeOptions) ([]*zxscan.Result, error) {
	matrix, err := image.BlackMatrix()
	if err != nil {
		return nil, err
	}
	dets, err := detector.New(matrix, opts).DetectMulti()
	if err != nil {
		return nil, err
	}

	var results []*zxscan.Result
	for _, det := range dets {
		dr, err := r.dec.Decode(det.Bits, charsetHint(opts))
		if err != nil {
			continue
		}
		res := newResult(dr, det.Points)
		if !duplicate(results, res) {
			results = append(results, res)
		}
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("qrcode: none of %d candidates decoded: %w", len(dets), zxscan.ErrNotFound)
	}
	return JoinStructuredAppend(results), nil
}

// duplicate reports whether res repeats a symbol already in results, which
// happens when overlapping finder triples land on the same code.
func duplicate(results []*zxscan.Result, res *zxscan.Result) bool {
	for _, o := range results {
		if o.Text != res.Text || len(o.Points) == 0 || len(res.Points) == 0 {
			continue
		}
		if zxscan.Distance(o.Points[1], res.Points[1]) < 1 {
			return true
		}
	}
	return false
}

// JoinStructuredAppend concatenates the parts of each structured-append
// sequence in sequence order. Parts are grouped by parity; standalone
// results pass through unchanged and come first.
func JoinStructuredAppend(results []*zxscan.Result) []*zxscan.Result {
	var out []*zxscan.Result
	groups := map[int][]*zxscan.Result{}
	var parities []int
	for _, res := range results {
		p, ok := res.Metadata[zxscan.MetadataStructuredAppendParity].(int)
		if !ok {
			out = append(out, res)
			continue
		}
		if _, seen := groups[p]; !seen {
			parities = append(parities, p)
		}
		groups[p] = append(groups[p], res)
	}

	for _, p := range parities {
		parts := groups[p]
		slices.SortStableFunc(parts, func(a, b *zxscan.Result) int {
			sa, _ := a.Metadata[zxscan.MetadataStructuredAppendSequence].(int)
			sb, _ := b.Metadata[zxscan.MetadataStructuredAppendSequence].(int)
			return cmp.Compare(sa, sb)
		})
		var (
			text     strings.Builder
			raw      []byte
			segments []byte
		)
		for _, part := range parts {
			text.WriteString(part.Text)
			raw = append(raw, part.RawBytes...)
			if segs, ok := part.Metadata[zxscan.MetadataByteSegments].([][]byte); ok {
				for _, s := range segs {
					segments = append(segments, s...)
				}
			}
		}
		joined := zxscan.NewResult(text.String(), raw, nil, zxscan.FormatQRCode)
		if len(segments) > 0 {
			joined.PutMetadata(zxscan.MetadataByteSegments, [][]byte{segments})
		}
		out = append(out, joined)
	}
	return out
}
