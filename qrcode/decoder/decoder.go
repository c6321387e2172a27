package decoder

import (
	"errors"
	"fmt"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
	"github.com/ericlevine/zxscan/internal"
	"github.com/ericlevine/zxscan/reedsolomon"
)

// Decoder turns a sampled QR Code grid into text.
type Decoder struct {
	rs *reedsolomon.Decoder
}

func New() *Decoder {
	return &Decoder{rs: reedsolomon.NewDecoder(reedsolomon.QRField)}
}

// Decode reads grid, which is modified in place. If the straight reading
// fails the grid is read again as its mirror image; when that also fails
// the error from the straight reading is returned. Uncorrectable blocks
// yield zxscan.ErrChecksum and structural problems zxscan.ErrFormat.
func (d *Decoder) Decode(grid *bitutil.BitMatrix, charsetHint string) (*internal.DecoderResult, error) {
	p, err := newGridParser(grid)
	if err != nil {
		return nil, err
	}
	res, err := d.decode(p, charsetHint)
	if err == nil {
		return res, nil
	}

	p.remask()
	p.setMirrored(true)
	if _, verr := p.readVersion(); verr != nil {
		return nil, err
	}
	if _, ferr := p.readFormat(); ferr != nil {
		return nil, err
	}
	// fields were read through the mirror; the codeword walk needs the
	// grid itself transposed
	grid.Transpose()
	p.mirrored = false
	res, merr := d.decode(p, charsetHint)
	if merr != nil {
		return nil, err
	}
	res.Mirrored = true
	return res, nil
}

func (d *Decoder) decode(p *gridParser, hint string) (*internal.DecoderResult, error) {
	v, err := p.readVersion()
	if err != nil {
		return nil, err
	}
	fi, err := p.readFormat()
	if err != nil {
		return nil, err
	}
	raw, err := p.readCodewords()
	if err != nil {
		return nil, err
	}
	blocks, err := splitBlocks(raw, v, fi.Level)
	if err != nil {
		return nil, formatErr("%v", err)
	}

	data := make([]byte, 0, v.Blocks(fi.Level).DataCodewords())
	corrected := 0
	for i, b := range blocks {
		n, err := d.correct(b)
		if err != nil {
			return nil, fmt.Errorf("qrcode: block %d of %d: %w", i+1, len(blocks), err)
		}
		corrected += n
		data = append(data, b.codewords[:b.data]...)
	}

	res, err := decodeStream(data, v, fi.Level, hint)
	if err != nil {
		return nil, err
	}
	res.ErrorsCorrected = corrected
	return res, nil
}

func (d *Decoder) correct(b block) (int, error) {
	ints := make([]int, len(b.codewords))
	for i, c := range b.codewords {
		ints[i] = int(c)
	}
	n, err := d.rs.Decode(ints, len(b.codewords)-b.data)
	if err != nil {
		if errors.Is(err, reedsolomon.ErrUncorrectable) {
			return 0, fmt.Errorf("%v: %w", err, zxscan.ErrChecksum)
		}
		return 0, err
	}
	for i := 0; i < b.data; i++ {
		b.codewords[i] = byte(ints[i])
	}
	return n, nil
}
