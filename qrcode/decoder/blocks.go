package decoder

import "fmt"

// block is one Reed-Solomon block: data codewords followed by check
// codewords.
type block struct {
	data      int
	codewords []byte
}

// splitBlocks undoes the interleaving of the raw codeword stream. Data
// codewords are interleaved first, with the longer blocks (which come last)
// carrying one extra, then the check codewords.
func splitBlocks(raw []byte, v *Version, level ECLevel) ([]block, error) {
	if len(raw) != v.TotalCodewords {
		return nil, fmt.Errorf("qrcode: %d codewords for version %d", len(raw), v.Number)
	}
	eb := v.Blocks(level)
	blocks := make([]block, 0, eb.NumBlocks())
	for _, g := range eb.Groups {
		for range g.Count {
			blocks = append(blocks, block{data: g.Data, codewords: make([]byte, g.Data+eb.ECPerBlock)})
		}
	}

	shortLen := len(blocks[0].codewords)
	longStart := len(blocks)
	for longStart > 0 && len(blocks[longStart-1].codewords) != shortLen {
		longStart--
	}
	shortData := shortLen - eb.ECPerBlock

	pos := 0
	next := func() byte {
		b := raw[pos]
		pos++
		return b
	}
	for i := 0; i < shortData; i++ {
		for j := range blocks {
			blocks[j].codewords[i] = next()
		}
	}
	for j := longStart; j < len(blocks); j++ {
		blocks[j].codewords[shortData] = next()
	}
	for i := shortData; i < shortLen; i++ {
		for j := range blocks {
			k := i
			if j >= longStart {
				k++
			}
			blocks[j].codewords[k] = next()
		}
	}
	return blocks, nil
}
