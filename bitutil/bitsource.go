package bitutil

import "fmt"

// BitSource reads fields of arbitrary bit width from a byte slice, most
// significant bit of the first byte first.
type BitSource struct {
	data []byte
	pos  int // absolute bit position
}

// NewBitSource wraps data. The slice is not copied.
func NewBitSource(data []byte) *BitSource {
	return &BitSource{data: data}
}

// ByteOffset returns the index of the byte holding the next unread bit.
func (s *BitSource) ByteOffset() int { return s.pos / 8 }

// BitOffset returns the position of the next unread bit within its byte.
func (s *BitSource) BitOffset() int { return s.pos % 8 }

// Available returns the number of unread bits.
func (s *BitSource) Available() int {
	return 8*len(s.data) - s.pos
}

// ReadBits consumes n bits (1..32) and returns them right-aligned.
func (s *BitSource) ReadBits(n int) (int, error) {
	if n < 1 || n > 32 || n > s.Available() {
		return 0, fmt.Errorf("bitutil: cannot read %d bits with %d available", n, s.Available())
	}
	v := 0
	for n > 0 {
		b := s.data[s.pos/8]
		off := s.pos % 8
		take := min(8-off, n)
		chunk := int(b>>uint(8-off-take)) & (1<<uint(take) - 1)
		v = v<<uint(take) | chunk
		s.pos += take
		n -= take
	}
	return v, nil
}
