// Package internal holds intermediate results passed between the detector
// and decoder stages of the 2-D readers.
package internal

import (
	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

// DetectorResult is a sampled module grid and the image points it was
// anchored on.
type DetectorResult struct {
	Bits   *bitutil.BitMatrix
	Points []zxscan.ResultPoint
}

// DecoderResult is the decoded payload of one symbol before it becomes a
// zxscan.Result.
type DecoderResult struct {
	RawBytes        []byte
	NumBits         int
	Text            string
	ByteSegments    [][]byte
	ECLevel         string
	ErrorsCorrected int

	// Structured append fields are -1 when the symbol is standalone.
	SequenceNumber int
	Parity         int

	// SymbologyModifier is the digit of the AIM identifier, e.g. "]Q1".
	SymbologyModifier int

	// Mirrored is set when the grid had to be transposed to decode.
	Mirrored bool
}

// NewDecoderResult returns a standalone result with NumBits derived from raw.
func NewDecoderResult(raw []byte, text string, segments [][]byte, ecLevel string) *DecoderResult {
	return &DecoderResult{
		RawBytes:       raw,
		NumBits:        8 * len(raw),
		Text:           text,
		ByteSegments:   segments,
		ECLevel:        ecLevel,
		SequenceNumber: -1,
		Parity:         -1,
	}
}

// HasStructuredAppend reports whether the symbol is part of a sequence.
func (d *DecoderResult) HasStructuredAppend() bool {
	return d.SequenceNumber >= 0 && d.Parity >= 0
}

// Apply copies the decoder's metadata onto r.
func (d *DecoderResult) Apply(r *zxscan.Result) {
	if len(d.ByteSegments) > 0 {
		r.PutMetadata(zxscan.MetadataByteSegments, d.ByteSegments)
	}
	if d.ECLevel != "" {
		r.PutMetadata(zxscan.MetadataErrorCorrectionLevel, d.ECLevel)
	}
	r.PutMetadata(zxscan.MetadataErrorsCorrected, d.ErrorsCorrected)
	if d.HasStructuredAppend() {
		r.PutMetadata(zxscan.MetadataStructuredAppendSequence, d.SequenceNumber)
		r.PutMetadata(zxscan.MetadataStructuredAppendParity, d.Parity)
	}
}
