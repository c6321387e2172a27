package zxscan

import "slices"

// DecodeOptions carries the decode hints. A nil *DecodeOptions means
// defaults everywhere.
type DecodeOptions struct {
	// TryHarder trades speed for accuracy: more rows for 1-D readers, denser
	// finder scans for 2-D readers, and rotation retries in the facade.
	TryHarder bool

	// PureBarcode says the image holds a single unrotated symbol with a
	// white border and nothing else.
	PureBarcode bool

	// PossibleFormats restricts which symbologies are attempted. Empty means
	// all of them.
	PossibleFormats []Format

	// CharacterSet overrides text decoding of byte segments, by IANA name.
	CharacterSet string

	// AllowedLengths lists the payload lengths accepted by readers of
	// length-ambiguous symbologies such as ITF.
	AllowedLengths []int

	// AssumeCode39CheckDigit verifies and strips the Code 39 mod-43 check
	// character.
	AssumeCode39CheckDigit bool

	// Code39Extended decodes Code 39 full-ASCII shift pairs such as "+A"
	// into the characters they stand for.
	Code39Extended bool

	// AlsoInverted retries on the inverted image (white bars on black).
	AlsoInverted bool

	// ResultPointCallback, when set, sees every candidate anchor point a
	// detector considers.
	ResultPointCallback ResultPointCallback
}

// Clone returns a deep copy of o. It returns nil for a nil receiver.
func (o *DecodeOptions) Clone() *DecodeOptions {
	if o == nil {
		return nil
	}
	c := *o
	c.PossibleFormats = slices.Clone(o.PossibleFormats)
	c.AllowedLengths = slices.Clone(o.AllowedLengths)
	return &c
}

// Allows reports whether f is permitted by PossibleFormats.
func (o *DecodeOptions) Allows(f Format) bool {
	return o == nil || len(o.PossibleFormats) == 0 || slices.Contains(o.PossibleFormats, f)
}

// AllowsAny reports whether at least one of fs is permitted.
func (o *DecodeOptions) AllowsAny(fs ...Format) bool {
	for _, f := range fs {
		if o.Allows(f) {
			return true
		}
	}
	return false
}

// FoundPoint forwards p to the callback, if any.
func (o *DecodeOptions) FoundPoint(p ResultPoint) {
	if o != nil && o.ResultPointCallback != nil {
		o.ResultPointCallback(p)
	}
}

// Reader decodes one symbol from a BinaryBitmap.
type Reader interface {
	// Decode returns ErrNotFound, ErrFormat or ErrChecksum (possibly wrapped)
	// when no symbol could be decoded.
	Decode(image *BinaryBitmap, opts *DecodeOptions) (*Result, error)

	// Reset drops any state kept between calls.
	Reset()
}

// MultipleReader decodes every symbol it can find in one image.
type MultipleReader interface {
	DecodeMultiple(image *BinaryBitmap, opts *DecodeOptions) ([]*Result, error)
}
