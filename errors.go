package zxscan

import "errors"

var (
	// ErrNotFound means no symbol was located. Retrying with other hints or
	// another rotation may help.
	ErrNotFound = errors.New("barcode not found")

	// ErrFormat means a symbol was located but its structure is malformed,
	// for example unreadable format information or a bad guard pattern.
	ErrFormat = errors.New("barcode format error")

	// ErrChecksum means the symbol was structurally sound but its payload
	// failed an integrity check (Reed-Solomon, mod 10, mod 43).
	ErrChecksum = errors.New("barcode checksum error")

	// ErrInvalidArgument reports a programmer error such as an empty image
	// buffer or a writer asked for the wrong format.
	ErrInvalidArgument = errors.New("invalid argument")
)

// IsDecodeFailure reports whether err is one of the recoverable decode
// failures (not found, format, checksum).
func IsDecodeFailure(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrFormat) || errors.Is(err, ErrChecksum)
}

// errorRank orders decode failures from least to most informative.
func errorRank(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrChecksum):
		return 4
	case errors.Is(err, ErrFormat):
		return 3
	case errors.Is(err, ErrNotFound):
		return 2
	}
	return 1
}

// MostSpecific returns whichever of a and b says more about why decoding
// failed: a checksum failure beats a format error, which beats not found.
// Ties keep a.
func MostSpecific(a, b error) error {
	if errorRank(b) > errorRank(a) {
		return b
	}
	return a
}
