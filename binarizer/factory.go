package binarizer

import (
	"fmt"
	"strings"

	"github.com/ericlevine/zxscan"
)

// Factory builds a binarizer over a luminance source.
type Factory func(zxscan.LuminanceSource) zxscan.Binarizer

// HybridFactory builds Hybrid binarizers.
func HybridFactory(source zxscan.LuminanceSource) zxscan.Binarizer { return NewHybrid(source) }

// HistogramFactory builds GlobalHistogram binarizers.
func HistogramFactory(source zxscan.LuminanceSource) zxscan.Binarizer {
	return NewGlobalHistogram(source)
}

// Lookup returns the factory for "hybrid" or "histogram". An empty name
// selects hybrid.
func Lookup(name string) (Factory, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "hybrid":
		return HybridFactory, nil
	case "histogram", "global", "globalhistogram":
		return HistogramFactory, nil
	}
	return nil, fmt.Errorf("binarizer: unknown binarizer %q: %w", name, zxscan.ErrInvalidArgument)
}
