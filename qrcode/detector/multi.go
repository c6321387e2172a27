package detector

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/internal"
)

const (
	maxModulesPerEdge   = 180
	minModulesPerEdge   = 9
	diffModSizePercent  = 0.05
	diffModSizeAbsolute = 0.5
)

// FindMulti scans the whole image without the single-symbol shortcuts and
// returns every plausible triple of confirmed finder patterns.
func (f *Finder) FindMulti() ([]FinderPatternInfo, error) {
	tryHarder := f.opts != nil && f.opts.TryHarder
	maxY, maxX := f.image.Height(), f.image.Width()
	skip := 3 * maxY / (4 * maxModules)
	if skip < minSkip || tryHarder {
		skip = minSkip
	}

	for y := skip - 1; y < maxY; y += skip {
		var counts [5]int
		state := 0
		for x := 0; x < maxX; x++ {
			if f.image.Get(x, y) {
				if state&1 == 1 {
					state++
				}
				counts[state]++
				continue
			}
			if state&1 == 1 {
				counts[state]++
				continue
			}
			if state != 4 {
				state++
				counts[state]++
				continue
			}
			if crossRatio(counts) && f.handleCenter(counts, y, x) {
				state = 0
				counts = [5]int{}
			} else {
				shift2(&counts)
				state = 3
			}
		}
		if crossRatio(counts) {
			f.handleCenter(counts, y, maxX)
		}
	}
	return f.selectMultiple()
}

// selectMultiple groups confirmed centers into triples whose module sizes
// agree and whose geometry is close to an isosceles right triangle.
func (f *Finder) selectMultiple() ([]FinderPatternInfo, error) {
	var cs []FinderPattern
	for _, p := range f.centers {
		if p.Count >= centerQuorum {
			cs = append(cs, p)
		}
	}
	if len(cs) < 3 {
		return nil, fmt.Errorf("qrcode: %d confirmed finder patterns: %w", len(cs), zxscan.ErrNotFound)
	}
	if len(cs) == 3 {
		return []FinderPatternInfo{orderInfo([3]FinderPattern{cs[0], cs[1], cs[2]})}, nil
	}

	// largest modules first, so the size checks below can stop early
	slices.SortFunc(cs, func(a, b FinderPattern) int { return cmp.Compare(b.ModuleSize, a.ModuleSize) })
	sizesDiffer := func(a, b FinderPattern) bool {
		rel := (a.ModuleSize - b.ModuleSize) / min(a.ModuleSize, b.ModuleSize)
		return math.Abs(a.ModuleSize-b.ModuleSize) > diffModSizeAbsolute && rel >= diffModSizePercent
	}

	var out []FinderPatternInfo
	for i := 0; i < len(cs)-2; i++ {
		p1 := cs[i]
		for j := i + 1; j < len(cs)-1; j++ {
			p2 := cs[j]
			if sizesDiffer(p1, p2) {
				break
			}
			for k := j + 1; k < len(cs); k++ {
				p3 := cs[k]
				if sizesDiffer(p2, p3) {
					break
				}
				info := orderInfo([3]FinderPattern{p1, p2, p3})
				if plausibleTriple(info, p1.ModuleSize) {
					out = append(out, info)
				}
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("qrcode: no plausible finder triple: %w", zxscan.ErrNotFound)
	}
	return out, nil
}

func plausibleTriple(info FinderPatternInfo, size float64) bool {
	dA := zxscan.Distance(info.TopLeft.ResultPoint, info.BottomLeft.ResultPoint)
	dB := zxscan.Distance(info.TopLeft.ResultPoint, info.TopRight.ResultPoint)
	dC := zxscan.Distance(info.TopRight.ResultPoint, info.BottomLeft.ResultPoint)

	modules := (dA + dB) / (2 * size)
	if modules > maxModulesPerEdge || modules < minModulesPerEdge {
		return false
	}
	// both legs the same length
	if math.Abs((dA-dB)/min(dA, dB)) >= 0.1 {
		return false
	}
	// and the hypotenuse where Pythagoras puts it
	hyp := math.Hypot(dA, dB)
	return math.Abs((dC-hyp)/min(dC, hyp)) < 0.1
}

// DetectMulti returns a sampled grid for every plausible symbol in the
// image. Triples that fail to sample are skipped.
func (d *Detector) DetectMulti() ([]*internal.DetectorResult, error) {
	infos, err := NewFinder(d.image, d.opts).FindMulti()
	if err != nil {
		return nil, err
	}
	var out []*internal.DetectorResult
	for _, info := range infos {
		if r, err := d.Process(info); err == nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("qrcode: no triple could be sampled: %w", zxscan.ErrNotFound)
	}
	return out, nil
}
