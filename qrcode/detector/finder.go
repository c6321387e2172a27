package detector

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/bitutil"
)

const (
	centerQuorum = 2
	minSkip      = 3
	maxModules   = 97 // version 20 and lower; larger symbols need TryHarder
)

// FinderPattern is a candidate center of one of the three square position
// markers. Count says how many scan rows confirmed it.
type FinderPattern struct {
	zxscan.ResultPoint
	ModuleSize float64
	Count      int
}

func (p FinderPattern) aboutEquals(size, y, x float64) bool {
	if math.Abs(y-p.Y) > size || math.Abs(x-p.X) > size {
		return false
	}
	d := math.Abs(size - p.ModuleSize)
	return d <= 1 || d <= p.ModuleSize
}

// combine folds another sighting into the running average.
func (p FinderPattern) combine(y, x, size float64) FinderPattern {
	n := float64(p.Count)
	c := float64(p.Count + 1)
	return FinderPattern{
		ResultPoint: zxscan.ResultPoint{X: (n*p.X + x) / c, Y: (n*p.Y + y) / c},
		ModuleSize:  (n*p.ModuleSize + size) / c,
		Count:       p.Count + 1,
	}
}

// FinderPatternInfo is an ordered triple of finder patterns.
type FinderPatternInfo struct {
	BottomLeft, TopLeft, TopRight FinderPattern
}

func orderInfo(p [3]FinderPattern) FinderPatternInfo {
	ordered := zxscan.OrderBestPatterns([3]zxscan.ResultPoint{p[0].ResultPoint, p[1].ResultPoint, p[2].ResultPoint})
	pick := func(rp zxscan.ResultPoint) FinderPattern {
		for _, fp := range p {
			if fp.ResultPoint == rp {
				return fp
			}
		}
		return p[0]
	}
	return FinderPatternInfo{BottomLeft: pick(ordered[0]), TopLeft: pick(ordered[1]), TopRight: pick(ordered[2])}
}

// Finder scans a binary image row by row for the 1:1:3:1:1 run ratio of a
// finder pattern and confirms each hit vertically, horizontally and along
// the diagonal.
type Finder struct {
	image      *bitutil.BitMatrix
	opts       *zxscan.DecodeOptions
	centers    []FinderPattern
	hasSkipped bool
}

// NewFinder returns a Finder over image. opts may be nil; its
// ResultPointCallback sees every confirmed candidate.
func NewFinder(image *bitutil.BitMatrix, opts *zxscan.DecodeOptions) *Finder {
	return &Finder{image: image, opts: opts}
}

// Candidates returns the centers collected by the last scan.
func (f *Finder) Candidates() []FinderPattern { return f.centers }

// Find returns the best triple of finder patterns in the image.
func (f *Finder) Find() (FinderPatternInfo, error) {
	tryHarder := f.opts != nil && f.opts.TryHarder
	maxY, maxX := f.image.Height(), f.image.Width()
	skip := 3 * maxY / (4 * maxModules)
	if skip < minSkip || tryHarder {
		skip = minSkip
	}

	done := false
	for y := skip - 1; y < maxY && !done; y += skip {
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
			if !crossRatio(counts) || !f.handleCenter(counts, y, x) {
				shift2(&counts)
				state = 3
				continue
			}
			// confirmed; rows are denser from here on
			skip = 2
			if f.hasSkipped {
				done = f.multiplyConfirmed()
			} else if rs := f.rowSkip(); rs > counts[2] {
				// jump past the rows the known pattern pair already covers
				y += rs - counts[2] - skip
				x = maxX - 1
			}
			state = 0
			counts = [5]int{}
		}
		if crossRatio(counts) && f.handleCenter(counts, y, maxX) {
			skip = counts[0]
			if f.hasSkipped {
				done = f.multiplyConfirmed()
			}
		}
	}

	best, err := f.selectBest()
	if err != nil {
		return FinderPatternInfo{}, err
	}
	return orderInfo(best), nil
}

func shift2(c *[5]int) {
	c[0], c[1], c[2], c[3], c[4] = c[2], c[3], c[4], 1, 0
}

func total(c [5]int) int {
	return c[0] + c[1] + c[2] + c[3] + c[4]
}

// crossRatio checks 1:1:3:1:1 with half a module of slack per run.
func crossRatio(c [5]int) bool {
	return finderRatio(c, 2)
}

// diagonalRatio is crossRatio with the looser slack diagonal runs need.
func diagonalRatio(c [5]int) bool {
	return finderRatio(c, 1.333)
}

func finderRatio(c [5]int, slackDiv float64) bool {
	n := 0
	for _, v := range c {
		if v == 0 {
			return false
		}
		n += v
	}
	if n < 7 {
		return false
	}
	size := float64(n) / 7
	slack := size / slackDiv
	return math.Abs(size-float64(c[0])) < slack &&
		math.Abs(size-float64(c[1])) < slack &&
		math.Abs(3*size-float64(c[2])) < 3*slack &&
		math.Abs(size-float64(c[3])) < slack &&
		math.Abs(size-float64(c[4])) < slack
}

func centerFromEnd(c [5]int, end int) float64 {
	return float64(end-c[4]-c[3]) - float64(c[2])/2
}

// crossCheckDiagonal walks up-left and down-right from the center and
// checks the runs still look like a finder pattern.
func (f *Finder) crossCheckDiagonal(cy, cx int) bool {
	var c [5]int
	img := f.image
	i := 0
	for cy >= i && cx >= i && img.Get(cx-i, cy-i) {
		c[2]++
		i++
	}
	if c[2] == 0 {
		return false
	}
	for cy >= i && cx >= i && !img.Get(cx-i, cy-i) {
		c[1]++
		i++
	}
	if c[1] == 0 {
		return false
	}
	for cy >= i && cx >= i && img.Get(cx-i, cy-i) {
		c[0]++
		i++
	}
	if c[0] == 0 {
		return false
	}

	maxY, maxX := img.Height(), img.Width()
	i = 1
	for cy+i < maxY && cx+i < maxX && img.Get(cx+i, cy+i) {
		c[2]++
		i++
	}
	for cy+i < maxY && cx+i < maxX && !img.Get(cx+i, cy+i) {
		c[3]++
		i++
	}
	if c[3] == 0 {
		return false
	}
	for cy+i < maxY && cx+i < maxX && img.Get(cx+i, cy+i) {
		c[4]++
		i++
	}
	if c[4] == 0 {
		return false
	}
	return diagonalRatio(c)
}

// crossCheck counts the five runs through (x, y) along one axis and returns
// the refined center coordinate on that axis, or NaN. vertical selects the
// column through x; otherwise the row through y is used. tolerance bounds
// how far the run total may stray from origTotal, in fifths.
func (f *Finder) crossCheck(x, y int, vertical bool, maxCount, origTotal, tolerance int) float64 {
	get := func(i int) bool { return f.image.Get(i, y) }
	start, limit := x, f.image.Width()
	if vertical {
		get = func(i int) bool { return f.image.Get(x, i) }
		start, limit = y, f.image.Height()
	}

	var c [5]int
	i := start
	for i >= 0 && get(i) {
		c[2]++
		i--
	}
	if i < 0 {
		return math.NaN()
	}
	for i >= 0 && !get(i) && c[1] <= maxCount {
		c[1]++
		i--
	}
	if i < 0 || c[1] > maxCount {
		return math.NaN()
	}
	for i >= 0 && get(i) && c[0] <= maxCount {
		c[0]++
		i--
	}
	if c[0] > maxCount {
		return math.NaN()
	}

	i = start + 1
	for i < limit && get(i) {
		c[2]++
		i++
	}
	if i == limit {
		return math.NaN()
	}
	for i < limit && !get(i) && c[3] < maxCount {
		c[3]++
		i++
	}
	if i == limit || c[3] >= maxCount {
		return math.NaN()
	}
	for i < limit && get(i) && c[4] < maxCount {
		c[4]++
		i++
	}
	if c[4] >= maxCount {
		return math.NaN()
	}

	if 5*abs(total(c)-origTotal) >= tolerance*origTotal {
		return math.NaN()
	}
	if !crossRatio(c) {
		return math.NaN()
	}
	return centerFromEnd(c, i)
}

// handleCenter confirms a horizontal hit ending at column x of row y and
// records it. It reports whether the hit was confirmed.
func (f *Finder) handleCenter(c [5]int, y, x int) bool {
	n := total(c)
	cx := centerFromEnd(c, x)
	cy := f.crossCheck(int(cx), y, true, c[2], n, 2)
	if math.IsNaN(cy) {
		return false
	}
	cx = f.crossCheck(int(cx), int(cy), false, c[2], n, 1)
	if math.IsNaN(cx) || !f.crossCheckDiagonal(int(cy), int(cx)) {
		return false
	}

	size := float64(n) / 7
	f.opts.FoundPoint(zxscan.ResultPoint{X: cx, Y: cy})
	for i, p := range f.centers {
		if p.aboutEquals(size, cy, cx) {
			f.centers[i] = p.combine(cy, cx, size)
			return true
		}
	}
	f.centers = append(f.centers, FinderPattern{
		ResultPoint: zxscan.ResultPoint{X: cx, Y: cy},
		ModuleSize:  size,
		Count:       1,
	})
	return true
}

// rowSkip estimates how many rows can be skipped once two patterns are
// confirmed: the third one cannot lie above the first two.
func (f *Finder) rowSkip() int {
	if len(f.centers) <= 1 {
		return 0
	}
	var first *FinderPattern
	for i := range f.centers {
		p := &f.centers[i]
		if p.Count < centerQuorum {
			continue
		}
		if first == nil {
			first = p
			continue
		}
		f.hasSkipped = true
		return int(math.Abs(first.X-p.X)-math.Abs(first.Y-p.Y)) / 2
	}
	return 0
}

// multiplyConfirmed reports whether three or more centers reached quorum
// and their module sizes agree within 5%.
func (f *Finder) multiplyConfirmed() bool {
	confirmed := 0
	sum := 0.0
	for _, p := range f.centers {
		if p.Count >= centerQuorum {
			confirmed++
			sum += p.ModuleSize
		}
	}
	if confirmed < 3 {
		return false
	}
	avg := sum / float64(len(f.centers))
	dev := 0.0
	for _, p := range f.centers {
		dev += math.Abs(p.ModuleSize - avg)
	}
	return dev <= 0.05*sum
}

// selectBest picks the three candidates whose module sizes are within 40%
// of each other and that come closest to an isosceles right triangle.
func (f *Finder) selectBest() ([3]FinderPattern, error) {
	var best [3]FinderPattern
	if len(f.centers) < 3 {
		return best, fmt.Errorf("qrcode: %d finder candidates: %w", len(f.centers), zxscan.ErrNotFound)
	}
	cs := slices.Clone(f.centers)
	slices.SortFunc(cs, func(a, b FinderPattern) int { return cmp.Compare(a.ModuleSize, b.ModuleSize) })

	distortion := math.MaxFloat64
	for i := 0; i < len(cs)-2; i++ {
		pi := cs[i]
		for j := i + 1; j < len(cs)-1; j++ {
			pj := cs[j]
			dij := squaredDistance(pi, pj)
			for k := j + 1; k < len(cs); k++ {
				pk := cs[k]
				if pk.ModuleSize > pi.ModuleSize*1.4 {
					continue
				}
				s := []float64{dij, squaredDistance(pj, pk), squaredDistance(pi, pk)}
				slices.Sort(s)
				// legs equal and hypotenuse squared twice a leg squared
				d := math.Abs(s[2]-2*s[1]) + math.Abs(s[2]-2*s[0])
				if d < distortion {
					distortion = d
					best = [3]FinderPattern{pi, pj, pk}
				}
			}
		}
	}
	if distortion == math.MaxFloat64 {
		return best, fmt.Errorf("qrcode: no consistent finder triple: %w", zxscan.ErrNotFound)
	}
	return best, nil
}

func squaredDistance(a, b FinderPattern) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
