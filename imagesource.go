package zxscan

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/ericlevine/zxscan/bitutil"
)

// PixelLayout describes how a raw pixel buffer is packed.
type PixelLayout int

const (
	LayoutGray8 PixelLayout = iota
	LayoutRGB24
	LayoutBGR24
	LayoutRGB32  // R G B X
	LayoutBGRA32 // B G R A
)

// BytesPerPixel returns the pixel stride for the layout.
func (l PixelLayout) BytesPerPixel() int {
	switch l {
	case LayoutRGB24, LayoutBGR24:
		return 3
	case LayoutRGB32, LayoutBGRA32:
		return 4
	}
	return 1
}

func luma(r, g, b uint32) byte {
	return byte((306*r + 601*g + 117*b + 0x200) >> 10)
}

// PlanarSource holds a luminance plane and a window into it. It supports
// cropping and counter-clockwise rotation without losing pixels.
type PlanarSource struct {
	lum        []byte
	dataWidth  int
	dataHeight int
	left, top  int
	width      int
	height     int
}

// NewPlanarSource wraps an existing luminance plane. lum must hold at least
// width*height samples.
func NewPlanarSource(lum []byte, width, height int) (*PlanarSource, error) {
	if width < 1 || height < 1 || len(lum) < width*height {
		return nil, fmt.Errorf("luminance plane %dx%d with %d samples: %w", width, height, len(lum), ErrInvalidArgument)
	}
	return &PlanarSource{lum: lum, dataWidth: width, dataHeight: height, width: width, height: height}, nil
}

// NewImageSource converts img to luminance. Fully transparent pixels read
// as white.
func NewImageSource(img image.Image) *PlanarSource {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	lum := make([]byte, w*h)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			off := (b.Min.Y+y-src.Rect.Min.Y)*src.Stride + (b.Min.X - src.Rect.Min.X)
			copy(lum[y*w:(y+1)*w], src.Pix[off:off+w])
		}
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[(b.Min.Y+y-src.Rect.Min.Y)*src.Stride:]
			for x := 0; x < w; x++ {
				p := row[(b.Min.X+x-src.Rect.Min.X)*4:]
				if p[3] == 0 {
					lum[y*w+x] = 0xFF
					continue
				}
				lum[y*w+x] = luma(uint32(p[0]), uint32(p[1]), uint32(p[2]))
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				if a == 0 {
					lum[y*w+x] = 0xFF
					continue
				}
				lum[y*w+x] = luma(r>>8, g>>8, bl>>8)
			}
		}
	}
	return &PlanarSource{lum: lum, dataWidth: w, dataHeight: h, width: w, height: h}
}

// NewRawSource converts a packed pixel buffer. stride is the byte length of
// one row; zero means tightly packed.
func NewRawSource(pix []byte, width, height, stride int, layout PixelLayout) (*PlanarSource, error) {
	bpp := layout.BytesPerPixel()
	if stride == 0 {
		stride = width * bpp
	}
	if width < 1 || height < 1 || stride < width*bpp || len(pix) < stride*(height-1)+width*bpp {
		return nil, fmt.Errorf("%dx%d buffer of %d bytes (stride %d): %w", width, height, len(pix), stride, ErrInvalidArgument)
	}
	lum := make([]byte, width*height)
	for y := 0; y < height; y++ {
		row := pix[y*stride:]
		for x := 0; x < width; x++ {
			p := row[x*bpp:]
			var v byte
			switch layout {
			case LayoutGray8:
				v = p[0]
			case LayoutRGB24, LayoutRGB32:
				v = luma(uint32(p[0]), uint32(p[1]), uint32(p[2]))
			case LayoutBGR24:
				v = luma(uint32(p[2]), uint32(p[1]), uint32(p[0]))
			case LayoutBGRA32:
				if p[3] == 0 {
					v = 0xFF
				} else {
					v = luma(uint32(p[2]), uint32(p[1]), uint32(p[0]))
				}
			}
			lum[y*width+x] = v
		}
	}
	return &PlanarSource{lum: lum, dataWidth: width, dataHeight: height, width: width, height: height}, nil
}

func (s *PlanarSource) Width() int  { return s.width }
func (s *PlanarSource) Height() int { return s.height }

func (s *PlanarSource) Row(y int, row []byte) []byte {
	if y < 0 || y >= s.height {
		panic(fmt.Sprintf("zxscan: row %d outside [0,%d)", y, s.height))
	}
	if len(row) < s.width {
		row = make([]byte, s.width)
	}
	off := (y+s.top)*s.dataWidth + s.left
	copy(row, s.lum[off:off+s.width])
	return row
}

func (s *PlanarSource) Matrix() []byte {
	if s.width == s.dataWidth && s.height == s.dataHeight {
		return s.lum[:s.width*s.height]
	}
	m := make([]byte, s.width*s.height)
	for y := 0; y < s.height; y++ {
		s.Row(y, m[y*s.width:(y+1)*s.width])
	}
	return m
}

// Crop returns a window onto the same plane.
func (s *PlanarSource) Crop(left, top, width, height int) (LuminanceSource, error) {
	if left < 0 || top < 0 || width < 1 || height < 1 || left+width > s.width || top+height > s.height {
		return nil, fmt.Errorf("crop %d,%d %dx%d outside %dx%d: %w", left, top, width, height, s.width, s.height, ErrInvalidArgument)
	}
	c := *s
	c.left += left
	c.top += top
	c.width, c.height = width, height
	return &c, nil
}

// RotateCounterClockwise returns a new source turned 90 degrees
// counter-clockwise. Pixel (x, y) moves to (y, width-1-x).
func (s *PlanarSource) RotateCounterClockwise() LuminanceSource {
	w, h := s.height, s.width
	out := make([]byte, w*h)
	row := make([]byte, s.width)
	for y := 0; y < s.height; y++ {
		row = s.Row(y, row)
		for x, v := range row {
			out[(s.width-1-x)*w+y] = v
		}
	}
	return &PlanarSource{lum: out, dataWidth: w, dataHeight: h, width: w, height: h}
}

// Invert returns a source whose samples are 255 minus those of s.
func (s *PlanarSource) Invert() LuminanceSource {
	return &InvertedSource{src: s}
}

// InvertedSource wraps a LuminanceSource and inverts every sample.
type InvertedSource struct {
	src LuminanceSource
}

// NewInvertedSource wraps src. Inverting an InvertedSource unwraps it.
func NewInvertedSource(src LuminanceSource) LuminanceSource {
	if inv, ok := src.(*InvertedSource); ok {
		return inv.src
	}
	return &InvertedSource{src: src}
}

func (s *InvertedSource) Width() int  { return s.src.Width() }
func (s *InvertedSource) Height() int { return s.src.Height() }

func (s *InvertedSource) Row(y int, row []byte) []byte {
	row = s.src.Row(y, row)
	for i := range s.src.Width() {
		row[i] = 255 - row[i]
	}
	return row
}

func (s *InvertedSource) Matrix() []byte {
	src := s.src.Matrix()
	out := make([]byte, len(src))
	for i, v := range src {
		out[i] = 255 - v
	}
	return out
}

// Crop crops the wrapped source, if it can, and keeps the inversion.
func (s *InvertedSource) Crop(left, top, width, height int) (LuminanceSource, error) {
	c, ok := s.src.(CroppableSource)
	if !ok {
		return nil, fmt.Errorf("luminance source cannot crop: %w", ErrInvalidArgument)
	}
	inner, err := c.Crop(left, top, width, height)
	if err != nil {
		return nil, err
	}
	return &InvertedSource{src: inner}, nil
}

// RotateCounterClockwise rotates the wrapped source, if it can, and keeps
// the inversion.
func (s *InvertedSource) RotateCounterClockwise() LuminanceSource {
	r, ok := s.src.(RotatableSource)
	if !ok {
		return nil
	}
	return &InvertedSource{src: r.RotateCounterClockwise()}
}

// Rotate turns src counter-clockwise by quarter turns. Sources that cannot
// rotate are first copied into a PlanarSource.
func Rotate(src LuminanceSource, quarterTurns int) LuminanceSource {
	quarterTurns = ((quarterTurns % 4) + 4) % 4
	for range quarterTurns {
		r, ok := src.(RotatableSource)
		var next LuminanceSource
		if ok {
			next = r.RotateCounterClockwise()
		}
		if next == nil {
			p, _ := NewPlanarSource(src.Matrix(), src.Width(), src.Height())
			next = p.RotateCounterClockwise()
		}
		src = next
	}
	return src
}

// ToImage renders a luminance source as a greyscale image.
func ToImage(src LuminanceSource) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, src.Width(), src.Height()))
	for y := 0; y < src.Height(); y++ {
		src.Row(y, img.Pix[y*img.Stride:y*img.Stride+src.Width()])
	}
	return img
}

// BitMatrixToImage renders set bits as black and unset bits as white,
// scaling each module to a scale×scale square.
func BitMatrixToImage(m *bitutil.BitMatrix, scale int) *image.Gray {
	scale = max(scale, 1)
	img := image.NewGray(image.Rect(0, 0, m.Width()*scale, m.Height()*scale))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	black := image.NewUniform(color.Black)
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			if m.Get(x, y) {
				r := image.Rect(x*scale, y*scale, (x+1)*scale, (y+1)*scale)
				draw.Draw(img, r, black, image.Point{}, draw.Src)
			}
		}
	}
	return img
}
