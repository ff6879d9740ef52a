package image

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"

	"github.com/bodgit/unscramble/bitmap"
)

// Samples holds the brightness sample of every pixel of a picture, row
// major. It implements image.Image as 16-bit gray and the
// encoding.BinaryMarshaler and encoding.BinaryUnmarshaler interfaces.
type Samples struct {
	Pix  []uint16
	Rect image.Rectangle

	// Exhausted counts the walks that reached the ceiling before their
	// target. It is not part of the binary form.
	Exhausted int
}

// NewSamples returns an empty picture
func NewSamples() *Samples {
	return &Samples{
		Pix:  make([]uint16, numPixels),
		Rect: Bounds,
	}
}

func (s *Samples) offset(x, y int) int {
	return (y-s.Rect.Min.Y)*s.Rect.Dx() + x - s.Rect.Min.X
}

// SampleAt returns the raw sample at a point, 0 outside the picture
func (s *Samples) SampleAt(x, y int) int {
	if !image.Pt(x, y).In(s.Rect) {
		return 0
	}
	return int(s.Pix[s.offset(x, y)])
}

// BrightAt reports whether the pixel at a point is bright
func (s *Samples) BrightAt(x, y int) bool {
	return Bright(s.SampleAt(x, y))
}

// ColorModel returns color.Gray16Model
func (s *Samples) ColorModel() color.Model {
	return color.Gray16Model
}

// Bounds returns the picture bounds
func (s *Samples) Bounds() image.Rectangle {
	return s.Rect
}

// At returns the sample scaled to the 16-bit gray range
func (s *Samples) At(x, y int) color.Color {
	return color.Gray16{Y: uint16(s.SampleAt(x, y) * 0xffff / MaxSample)}
}

// Bitmap returns the two-level classification, bright pixels are set
func (s *Samples) Bitmap() *bitmap.Bitmap {
	b := bitmap.New(s.Rect)
	for y := s.Rect.Min.Y; y < s.Rect.Max.Y; y++ {
		for x := s.Rect.Min.X; x < s.Rect.Max.X; x++ {
			if s.BrightAt(x, y) {
				b.Set(x, y, true)
			}
		}
	}
	return b
}

// Paletted returns the two-level classification as an image using Palette
func (s *Samples) Paletted() *image.Paletted {
	m := image.NewPaletted(s.Rect, Palette)
	for y := s.Rect.Min.Y; y < s.Rect.Max.Y; y++ {
		for x := s.Rect.Min.X; x < s.Rect.Max.X; x++ {
			if s.BrightAt(x, y) {
				m.SetColorIndex(x, y, 1)
			}
		}
	}
	return m
}

// Gray returns the samples as an 8-bit gray image
func (s *Samples) Gray() *image.Gray {
	m := image.NewGray(s.Rect)
	for i, v := range s.Pix {
		m.Pix[i] = uint8(int(v) * 0xff / MaxSample)
	}
	return m
}

// MarshalBinary encodes the samples as little-endian 16-bit values
func (s *Samples) MarshalBinary() ([]byte, error) {
	if len(s.Pix) != numPixels {
		return nil, errWrongSize
	}
	b := make([]byte, len(s.Pix)*2)
	for i, v := range s.Pix {
		binary.LittleEndian.PutUint16(b[i*2:], v)
	}
	return b, nil
}

// UnmarshalBinary decodes samples written by MarshalBinary
func (s *Samples) UnmarshalBinary(b []byte) error {
	if len(b) != numPixels*2 {
		return errors.New("image: incorrect samples length")
	}
	s.Pix = make([]uint16, numPixels)
	s.Rect = Bounds
	for i := range s.Pix {
		v := binary.LittleEndian.Uint16(b[i*2:])
		if v > MaxSample {
			return errors.New("image: sample out of range")
		}
		s.Pix[i] = v
	}
	return nil
}
