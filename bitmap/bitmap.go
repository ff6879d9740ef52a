/*
Package bitmap implements a compact two-level image, one bit per pixel, used
to hold the bright/dark classification of a reconstructed picture.
*/
package bitmap

import (
	"image"
	"image/color"
)

// Reader is a readable view into a bitmap.
type Reader interface {
	At(x, y int) bool
	Bounds() image.Rectangle
}

// Bitmap is a packed bitmap, rows are padded to a whole number of bytes.
type Bitmap struct {
	Bytes  []byte
	Stride int
	Rect   image.Rectangle
}

// New returns an empty bitmap covering r
func New(r image.Rectangle) *Bitmap {
	stride := (r.Dx() + 7) >> 3
	return &Bitmap{
		Bytes:  make([]byte, stride*r.Dy()),
		Stride: stride,
		Rect:   r,
	}
}

// Bounds returns the bounds of the bitmap
func (b *Bitmap) Bounds() image.Rectangle {
	return b.Rect
}

func (b *Bitmap) maskIndex(x, y int) (byte, int) {
	x, y = x-b.Rect.Min.X, y-b.Rect.Min.Y
	return 1 << uint(x&7), y*b.Stride + x>>3
}

// At returns whether the bit at a point is set. Points outside the bitmap
// are never set.
func (b *Bitmap) At(x, y int) bool {
	if !image.Pt(x, y).In(b.Rect) {
		return false
	}
	mask, i := b.maskIndex(x, y)
	return b.Bytes[i]&mask != 0
}

// Set sets or clears the bit at a point
func (b *Bitmap) Set(x, y int, bit bool) {
	if !image.Pt(x, y).In(b.Rect) {
		return
	}
	mask, i := b.maskIndex(x, y)
	if bit {
		b.Bytes[i] |= mask
	} else {
		b.Bytes[i] &^= mask
	}
}

// ToImage returns a two color image view of a bitmap, set bits are drawn as
// on and clear bits as off.
func ToImage(b Reader, on, off color.Color) image.Image {
	return &toImage{
		bitmap:  b,
		palette: color.Palette{on, off},
	}
}

type toImage struct {
	bitmap  Reader
	palette color.Palette
}

func (i *toImage) At(x, y int) color.Color {
	if i.bitmap.At(x, y) {
		return i.palette[0]
	}
	return i.palette[1]
}

func (i *toImage) Bounds() image.Rectangle {
	return i.bitmap.Bounds()
}

func (i *toImage) ColorModel() color.Model {
	return i.palette
}
