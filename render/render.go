/*
Package render writes two-level bitmaps as terminal text.
*/
package render

import (
	"bufio"
	"image"
	"io"

	"github.com/bodgit/unscramble/bitmap"
)

const (
	// Bright is written for every set pixel by Text
	Bright = '.'
	// Dark is written for every clear pixel by Text
	Dark = 'o'

	brailleBase = 0x2800
)

// Text writes one line per row of b, top to bottom, with a character per
// pixel.
func Text(w io.Writer, b bitmap.Reader) error {
	bw := bufio.NewWriter(w)
	r := b.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := byte(Dark)
			if b.At(x, y) {
				c = Bright
			}
			if err := bw.WriteByte(c); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// brailleAt returns the braille glyph covering the 2x4 grid of pixels with
// its top left corner at sp. Set pixels are raised dots.
func brailleAt(b bitmap.Reader, sp image.Point) rune {
	var r rune
	if b.At(sp.X, sp.Y) {
		r |= 0x1
	}
	if b.At(sp.X, sp.Y+1) {
		r |= 0x2
	}
	if b.At(sp.X, sp.Y+2) {
		r |= 0x4
	}
	if b.At(sp.X, sp.Y+3) {
		r |= 0x40
	}
	if b.At(sp.X+1, sp.Y) {
		r |= 0x8
	}
	if b.At(sp.X+1, sp.Y+1) {
		r |= 0x10
	}
	if b.At(sp.X+1, sp.Y+2) {
		r |= 0x20
	}
	if b.At(sp.X+1, sp.Y+3) {
		r |= 0x80
	}
	return brailleBase + r
}

// Braille writes b using braille glyphs, each covering two columns and four
// rows of pixels, so a 512 by 512 bitmap fits in 256 columns and 128 lines.
// Cells with no raised dots are written as a blank braille glyph to keep
// the columns aligned.
func Braille(w io.Writer, b bitmap.Reader) error {
	bw := bufio.NewWriter(w)
	r := b.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y += 4 {
		for x := r.Min.X; x < r.Max.X; x += 2 {
			if _, err := bw.WriteRune(brailleAt(b, image.Pt(x, y))); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
