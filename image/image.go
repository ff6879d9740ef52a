/*
Package image implements a decoder and encoder for a scrambled two-level
picture format.

The picture is 512 by 512 pixels, split into an 8 by 8 grid of 64 by 64
blocks whose rows and columns of blocks have been shuffled by a fixed
permutation. The file starts with a 0x425 byte header which is ignored,
everything after it is the payload.

A pixel is found by linearising its unshuffled coordinate into a target and
walking the payload, skipping its first three bytes, with the keyed stride
sequence implemented by package walker until the running sum passes the
target. The three payload bytes at the offset the walk finishes on are
summed; a sum above 0xc7 is a bright pixel, anything else is dark.
*/
package image

import (
	"errors"
	"image"
	"image/color"
)

const (
	// HeaderSize is the number of bytes preceding the payload
	HeaderSize = 0x425

	walkSkip    = 3
	sampleBytes = 3
	blockShift  = 6
	blockSize   = 1 << blockShift
	blockMask   = blockSize - 1
	numBlocks   = 8
	gridShift   = 9
	gridSize    = 1 << gridShift
	numPixels   = gridSize * gridSize
	threshold   = 0xc7

	// MaxSample is the largest possible brightness sample
	MaxSample = 0xff * sampleBytes
)

var (
	// ErrShortHeader is returned when the input ends before the payload
	ErrShortHeader = errors.New("image: not enough header data")

	// ErrCorruptPayload is returned when a walk or a sample needs bytes
	// beyond the end of the payload
	ErrCorruptPayload = errors.New("image: corrupt payload")

	// ErrTooComplex is returned by Encode when the picture needs more runs
	// than a walk can reach
	ErrTooComplex = errors.New("image: too many runs to encode")

	errWrongSize = errors.New("image: image is wrong size")
	errOutside   = errors.New("image: point outside picture")
)

var (
	// Bounds is the fixed size of every picture
	Bounds = image.Rect(0, 0, gridSize, gridSize)

	// Palette is used for decoded pictures, dark pixels are index 0
	Palette = color.Palette{color.Black, color.White}
)

// Block rows and columns in display order, mapped to their position in the
// payload. Never modified.
var permutation = [numBlocks]int{5, 1, 4, 7, 0, 2, 6, 3}

var inverse [numBlocks]int

func init() {
	var seen [numBlocks]bool
	for i, p := range permutation {
		if p < 0 || p >= numBlocks || seen[p] {
			panic("image: block permutation is not a bijection")
		}
		seen[p] = true
		inverse[p] = i
	}
}

func permute(table *[numBlocks]int, p image.Point) image.Point {
	return image.Point{
		X: table[p.X>>blockShift]<<blockShift | p.X&blockMask,
		Y: table[p.Y>>blockShift]<<blockShift | p.Y&blockMask,
	}
}

// Permute maps a display point to its position in the payload. The offset
// within the block is preserved.
func Permute(p image.Point) image.Point {
	return permute(&permutation, p)
}

// Unpermute is the inverse of Permute
func Unpermute(p image.Point) image.Point {
	return permute(&inverse, p)
}

// Target linearises a payload point into the walk target
func Target(p image.Point) uint32 {
	return uint32(p.Y<<gridShift + p.X)
}

// Bright reports whether a brightness sample is above the threshold
func Bright(sample int) bool {
	return sample > threshold
}
