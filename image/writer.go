package image

import (
	"bufio"
	"image"
	"image/color"
	"io"

	"github.com/bodgit/unscramble/walker"
	"github.com/ericpauley/go-quantize/quantize"
)

const (
	maxRun     = 0x7f
	recordSize = 4

	// A record is only reached if the cursor is at or below the ceiling
	// when the walk gets to it
	maxRecords = walker.Ceiling/recordSize + 1
)

var (
	darkSample   = [sampleBytes]byte{0x00, 0x00, 0x00}
	brightSample = [sampleBytes]byte{0xff, 0xff, 0xff}
)

type run struct {
	length int
	bright bool
}

type encoder struct {
	w *bufio.Writer
}

func luma(c color.Color) uint16 {
	return color.Gray16Model.Convert(c).(color.Gray16).Y
}

// twoLevel reduces m to a bright/dark decision per pixel. Images with more
// than two colors are quantized down to two, the lighter of which is bright.
func twoLevel(m image.Image) func(x, y int) bool {
	b := m.Bounds()

	p, _ := m.ColorModel().(color.Palette)
	if p == nil || len(p) > 2 {
		q := quantize.MedianCutQuantizer{}
		p = q.Quantize(make(color.Palette, 0, 2), m)
	}

	bright := make([]bool, len(p))
	switch len(p) {
	case 1:
		bright[0] = luma(p[0]) >= 0x8000
	case 2:
		if luma(p[0]) > luma(p[1]) {
			bright[0] = true
		} else {
			bright[1] = true
		}
	}

	return func(x, y int) bool {
		return bright[p.Index(m.At(b.Min.X+x, b.Min.Y+y))]
	}
}

// runs walks the picture in payload order and collapses neighbouring pixels
// of the same level into runs no longer than a single flagged step.
func runs(bright func(x, y int) bool) ([]run, error) {
	var out []run
	for pos := 0; pos < numPixels; pos++ {
		p := Unpermute(image.Pt(pos&(gridSize-1), pos>>gridShift))
		v := bright(p.X, p.Y)
		if n := len(out); n > 0 && out[n-1].bright == v && out[n-1].length < maxRun {
			out[n-1].length++
			continue
		}
		if len(out) == maxRecords {
			return nil, ErrTooComplex
		}
		out = append(out, run{length: 1, bright: v})
	}
	return out, nil
}

func (e *encoder) encode(rs []run) error {
	// Zeroed header and the bytes skipped by the walk
	if _, err := e.w.Write(make([]byte, HeaderSize+walkSkip)); err != nil {
		return err
	}

	var record [recordSize]byte
	for _, r := range rs {
		record[0] = walker.Flagged(uint8(r.length))
		if r.bright {
			copy(record[1:], brightSample[:])
		} else {
			copy(record[1:], darkSample[:])
		}
		if _, err := e.w.Write(record[:]); err != nil {
			return err
		}
	}

	return e.w.Flush()
}

// Encode writes the Image m to w in the scrambled format. The image must be
// 512 by 512 pixels; anything with more than two colors is reduced to two.
// Each run of equal pixels, in payload order, is written as a flagged step
// followed by the three sample bytes a walk for any pixel in the run lands
// on.
func Encode(w io.Writer, m image.Image) error {
	b := m.Bounds()
	if b.Dx() != gridSize || b.Dy() != gridSize {
		return errWrongSize
	}

	rs, err := runs(twoLevel(m))
	if err != nil {
		return err
	}

	e := encoder{w: bufio.NewWriter(w)}

	return e.encode(rs)
}
