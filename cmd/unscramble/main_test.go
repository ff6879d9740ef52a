package main

import (
	stdimage "image"
	"image/color"
	"testing"

	"github.com/bodgit/unscramble/image"
	"github.com/stretchr/testify/assert"
)

func edgeSamples() *image.Samples {
	s := image.NewSamples()
	s.Pix[0] = 0xc7
	s.Pix[1] = 0xc8
	s.Pix[2] = image.MaxSample
	s.Pix[513] = 0xc8
	return s
}

func TestThreshold(t *testing.T) {
	s := edgeSamples()
	b := threshold(s)

	assert.Equal(t, s.Bitmap(), b)
	assert.False(t, b.At(0, 0))
	assert.True(t, b.At(1, 0))
	assert.True(t, b.At(2, 0))
	assert.True(t, b.At(1, 1))
}

func TestExportImage(t *testing.T) {
	s := edgeSamples()

	m, colors := exportImage(s, false, 0)
	assert.Equal(t, 2, colors)
	assert.Equal(t, image.Bounds, m.Bounds())
	assert.Equal(t, color.White, m.At(1, 0))
	assert.Equal(t, color.Black, m.At(0, 0))

	m, colors = exportImage(s, true, 0)
	assert.Equal(t, 256, colors)
	g, ok := m.(*stdimage.Gray)
	assert.True(t, ok)
	assert.Equal(t, uint8(0xff), g.GrayAt(2, 0).Y)

	m, _ = exportImage(s, false, 64)
	assert.Equal(t, stdimage.Rect(0, 0, 64, 64), m.Bounds())
}
