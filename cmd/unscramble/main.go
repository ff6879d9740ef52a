package main

import (
	"context"
	"errors"
	"fmt"
	stdimage "image"
	"image/color"
	"image/gif"
	_ "image/jpeg"
	"image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/unscramble"
	"github.com/bodgit/unscramble/bitmap"
	"github.com/bodgit/unscramble/image"
	"github.com/bodgit/unscramble/render"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/nfnt/resize"
	"github.com/urfave/cli/v2"
)

const defaultDB = "unscramble.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newUnscrambler(c *cli.Context) (*unscramble.Unscrambler, error) {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}

	return unscramble.New(c.String("db"), logger, image.Options{
		Strict:  c.Bool("strict"),
		Workers: c.Int("workers"),
		Logger:  logger,
	})
}

func decode(c *cli.Context) (*image.Samples, error) {
	u, err := newUnscrambler(c)
	if err != nil {
		return nil, err
	}
	defer u.Close()

	return u.Decode(context.Background(), c.Args().First())
}

// threshold turns a scaled copy of the samples back into a bitmap. The
// 16-bit gray level is rounded back to the nearest sample so pixels at the
// threshold keep their level.
func threshold(m stdimage.Image) *bitmap.Bitmap {
	r := m.Bounds()
	b := bitmap.New(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g := int(color.Gray16Model.Convert(m.At(x, y)).(color.Gray16).Y)
			b.Set(x, y, image.Bright((g*image.MaxSample+0x7fff)/0xffff))
		}
	}
	return b
}

// exportImage returns the picture to save along with the number of colors
// it should be reduced to for formats that need a palette.
func exportImage(s *image.Samples, gray bool, size uint) (stdimage.Image, int) {
	m := bitmap.ToImage(s.Bitmap(), image.Palette[1], image.Palette[0])
	colors := len(image.Palette)
	interp := resize.NearestNeighbor
	if gray {
		m = s.Gray()
		colors = 256
		interp = resize.Lanczos3
	}

	if size > 0 {
		m = resize.Resize(size, size, m, interp)
	}

	return m, colors
}

func renderAction(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	s, err := decode(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	var b bitmap.Reader = s.Bitmap()
	if w := c.Uint("width"); w > 0 {
		b = threshold(resize.Resize(w, 0, s, resize.Bilinear))
	}

	fn := render.Text
	if c.Bool("braille") {
		fn = render.Braille
	}

	if err := fn(os.Stdout, b); err != nil {
		return cli.NewExitError(err, 1)
	}

	return nil
}

func exportAction(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	s, err := decode(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	m, colors := exportImage(s, c.Bool("gray"), c.Uint("size"))

	output := c.Args().Get(1)

	f, err := os.Create(output)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(output)) {
	case ".png":
		err = png.Encode(f, m)
	case ".gif":
		err = gif.Encode(f, m, &gif.Options{
			NumColors: colors,
			Quantizer: quantize.MedianCutQuantizer{},
		})
	default:
		err = fmt.Errorf("unsupported output format %q", filepath.Ext(output))
	}
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	if err := f.Close(); err != nil {
		return cli.NewExitError(err, 1)
	}

	return nil
}

func scrambleAction(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	in, err := os.Open(c.Args().First())
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer in.Close()

	m, _, err := stdimage.Decode(in)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	if b := m.Bounds(); b.Dx() != image.Bounds.Dx() || b.Dy() != image.Bounds.Dy() {
		m = resize.Resize(uint(image.Bounds.Dx()), uint(image.Bounds.Dy()), m, resize.Lanczos3)
	}

	out, err := os.Create(c.Args().Get(1))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer out.Close()

	if err := image.Encode(out, m); err != nil {
		if errors.Is(err, image.ErrTooComplex) {
			err = fmt.Errorf("%w, try an image with larger areas of one color", err)
		}
		return cli.NewExitError(err, 1)
	}

	if err := out.Close(); err != nil {
		return cli.NewExitError(err, 1)
	}

	return nil
}

func scanAction(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	u, err := newUnscrambler(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer u.Close()

	if err := u.Scan(c.Args().First()); err != nil {
		return cli.NewExitError(err, 1)
	}

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "unscramble"
	app.Usage = "Scrambled picture decoding utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"UNSCRAMBLE_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to cache database, empty to disable",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
		&cli.BoolFlag{
			Name:    "strict",
			EnvVars: []string{"UNSCRAMBLE_STRICT"},
			Usage:   "fail on walks that never reach their target",
		},
		&cli.IntFlag{
			Name:    "workers",
			EnvVars: []string{"UNSCRAMBLE_WORKERS"},
			Usage:   "rows decoded concurrently, defaults to the number of CPUs",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "render",
			Usage:     "Decode a payload file and print it as text",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "braille",
					Usage: "use braille glyphs, 2x4 pixels per character",
				},
				&cli.UintFlag{
					Name:  "width",
					Usage: "scale to this many pixels wide first",
				},
			},
			Action: renderAction,
		},
		{
			Name:      "export",
			Usage:     "Decode a payload file and save it as a PNG or GIF",
			ArgsUsage: "FILE OUTPUT",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "gray",
					Usage: "keep the raw samples instead of two levels",
				},
				&cli.UintFlag{
					Name:  "size",
					Usage: "scale to this many pixels square",
				},
			},
			Action: exportAction,
		},
		{
			Name:      "scramble",
			Usage:     "Encode an image as a payload file",
			ArgsUsage: "IMAGE OUTPUT",
			Action:    scrambleAction,
		},
		{
			Name:      "scan",
			Usage:     "Decode every payload file under a directory",
			ArgsUsage: "DIRECTORY",
			Action:    scanAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
