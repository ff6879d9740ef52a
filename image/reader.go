package image

import (
	"context"
	"fmt"
	"image"
	"io"
	"io/ioutil"
	"log"
	"runtime"
	"sync/atomic"

	"github.com/bodgit/unscramble/internal/pipeline"
	"github.com/bodgit/unscramble/walker"
)

// Options control how a payload is reconstructed. The zero value is
// permissive, uses a worker per CPU and discards log output.
type Options struct {
	// Strict treats a walk that reaches the ceiling before its target as
	// an error rather than sampling wherever it stopped
	Strict bool

	// Workers is the number of rows decoded concurrently
	Workers int

	Logger *log.Logger
}

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// sample returns the brightness sample for display point p and whether the
// walk ran into the ceiling.
func sample(payload []byte, p image.Point) (int, bool, error) {
	if !p.In(Bounds) {
		return 0, false, errOutside
	}
	if len(payload) < walkSkip {
		return 0, false, ErrCorruptPayload
	}

	offset, err := walker.Locate(payload[walkSkip:], Target(Permute(p)))
	exhausted := err == walker.ErrExhausted
	if err != nil && !exhausted {
		return 0, false, fmt.Errorf("%w: pixel %v: %w", ErrCorruptPayload, p, err)
	}

	// The offset is relative to the walk, but is sampled from the payload
	if offset+sampleBytes > len(payload) {
		return 0, exhausted, fmt.Errorf("%w: pixel %v: sample at %#x", ErrCorruptPayload, p, offset)
	}

	var v int
	for _, b := range payload[offset : offset+sampleBytes] {
		v += int(b)
	}
	return v, exhausted, nil
}

// Sample returns the brightness sample for the display point p. If strict is
// set a walk that reaches the ceiling returns walker.ErrExhausted.
func Sample(payload []byte, p image.Point, strict bool) (int, error) {
	v, exhausted, err := sample(payload, p)
	if err != nil {
		return 0, err
	}
	if exhausted && strict {
		return 0, fmt.Errorf("image: pixel %v: %w", p, walker.ErrExhausted)
	}
	return v, nil
}

type reconstructor struct {
	payload   []byte
	strict    bool
	samples   *Samples
	exhausted int64
}

func (r *reconstructor) rows(ctx context.Context) <-chan int {
	out := make(chan int)
	go func() {
		defer close(out)
		for y := 0; y < gridSize; y++ {
			select {
			case out <- y:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (r *reconstructor) rowWorker(ctx context.Context, in <-chan int) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for y := range in {
			row := r.samples.Pix[y*gridSize : (y+1)*gridSize]
			for x := range row {
				v, exhausted, err := sample(r.payload, image.Pt(x, y))
				if err != nil {
					errc <- err
					return
				}
				if exhausted {
					if r.strict {
						errc <- fmt.Errorf("image: pixel %v: %w", image.Pt(x, y), walker.ErrExhausted)
						return
					}
					atomic.AddInt64(&r.exhausted, 1)
				}
				row[x] = uint16(v)
			}
		}
	}()
	return errc
}

// Reconstruct decodes every pixel of the picture held in payload, one row
// per task spread over a pool of workers. The first error cancels the
// remaining rows.
func Reconstruct(ctx context.Context, payload []byte, opts Options) (*Samples, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	r := &reconstructor{
		payload: payload,
		strict:  opts.Strict,
		samples: NewSamples(),
	}

	rows := r.rows(ctx)

	errcList := make([]<-chan error, 0, workers)
	for i := 0; i < workers; i++ {
		errcList = append(errcList, r.rowWorker(ctx, rows))
	}

	// A cancelled parent can stop the rows early without any worker failing
	if err := pipeline.Wait(ctx, errcList...); err != nil {
		return nil, err
	}

	r.samples.Exhausted = int(atomic.LoadInt64(&r.exhausted))
	if n := r.samples.Exhausted; n > 0 {
		logger.Printf("%d of %d walks reached the ceiling\n", n, numPixels)
	}

	return r.samples, nil
}

type decoder struct {
	r       io.Reader
	opts    Options
	samples *Samples

	header [HeaderSize]byte
}

func (d *decoder) decode(ctx context.Context, r io.Reader, configOnly bool) error {
	d.r = r

	if err := readFull(d.r, d.header[:]); err != nil {
		if err != io.ErrUnexpectedEOF {
			return err
		}
		return ErrShortHeader
	}

	if configOnly {
		return nil
	}

	payload, err := ioutil.ReadAll(d.r)
	if err != nil {
		return err
	}

	d.samples, err = Reconstruct(ctx, payload, d.opts)
	return err
}

// DecodeSamples reads a picture from r, including the header, and returns
// the brightness sample of every pixel.
func DecodeSamples(ctx context.Context, r io.Reader, opts Options) (*Samples, error) {
	d := decoder{opts: opts}
	if err := d.decode(ctx, r, false); err != nil {
		return nil, err
	}
	return d.samples, nil
}

// Decode reads a picture from r and returns it as a two color
// *image.Paletted using Palette.
func Decode(r io.Reader) (image.Image, error) {
	s, err := DecodeSamples(context.Background(), r, Options{})
	if err != nil {
		return nil, err
	}
	return s.Paletted(), nil
}

// DecodeConfig returns the color model and dimensions of a picture without
// decoding the payload.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var d decoder
	if err := d.decode(context.Background(), r, true); err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: Palette,
		Width:      gridSize,
		Height:     gridSize,
	}, nil
}
