package unscramble

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/bodgit/unscramble/image"
	"github.com/bodgit/unscramble/internal/pipeline"
	"github.com/bodgit/unscramble/render"
	"github.com/bodgit/unscramble/walker"
)

const (
	scanWorkers = 4

	// TextExt is appended to each payload file to name its rendering
	TextExt = ".txt"
)

func isPayload(file string) bool {
	switch filepath.Ext(file) {
	case ".bin", ".dat", ".zst":
		return true
	}
	return filepath.Base(file) == "data"
}

func (u *Unscrambler) findFiles(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories
			if info.Name()[0] == '.' && file != base {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() || !isPayload(file) {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

// corrupt reports whether err only concerns the contents of one payload, in
// which case the scan carries on.
func corrupt(err error) bool {
	return errors.Is(err, image.ErrCorruptPayload) || errors.Is(err, image.ErrShortHeader) || errors.Is(err, walker.ErrExhausted)
}

func (u *Unscrambler) writeText(file string, s *image.Samples) error {
	f, err := os.Create(file + TextExt)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := render.Text(f, s.Bitmap()); err != nil {
		return err
	}

	return f.Close()
}

func (u *Unscrambler) fileWorker(ctx context.Context, in <-chan string) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			s, err := u.Decode(ctx, file)
			if err != nil {
				if !corrupt(err) {
					errc <- err
					return
				}
				u.logger.Printf("Skipping \"%s\": %s\n", file, err)
				continue
			}

			if err := u.writeText(file, s); err != nil {
				errc <- err
				return
			}
			u.logger.Printf("Decoded \"%s\"\n", file)
		}
	}()
	return errc, nil
}

// Scan walks path looking for payload files and writes a text rendering
// next to each one.
func (u *Unscrambler) Scan(path string) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := u.findFiles(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < scanWorkers; i++ {
		errc, err := u.fileWorker(ctx, files)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return pipeline.Wait(ctx, errcList...)
}
