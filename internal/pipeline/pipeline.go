// Package pipeline holds the error plumbing shared by the worker pipelines.
package pipeline

import (
	"context"
	"sync"
)

// Wait drains every error channel and returns the first non-nil error seen.
// It returns early on the first error, callers then cancel ctx so the
// remaining stages wind down. If ctx is cancelled before the stages finish
// its error is returned.
func Wait(ctx context.Context, errs ...<-chan error) error {
	for err := range Merge(ctx, errs...) {
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Merge fans in the error channels. The returned channel is closed once all
// of them are, or once ctx is cancelled.
func Merge(ctx context.Context, cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			defer wg.Done()
			for {
				select {
				case err, ok := <-c:
					if !ok {
						return
					}
					select {
					case out <- err:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
