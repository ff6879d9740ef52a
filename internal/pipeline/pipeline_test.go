package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func errChan(errs ...error) <-chan error {
	c := make(chan error, len(errs))
	for _, err := range errs {
		c <- err
	}
	close(c)
	return c
}

func TestWait(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, Wait(ctx))
	assert.Nil(t, Wait(ctx, errChan(), errChan(nil)))

	err := errors.New("boom")
	assert.Equal(t, err, Wait(ctx, errChan(), errChan(nil, err)))
}

func TestWait_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Never closed, so only cancellation ends the wait
	stuck := make(chan error)
	assert.Equal(t, context.Canceled, Wait(ctx, stuck, errChan()))
}

func TestMerge(t *testing.T) {
	e1, e2 := errors.New("one"), errors.New("two")

	var got []error
	for err := range Merge(context.Background(), errChan(e1), errChan(e2), errChan()) {
		got = append(got, err)
	}
	assert.ElementsMatch(t, []error{e1, e2}, got)
}
