/*
Package walker implements the keyed stride sequence used to locate pixel
samples within a scrambled payload.

Each byte visited by the walk is XORed with Key and read as a signed 8-bit
step. A negative step has its top bit cleared and moves the cursor on by four
bytes, otherwise the cursor moves on by step*3+1 bytes. Every step is added to
a running sum and the walk stops as soon as the sum passes the target, or the
cursor passes Ceiling.
*/
package walker

import "errors"

const (
	// Key is XORed with every step byte
	Key = 0x55

	// Ceiling is the largest cursor offset at which another step is taken
	Ceiling = 0x44b89

	flagStride = 4
)

var (
	// ErrExhausted is returned when the cursor passes Ceiling before the
	// sum passes the target. The offset returned alongside it is still the
	// last cursor position.
	ErrExhausted = errors.New("walker: ceiling reached before target")

	// ErrTruncated is returned when the walk needs a step byte beyond the
	// end of the buffer.
	ErrTruncated = errors.New("walker: step beyond end of buffer")
)

// Step decodes a single step byte, returning the value added to the running
// sum and the number of bytes the cursor advances.
func Step(b byte) (int8, int) {
	step := int8(b ^ Key)
	if step < 0 {
		step = int8(uint8(step) - 0x80) // clears the msb
		return step, flagStride
	}
	return step, int(step)*3 + 1
}

// Walker is a single walk over a buffer towards a target.
type Walker struct {
	buf    []byte
	target uint32

	idx   int
	sum   uint32
	steps int
	err   error
}

// New returns a Walker positioned at the start of buf
func New(buf []byte, target uint32) *Walker {
	return &Walker{
		buf:    buf,
		target: target,
	}
}

// Next takes one step. It returns false once the walk has finished, after
// which Err reports whether it finished by passing the target.
func (w *Walker) Next() bool {
	if w.err != nil || w.sum > w.target {
		return false
	}
	if w.idx > Ceiling {
		w.err = ErrExhausted
		return false
	}
	if w.idx >= len(w.buf) {
		w.err = ErrTruncated
		return false
	}

	step, n := Step(w.buf[w.idx])
	w.idx += n
	w.sum += uint32(step)
	w.steps++

	return true
}

// Offset returns the current cursor position
func (w *Walker) Offset() int {
	return w.idx
}

// Sum returns the running sum
func (w *Walker) Sum() uint32 {
	return w.sum
}

// Steps returns the number of steps taken so far
func (w *Walker) Steps() int {
	return w.steps
}

// Err returns the reason the walk stopped short of the target, if any
func (w *Walker) Err() error {
	return w.err
}

// Locate walks buf until the running sum passes target and returns the
// cursor offset at that point. On ErrExhausted the offset is still valid and
// is what a permissive decoder samples from.
func Locate(buf []byte, target uint32) (int, error) {
	w := New(buf, target)
	for w.Next() {
	}
	return w.Offset(), w.Err()
}

// Flagged returns the step byte that decodes to a flagged step of n, which
// adds n to the sum and always advances the cursor by four bytes. Only the
// low seven bits of n are kept.
func Flagged(n uint8) byte {
	return (n | 0x80) ^ Key
}
