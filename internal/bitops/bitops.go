// Package bitops has the bit-level primitives used to perturb inputs and
// measure how far two ciphertexts have drifted apart.
package bitops

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrBitIndexOutOfRange is matched by every RangeError.
var ErrBitIndexOutOfRange = errors.New("bit index out of range")

// RangeError reports a bit index outside a buffer of Bits bits.
type RangeError struct {
	Index int
	Bits  int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("bit index %d out of range [0, %d)", e.Index, e.Bits)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrBitIndexOutOfRange
}

// FlipBit returns a copy of buf with one bit inverted. Bit n lives in byte
// n/8 at position n%8, counting from the least significant bit.
func FlipBit(buf []byte, n int) ([]byte, error) {
	if n < 0 || n >= 8*len(buf) {
		return nil, &RangeError{Index: n, Bits: 8 * len(buf)}
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	out[n/8] ^= 1 << (n % 8)
	return out, nil
}

// HammingDistance counts the differing bits of a and b. Only the common
// prefix is compared when the lengths differ.
func HammingDistance(a, b []byte) int {
	n := min(len(a), len(b))
	d := 0
	for i := range n {
		d += bits.OnesCount8(a[i] ^ b[i])
	}
	return d
}

// Percent is the Hamming distance between a and ref as a percentage of the
// bit length of ref. An empty ref gives 0.
func Percent(a, ref []byte) float64 {
	if len(ref) == 0 {
		return 0
	}
	return 100 * float64(HammingDistance(a, ref)) / float64(8*len(ref))
}
