// Package safeconv provides safe integer type conversion functions.
package safeconv

import (
	"errors"
	"fmt"
	"math"
)

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// MaxUint32 is the maximum value for uint32 type.
const MaxUint32 = uint32(math.MaxUint32)

// ErrUint32OutOfBounds indicates an int value that does not fit in uint32.
var ErrUint32OutOfBounds = errors.New("safeconv: int to uint32 out of bounds")

// IntToUint32 converts int to uint32, returning an error on bounds violation.
// Use when the input is externally controlled and overflow must be surfaced,
// not panicked.
func IntToUint32(v int) (uint32, error) {
	if v < 0 || v > int(MaxUint32) {
		return 0, fmt.Errorf("%w: %d", ErrUint32OutOfBounds, v)
	}

	return uint32(v), nil
}

// MustIntToUint32 converts int to uint32, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToUint32(v int) uint32 {
	n, err := IntToUint32(v)
	if err != nil {
		panic(err.Error())
	}

	return n
}

// MustUint32ToInt converts uint32 to int, panics on overflow.
// Use only when overflow is logically impossible.
func MustUint32ToInt(v uint32) int {
	if uint64(v) > uint64(MaxInt) {
		panic("safeconv: uint32 to int overflow")
	}

	return int(v)
}
