package safeconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToUint32_InBounds(t *testing.T) {
	t.Parallel()

	n, err := IntToUint32(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n)

	n, err = IntToUint32(math.MaxUint32)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), n)
}

func TestIntToUint32_Negative(t *testing.T) {
	t.Parallel()

	_, err := IntToUint32(-1)
	require.ErrorIs(t, err, ErrUint32OutOfBounds)
}

func TestIntToUint32_Overflow(t *testing.T) {
	t.Parallel()

	_, err := IntToUint32(math.MaxUint32 + 1)
	require.ErrorIs(t, err, ErrUint32OutOfBounds)
}

func TestMustIntToUint32_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustIntToUint32(-1) })
	assert.NotPanics(t, func() { MustIntToUint32(42) })
}

func TestMustUint32ToInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7, MustUint32ToInt(7))
}
