package domain_test

import (
	"math"
	"testing"

	"github.com/drip-labs/dripd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestCurrentWindowIndex(t *testing.T) {
	const start, length = int64(1000), int64(3600)

	t.Run("first window starts at index one", func(t *testing.T) {
		require.Equal(t, int64(1), domain.CurrentWindowIndex(start, start, length))
		require.Equal(t, int64(1), domain.CurrentWindowIndex(start+length-1, start, length))
	})

	t.Run("index advances at each window boundary", func(t *testing.T) {
		require.Equal(t, int64(2), domain.CurrentWindowIndex(start+length, start, length))
		require.Equal(t, int64(25), domain.CurrentWindowIndex(start+24*length, start, length))
	})

	t.Run("fails closed on bad inputs", func(t *testing.T) {
		require.Equal(t, int64(0), domain.CurrentWindowIndex(start-1, start, length))
		require.Equal(t, int64(0), domain.CurrentWindowIndex(start, start, 0))
		require.Equal(t, int64(0), domain.CurrentWindowIndex(start, start, -1))
	})
}

func TestWithinGlobalCap(t *testing.T) {
	t.Run("budget scales with elapsed windows", func(t *testing.T) {
		require.True(t, domain.WithinGlobalCap(0, 50, 1))
		require.True(t, domain.WithinGlobalCap(50, 50, 1))
		require.False(t, domain.WithinGlobalCap(51, 50, 1))
		require.True(t, domain.WithinGlobalCap(51, 50, 2))
		require.True(t, domain.WithinGlobalCap(100, 50, 2))
		require.False(t, domain.WithinGlobalCap(101, 50, 2))
	})

	t.Run("zero window index always fails", func(t *testing.T) {
		require.False(t, domain.WithinGlobalCap(0, math.MaxUint64, 0))
		require.False(t, domain.WithinGlobalCap(0, 1, -1))
	})

	t.Run("product beyond 64 bits does not wrap", func(t *testing.T) {
		// MaxUint64 * 2 overflows uint64 to a small value; the big.Int
		// comparison must still accept any uint64 total.
		require.True(t, domain.WithinGlobalCap(math.MaxUint64, math.MaxUint64, 2))
		require.True(t, domain.WithinGlobalCap(math.MaxUint64, 3, math.MaxInt64))
	})

	t.Run("zero global cap rejects any claim", func(t *testing.T) {
		require.False(t, domain.WithinGlobalCap(1, 0, 100))
		require.True(t, domain.WithinGlobalCap(0, 0, 100))
	})
}
