package hear

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKeys(n int) (ks []uint32, kn uint32) {
	ks = make([]uint32, n)
	for r := range ks {
		ks[r] = uint32(0x1000*r + 7)
	}
	return ks, 0xabcdef01
}

func TestEncryptIntSumTelescopesToPlaintextAggregate(t *testing.T) {
	prf := newPrfKernel(false)
	m := newMaskEngine(prf)
	const n = 4
	const count = 8
	ks, kn := testKeys(n)

	x := make([][]int32, n)
	for r := 0; r < n; r++ {
		x[r] = make([]int32, count)
		for j := range x[r] {
			x[r][j] = int32((r+1)*10 + j)
		}
	}

	masked := make([][]int32, n)
	for r := 0; r < n; r++ {
		masked[r] = make([]int32, count)
		m.encryptIntSum(masked[r], x[r], r, n, ks, kn)
	}

	aggregate := make([]int32, count)
	for r := 0; r < n; r++ {
		for j := 0; j < count; j++ {
			aggregate[j] += masked[r][j]
		}
	}

	want := make([]int32, count)
	for r := 0; r < n; r++ {
		for j := 0; j < count; j++ {
			want[j] += x[r][j]
		}
	}

	require.Equal(t, want, aggregate)
}

func TestEncryptIntProdTelescopesToPlaintextAggregate(t *testing.T) {
	prf := newPrfKernel(false)
	m := newMaskEngine(prf)
	const n = 3
	const count = 5
	ks, kn := testKeys(n)

	x := make([][]int32, n)
	for r := 0; r < n; r++ {
		x[r] = make([]int32, count)
		for j := range x[r] {
			x[r][j] = int32(r + 2)
		}
	}

	masked := make([][]int32, n)
	for r := 0; r < n; r++ {
		masked[r] = make([]int32, count)
		m.encryptIntProd(masked[r], x[r], r, n, ks, kn)
	}

	aggregate := make([]int32, count)
	for j := 0; j < count; j++ {
		aggregate[j] = 1
	}
	for r := 0; r < n; r++ {
		for j := 0; j < count; j++ {
			aggregate[j] = int32(uint32(aggregate[j]) * uint32(masked[r][j]))
		}
	}

	want := make([]int32, count)
	for j := 0; j < count; j++ {
		want[j] = 1
	}
	for r := 0; r < n; r++ {
		for j := 0; j < count; j++ {
			want[j] = int32(uint32(want[j]) * uint32(x[r][j]))
		}
	}

	require.Equal(t, want, aggregate)
}

func TestEncryptFloatSumWithinTolerance(t *testing.T) {
	prf := newPrfKernel(false)
	m := newMaskEngine(prf)
	const n = 4
	const count = 16
	ks, kn := testKeys(n)

	x := make([][]float32, n)
	sumAbs := 0.0
	for r := 0; r < n; r++ {
		x[r] = make([]float32, count)
		for j := range x[r] {
			x[r][j] = float32(r) + float32(j)*0.5
			sumAbs += math.Abs(float64(x[r][j]))
		}
	}

	masked := make([][]float32, n)
	for r := 0; r < n; r++ {
		masked[r] = make([]float32, count)
		m.encryptFloatSum(masked[r], x[r], r, n, ks, kn)
	}

	aggregate := make([]float32, count)
	for r := 0; r < n; r++ {
		for j := 0; j < count; j++ {
			aggregate[j] += masked[r][j]
		}
	}

	native := make([]float32, count)
	for r := 0; r < n; r++ {
		for j := 0; j < count; j++ {
			native[j] += x[r][j]
		}
	}

	require.True(t, floatsWithinTolerance(aggregate, native, n, sumAbs))
}

func TestModInverseOddRoundTrips(t *testing.T) {
	cases := []uint32{1, 3, 5, 0xdeadbeef | 1, 0xffffffff}
	for _, x := range cases {
		inv := modInverseOdd(x)
		require.Equal(t, uint32(1), x*inv)
	}
}

func TestOddIntMaskIsAlwaysOdd(t *testing.T) {
	prf := newPrfKernel(false)
	m := newMaskEngine(prf)
	ks := []uint32{1, 2, 3}
	for j := 0; j < 100; j++ {
		v := m.oddIntMask(ks, 0x42, 1, j)
		require.Equal(t, uint32(1), v&1)
	}
}

func TestBitsEqualInt32(t *testing.T) {
	require.True(t, bitsEqualInt32([]int32{1, 2, 3}, []int32{1, 2, 3}))
	require.False(t, bitsEqualInt32([]int32{1, 2, 3}, []int32{1, 2, 4}))
	require.False(t, bitsEqualInt32([]int32{1, 2}, []int32{1, 2, 3}))
}
