package hear

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXorshiftPrfIsDeterministic(t *testing.T) {
	require.Equal(t, xorshiftPrf(42), xorshiftPrf(42))
	require.NotEqual(t, xorshiftPrf(42), xorshiftPrf(43))
}

func TestXorshiftPrfAvoidsZeroFixedPoint(t *testing.T) {
	require.NotEqual(t, uint32(0), xorshiftPrf(0))
}

func TestXorshiftPrfStreamChainsFourWords(t *testing.T) {
	stream := xorshiftPrfStream(7)
	require.Equal(t, xorshiftPrf(7), stream[0])
	require.Equal(t, xorshiftPrf(stream[0]), stream[1])
	require.Equal(t, xorshiftPrf(stream[1]), stream[2])
	require.Equal(t, xorshiftPrf(stream[2]), stream[3])
}

func TestAESBackendIsDeterministic(t *testing.T) {
	b := newAESBackend(defaultAESKey)
	require.Equal(t, b.single(1), b.single(1))
	require.NotEqual(t, b.single(1), b.single(2))
}

func TestAESBackendStreamProducesFourDistinctWords(t *testing.T) {
	b := newAESBackend(defaultAESKey)
	words := b.stream(99)
	seen := map[uint32]bool{}
	for _, w := range words {
		seen[w] = true
	}
	require.Len(t, seen, 4)
}

func TestNewAESBackendPanicsOnBadKeyLength(t *testing.T) {
	require.Panics(t, func() {
		newAESBackend([]byte{0x01, 0x02})
	})
}

func TestSeedForDistinctAcrossRankAndElement(t *testing.T) {
	ks := uint32(0xdeadbeef)
	kn := uint32(123)
	seeds := map[uint32]bool{}
	for r := 0; r < 4; r++ {
		for j := 0; j < 4; j++ {
			seeds[seedFor(ks+uint32(r), kn, j)] = true
		}
	}
	require.Len(t, seeds, 16)
}

func TestNewPrfKernelSelectsBackend(t *testing.T) {
	xk := newPrfKernel(false)
	require.Equal(t, xorshiftPrf(5), xk.single(5))

	ak := newPrfKernel(true)
	b := newAESBackend(defaultAESKey)
	require.Equal(t, b.single(5), ak.single(5))
}
