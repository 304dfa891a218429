package hear

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingPoolAcquireReleaseRoundTrip(t *testing.T) {
	p := newRingPool(2, 16)
	require.Equal(t, 2, p.freeSlabs())

	buf, err := p.acquire(10)
	require.NoError(t, err)
	require.Len(t, buf, 10)
	require.Equal(t, 1, p.freeSlabs())

	p.release(buf)
	require.Equal(t, 2, p.freeSlabs())
}

func TestRingPoolAcquireTooLargeFails(t *testing.T) {
	p := newRingPool(1, 16)
	_, err := p.acquire(17)
	require.ErrorIs(t, err, ErrPoolExhausted)
}

func TestRingPoolAcquireExhaustedFails(t *testing.T) {
	p := newRingPool(1, 16)
	buf, err := p.acquire(16)
	require.NoError(t, err)

	_, err = p.acquire(16)
	require.ErrorIs(t, err, ErrPoolExhausted)

	p.release(buf)
	_, err = p.acquire(16)
	require.NoError(t, err)
}

func TestRingPoolReleaseRestoresFullCapacity(t *testing.T) {
	p := newRingPool(1, 16)
	buf, err := p.acquire(4)
	require.NoError(t, err)
	require.Len(t, buf, 4)

	p.release(buf)

	bigger, err := p.acquire(16)
	require.NoError(t, err)
	require.Len(t, bigger, 16)
}

func TestRingPoolReleaseOfForeignBufferIsDroppedNotPanicking(t *testing.T) {
	p := newRingPool(1, 16)
	require.NotPanics(t, func() {
		p.release(make([]byte, 16))
	})
}

func TestHeapPoolAlwaysSucceeds(t *testing.T) {
	p := heapPool{}
	buf, err := p.acquire(1 << 20)
	require.NoError(t, err)
	require.Len(t, buf, 1<<20)
	p.release(buf) // no-op, must not panic
}

func TestNewBufferPoolSelectsImplementationFromConfig(t *testing.T) {
	disabled := newBufferPool(Config{PoolEnabled: false})
	_, ok := disabled.(heapPool)
	require.True(t, ok)

	enabled := newBufferPool(Config{PoolEnabled: true, PoolSize: 3, PoolSlabLen: 64})
	ring, ok := enabled.(*ringPool)
	require.True(t, ok)
	require.Equal(t, 3, ring.freeSlabs())
}
