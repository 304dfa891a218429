package mplsim

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hearsys/hear-go/pkg/hear"
)

func runOnEveryRank(t *testing.T, eps []*Endpoint, fn func(i int, ep *Endpoint)) {
	t.Helper()
	var wg sync.WaitGroup
	wg.Add(len(eps))
	for i, ep := range eps {
		go func(i int, ep *Endpoint) {
			defer wg.Done()
			fn(i, ep)
		}(i, ep)
	}
	wg.Wait()
}

func TestAllGatherUint32(t *testing.T) {
	_, eps := NewCluster(4)
	got := make([][]uint32, len(eps))
	runOnEveryRank(t, eps, func(i int, ep *Endpoint) {
		out, err := ep.AllGatherUint32(ep.CommWorld(), uint32(10+i))
		require.NoError(t, err)
		got[i] = out
	})
	want := []uint32{10, 11, 12, 13}
	for i := range got {
		require.Equal(t, want, got[i])
	}
}

func TestBroadcastUint32(t *testing.T) {
	_, eps := NewCluster(3)
	got := make([]uint32, len(eps))
	runOnEveryRank(t, eps, func(i int, ep *Endpoint) {
		v, err := ep.BroadcastUint32(ep.CommWorld(), 0, uint32(999))
		require.NoError(t, err)
		got[i] = v
	})
	for _, v := range got {
		require.Equal(t, uint32(999), v)
	}
}

func TestAllReduceSumInt32(t *testing.T) {
	_, eps := NewCluster(3)
	recv := make([][]byte, len(eps))
	runOnEveryRank(t, eps, func(i int, ep *Endpoint) {
		send := make([]byte, 4)
		binary.LittleEndian.PutUint32(send, uint32(int32(i+1)))
		out := make([]byte, 4)
		err := ep.AllReduce(ep.CommWorld(), send, out, 1, hear.Int32, hear.OpSum)
		require.NoError(t, err)
		recv[i] = out
	})
	for _, r := range recv {
		require.Equal(t, int32(6), int32(binary.LittleEndian.Uint32(r)))
	}
}

func TestCommSplitGroupsByColor(t *testing.T) {
	_, eps := NewCluster(4)
	got := make([]hear.Comm, len(eps))
	runOnEveryRank(t, eps, func(i int, ep *Endpoint) {
		color := i % 2
		newComm, err := ep.CommSplit(ep.CommWorld(), color, i)
		require.NoError(t, err)
		got[i] = newComm
	})
	require.Equal(t, got[0], got[2])
	require.Equal(t, got[1], got[3])
	require.NotEqual(t, got[0], got[1])
}

func TestCommDupGivesSameIDToEveryRank(t *testing.T) {
	_, eps := NewCluster(5)
	got := make([]hear.Comm, len(eps))
	runOnEveryRank(t, eps, func(i int, ep *Endpoint) {
		newComm, err := ep.CommDup(ep.CommWorld())
		require.NoError(t, err)
		got[i] = newComm
	})
	for _, c := range got {
		require.Equal(t, got[0], c)
	}
	require.NotEqual(t, hear.Comm(0), got[0])
}

func TestCommFreeRemovesCommunicator(t *testing.T) {
	c, eps := NewCluster(2)
	var split hear.Comm
	runOnEveryRank(t, eps, func(i int, ep *Endpoint) {
		newComm, err := ep.CommDup(ep.CommWorld())
		require.NoError(t, err)
		split = newComm
	})
	runOnEveryRank(t, eps, func(i int, ep *Endpoint) {
		require.NoError(t, ep.CommFree(split))
	})
	c.mu.Lock()
	_, stillThere := c.comms[split]
	c.mu.Unlock()
	require.False(t, stillThere)
}
