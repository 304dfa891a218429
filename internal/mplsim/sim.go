package mplsim

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/hearsys/hear-go/pkg/hear"
)

// Cluster is one simulated MPI_COMM_WORLD: a fixed set of ranks, each
// reachable through its own Endpoint, plus every communicator derived from
// the world communicator by CommSplit/CommCreate/CommDup.
type Cluster struct {
	mu       sync.Mutex
	comms    map[hear.Comm]*commState
	nextComm hear.Comm
	world    hear.Comm
}

// NewCluster builds a Cluster of n ranks and returns one Endpoint per rank,
// indexed by world rank.
func NewCluster(n int) (*Cluster, []*Endpoint) {
	if n <= 0 {
		panic("mplsim: NewCluster requires n > 0")
	}
	c := &Cluster{
		comms:    make(map[hear.Comm]*commState),
		nextComm: 2, // 1 is reserved for the world communicator
		world:    1,
	}
	worldRanks := make([]int, n)
	for i := range worldRanks {
		worldRanks[i] = i
	}
	c.comms[c.world] = newCommState(c.world, worldRanks)

	endpoints := make([]*Endpoint, n)
	for i := 0; i < n; i++ {
		endpoints[i] = &Endpoint{cluster: c, worldRank: i}
	}
	return c, endpoints
}

func (c *Cluster) comm(id hear.Comm) *commState {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.comms[id]
	if !ok {
		panic(fmt.Sprintf("mplsim: unknown communicator %v", id))
	}
	return cs
}

func (c *Cluster) newCommID() hear.Comm {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextComm
	c.nextComm++
	return id
}

func (c *Cluster) install(cs *commState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.comms[cs.id] = cs
}

func (c *Cluster) remove(id hear.Comm) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.comms, id)
}

// commState holds the membership and in-flight round state for one
// communicator. All fields below barrier are only ever touched from inside
// a round guarded by barrier.arrive, which is what makes the concurrent
// writes from distinct ranks (each to its own slice index) safe without a
// dedicated mutex: every writer synchronizes through the barrier's lock
// before the reader (the combine closure, or a waiter waking up) runs.
type commState struct {
	id         hear.Comm
	worldRanks []int // local index -> world rank
	localIndex map[int]int
	barrier    *cyclicBarrier

	gatherIn  []uint32
	gatherOut []uint32

	bcastIn  uint32
	bcastOut uint32

	reduceIn  [][]byte
	reduceOut []byte

	splitIn     []splitRequest
	splitAssign map[int]hear.Comm

	dupResult hear.Comm

	freeDone bool
}

type splitRequest struct {
	worldRank int
	color     int
	key       int
}

func newCommState(id hear.Comm, worldRanks []int) *commState {
	n := len(worldRanks)
	cs := &commState{
		id:         id,
		worldRanks: worldRanks,
		localIndex: make(map[int]int, n),
		barrier:    newCyclicBarrier(n),
		gatherIn:   make([]uint32, n),
		reduceIn:   make([][]byte, n),
		splitIn:    make([]splitRequest, n),
	}
	for i, wr := range worldRanks {
		cs.localIndex[wr] = i
	}
	return cs
}

// Endpoint is one rank's view of a Cluster. It implements hear.Collective.
type Endpoint struct {
	cluster   *Cluster
	worldRank int
}

func (e *Endpoint) WorldRank() int { return e.worldRank }

func (e *Endpoint) CommWorld() hear.Comm { return e.cluster.world }

func (e *Endpoint) CommRank(comm hear.Comm) (int, error) {
	cs := e.cluster.comm(comm)
	li, ok := cs.localIndex[e.worldRank]
	if !ok {
		return 0, hear.ErrUnknownComm
	}
	return li, nil
}

func (e *Endpoint) CommSize(comm hear.Comm) (int, error) {
	cs := e.cluster.comm(comm)
	return len(cs.worldRanks), nil
}

func (e *Endpoint) AllGatherUint32(comm hear.Comm, send uint32) ([]uint32, error) {
	cs := e.cluster.comm(comm)
	li := cs.localIndex[e.worldRank]
	cs.gatherIn[li] = send
	cs.barrier.arrive(func() {
		out := make([]uint32, len(cs.gatherIn))
		copy(out, cs.gatherIn)
		cs.gatherOut = out
	})
	return cs.gatherOut, nil
}

func (e *Endpoint) BroadcastUint32(comm hear.Comm, root int, value uint32) (uint32, error) {
	cs := e.cluster.comm(comm)
	li := cs.localIndex[e.worldRank]
	if li == root {
		cs.bcastIn = value
	}
	cs.barrier.arrive(func() {
		cs.bcastOut = cs.bcastIn
	})
	return cs.bcastOut, nil
}

func (e *Endpoint) AllReduce(comm hear.Comm, send, recv []byte, count int, dtype hear.Datatype, op hear.ReduceOp) error {
	cs := e.cluster.comm(comm)
	li := cs.localIndex[e.worldRank]
	cs.reduceIn[li] = send
	cs.barrier.arrive(func() {
		cs.reduceOut = combineReduce(cs.reduceIn, count, dtype, op)
	})
	n := count * dtype.Size()
	copy(recv[:n], cs.reduceOut[:n])
	return nil
}

// pending is the trivial PendingReduce this simulation returns: IAllReduce
// already performed the full barrier exchange before returning, so Wait is
// a no-op. A real MPL backend would instead kick off PMPI_Iallreduce here
// and block in Wait; hear's pipeline only depends on the two-call shape,
// not on genuine overlap, so the simulation stays correct either way.
type pending struct{ err error }

func (p *pending) Wait() error { return p.err }

func (e *Endpoint) IAllReduce(comm hear.Comm, send, recv []byte, count int, dtype hear.Datatype, op hear.ReduceOp) (hear.PendingReduce, error) {
	err := e.AllReduce(comm, send, recv, count, dtype, op)
	return &pending{}, err
}

func (e *Endpoint) CommCreate(comm hear.Comm) (hear.Comm, error) {
	return e.dupLike(comm)
}

func (e *Endpoint) CommDup(comm hear.Comm) (hear.Comm, error) {
	return e.dupLike(comm)
}

// dupLike backs both CommCreate and CommDup: this simulation does not model
// MPI's group-subset argument to comm_create, so both entry points produce
// a new communicator with the same membership and ordering as the parent.
// What hear's interposer cares about either way is only that a fresh
// communicator gets registered in the key/nonce store on success.
func (e *Endpoint) dupLike(comm hear.Comm) (hear.Comm, error) {
	cs := e.cluster.comm(comm)
	cs.barrier.arrive(func() {
		newID := e.cluster.newCommID()
		e.cluster.install(newCommState(newID, append([]int(nil), cs.worldRanks...)))
		cs.dupResult = newID
	})
	return cs.dupResult, nil
}

func (e *Endpoint) CommSplit(comm hear.Comm, color, key int) (hear.Comm, error) {
	cs := e.cluster.comm(comm)
	li := cs.localIndex[e.worldRank]
	cs.splitIn[li] = splitRequest{worldRank: e.worldRank, color: color, key: key}
	cs.barrier.arrive(func() {
		cs.splitAssign = buildSplitGroups(e.cluster, cs.splitIn)
	})
	newID, ok := cs.splitAssign[e.worldRank]
	if !ok {
		return 0, fmt.Errorf("mplsim: rank %d excluded from split (negative color)", e.worldRank)
	}
	return newID, nil
}

func buildSplitGroups(c *Cluster, reqs []splitRequest) map[int]hear.Comm {
	byColor := map[int][]splitRequest{}
	for _, r := range reqs {
		if r.color < 0 {
			continue
		}
		byColor[r.color] = append(byColor[r.color], r)
	}

	assign := make(map[int]hear.Comm, len(reqs))
	colors := make([]int, 0, len(byColor))
	for color := range byColor {
		colors = append(colors, color)
	}
	sort.Ints(colors)

	for _, color := range colors {
		group := byColor[color]
		sort.Slice(group, func(i, j int) bool {
			if group[i].key != group[j].key {
				return group[i].key < group[j].key
			}
			return group[i].worldRank < group[j].worldRank
		})
		worldRanks := make([]int, len(group))
		for i, g := range group {
			worldRanks[i] = g.worldRank
		}
		id := c.newCommID()
		c.install(newCommState(id, worldRanks))
		for _, g := range group {
			assign[g.worldRank] = id
		}
	}
	return assign
}

func (e *Endpoint) CommFree(comm hear.Comm) error {
	cs := e.cluster.comm(comm)
	cs.barrier.arrive(func() {
		cs.freeDone = true
	})
	e.cluster.remove(comm)
	return nil
}

func (e *Endpoint) Init() error     { return nil }
func (e *Endpoint) Finalize() error { return nil }

// randomUint32 folds a 64-bit seed into one word and applies one xorshift32
// round, giving a deterministic-looking 32-bit value. It is unexported, so
// only code in this package can call it.
func randomUint32(seed uint64) uint32 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	x := binary.LittleEndian.Uint32(b[:4]) ^ binary.LittleEndian.Uint32(b[4:])
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	return x
}
