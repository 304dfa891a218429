package hear

// PendingReduce is the handle returned by Collective.IAllReduce: the
// non-blocking all-reduce primitive the pipelined path waits on once it has
// used the overlap window to mask the next block and unmask the previous
// one. It mirrors MPI_Request/MPI_Wait.
type PendingReduce interface {
	Wait() error
}

// Collective is hear's sole contact point with the external message-passing
// library. It is the Go analogue of shadow-calling the real implementation
// from inside a PMPI-style interposed wrapper: every method here is expected
// to forward to (or simulate) the real collective, reliably and in the
// order callers invoke it, exactly the contract spec.md assumes of the MPL.
//
// Implementations must be safe to drive from a single goroutine per rank;
// hear itself never calls a Collective concurrently from two goroutines for
// the same Comm (see §5 of the design — the interposer is not internally
// thread-safe and expects its caller to serialise).
type Collective interface {
	// CommWorld returns the handle for the initial, all-participant
	// communicator, valid after Init.
	CommWorld() Comm

	CommSize(comm Comm) (int, error)
	CommRank(comm Comm) (int, error)

	CommCreate(comm Comm) (Comm, error)
	CommSplit(comm Comm, color, key int) (Comm, error)
	CommDup(comm Comm) (Comm, error)
	CommFree(comm Comm) error

	// AllGatherUint32 gathers one word per rank into a slice indexed by
	// rank, used by key/nonce registration to distribute K_s.
	AllGatherUint32(comm Comm, send uint32) ([]uint32, error)

	// BroadcastUint32 distributes root's word to every rank, used by
	// key/nonce registration to distribute the initial K_n.
	BroadcastUint32(comm Comm, root int, value uint32) (uint32, error)

	// AllReduce performs the real, blocking all-reduce over opaque bytes.
	// It is called both on the bypass path (arbitrary dtype/op) and, from
	// inside the interposer, on masked ciphertext for the three supported
	// (dtype, op) pairs.
	AllReduce(comm Comm, send, recv []byte, count int, dtype Datatype, op ReduceOp) error

	// IAllReduce is the non-blocking counterpart used by the pipelined
	// path to overlap communication of block n with masking of block n+1
	// and unmasking of block n-1.
	IAllReduce(comm Comm, send, recv []byte, count int, dtype Datatype, op ReduceOp) (PendingReduce, error)

	// Init performs the library's own startup; it is called once, before
	// CommWorld is meaningful.
	Init() error
	// Finalize tears down the library. The interposer calls this only
	// after it has torn down its own key/nonce store and buffer pool.
	Finalize() error
}
