//go:build cgo && !windows

package mplbackend

/*
#cgo LDFLAGS: -lmpi
#include <mpi.h>
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/hearsys/hear-go/pkg/hear"
)

// Backend implements hear.Collective by shadow-calling a real MPI
// installation's collectives, the same role the original design's
// PMPI_-prefixed calls play: every method here forwards straight to the
// library, in the order the caller invokes it.
//
// hear.Comm is an opaque uint64; MPI_Comm is whichever representation the
// linked MPI implementation uses (an int handle in MPICH, a pointer in Open
// MPI). Rather than assume either, commRegistry maps minted uint64 handles
// to the real C.MPI_Comm values, the same opaque-handle-over-a-registry
// pattern the example pack's own cgo layer uses to pass Go-side transport
// objects across the C boundary.
type Backend struct {
	world hear.Comm
}

var commRegistry = struct {
	mu   sync.Mutex
	next hear.Comm
	m    map[hear.Comm]C.MPI_Comm
}{next: 1, m: map[hear.Comm]C.MPI_Comm{}}

func registerComm(c C.MPI_Comm) hear.Comm {
	commRegistry.mu.Lock()
	defer commRegistry.mu.Unlock()
	h := commRegistry.next
	commRegistry.next++
	commRegistry.m[h] = c
	return h
}

func toMPIComm(comm hear.Comm) C.MPI_Comm {
	commRegistry.mu.Lock()
	defer commRegistry.mu.Unlock()
	return commRegistry.m[comm]
}

func newComm(c C.MPI_Comm) hear.Comm {
	return registerComm(c)
}

// Open returns a Backend bound to MPI_COMM_WORLD. It does not call
// MPI_Init; Init does.
func Open() (*Backend, error) {
	return &Backend{world: registerComm(C.MPI_COMM_WORLD)}, nil
}

func (b *Backend) CommWorld() hear.Comm { return b.world }

func (b *Backend) CommSize(comm hear.Comm) (int, error) {
	var n C.int
	if rc := C.MPI_Comm_size(toMPIComm(comm), &n); rc != C.MPI_SUCCESS {
		return 0, mpiError("MPI_Comm_size", rc)
	}
	return int(n), nil
}

func (b *Backend) CommRank(comm hear.Comm) (int, error) {
	var r C.int
	if rc := C.MPI_Comm_rank(toMPIComm(comm), &r); rc != C.MPI_SUCCESS {
		return 0, mpiError("MPI_Comm_rank", rc)
	}
	return int(r), nil
}

// CommCreate does not take a group argument in hear.Collective, so this
// behaves like CommDup: the simulated backend (internal/mplsim) makes the
// same simplification, for the same reason — hear only needs a freshly
// registrable communicator with the same membership, not fine-grained
// subsetting.
func (b *Backend) CommCreate(comm hear.Comm) (hear.Comm, error) {
	return b.CommDup(comm)
}

func (b *Backend) CommSplit(comm hear.Comm, color, key int) (hear.Comm, error) {
	var out C.MPI_Comm
	if rc := C.MPI_Comm_split(toMPIComm(comm), C.int(color), C.int(key), &out); rc != C.MPI_SUCCESS {
		return 0, mpiError("MPI_Comm_split", rc)
	}
	return newComm(out), nil
}

func (b *Backend) CommDup(comm hear.Comm) (hear.Comm, error) {
	var out C.MPI_Comm
	if rc := C.MPI_Comm_dup(toMPIComm(comm), &out); rc != C.MPI_SUCCESS {
		return 0, mpiError("MPI_Comm_dup", rc)
	}
	return newComm(out), nil
}

func (b *Backend) CommFree(comm hear.Comm) error {
	c := toMPIComm(comm)
	if rc := C.MPI_Comm_free(&c); rc != C.MPI_SUCCESS {
		return mpiError("MPI_Comm_free", rc)
	}
	commRegistry.mu.Lock()
	delete(commRegistry.m, comm)
	commRegistry.mu.Unlock()
	return nil
}

func (b *Backend) AllGatherUint32(comm hear.Comm, send uint32) ([]uint32, error) {
	n, err := b.CommSize(comm)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	rc := C.MPI_Allgather(
		unsafe.Pointer(&send), 1, C.MPI_UINT32_T,
		unsafe.Pointer(&out[0]), 1, C.MPI_UINT32_T,
		toMPIComm(comm),
	)
	if rc != C.MPI_SUCCESS {
		return nil, mpiError("MPI_Allgather", rc)
	}
	return out, nil
}

func (b *Backend) BroadcastUint32(comm hear.Comm, root int, value uint32) (uint32, error) {
	v := value
	rc := C.MPI_Bcast(unsafe.Pointer(&v), 1, C.MPI_UINT32_T, C.int(root), toMPIComm(comm))
	if rc != C.MPI_SUCCESS {
		return 0, mpiError("MPI_Bcast", rc)
	}
	return v, nil
}

func (b *Backend) AllReduce(comm hear.Comm, send, recv []byte, count int, dtype hear.Datatype, op hear.ReduceOp) error {
	mdt, err := mpiDatatype(dtype)
	if err != nil {
		return err
	}
	mop, err := mpiOp(op)
	if err != nil {
		return err
	}
	rc := C.MPI_Allreduce(
		unsafe.Pointer(&send[0]), unsafe.Pointer(&recv[0]), C.int(count),
		mdt, mop, toMPIComm(comm),
	)
	if rc != C.MPI_SUCCESS {
		return mpiError("MPI_Allreduce", rc)
	}
	return nil
}

type pendingRequest struct{ req C.MPI_Request }

func (p *pendingRequest) Wait() error {
	var status C.MPI_Status
	if rc := C.MPI_Wait(&p.req, &status); rc != C.MPI_SUCCESS {
		return mpiError("MPI_Wait", rc)
	}
	return nil
}

func (b *Backend) IAllReduce(comm hear.Comm, send, recv []byte, count int, dtype hear.Datatype, op hear.ReduceOp) (hear.PendingReduce, error) {
	mdt, err := mpiDatatype(dtype)
	if err != nil {
		return nil, err
	}
	mop, err := mpiOp(op)
	if err != nil {
		return nil, err
	}
	p := &pendingRequest{}
	rc := C.MPI_Iallreduce(
		unsafe.Pointer(&send[0]), unsafe.Pointer(&recv[0]), C.int(count),
		mdt, mop, toMPIComm(comm), &p.req,
	)
	if rc != C.MPI_SUCCESS {
		return nil, mpiError("MPI_Iallreduce", rc)
	}
	return p, nil
}

func (b *Backend) Init() error {
	if rc := C.MPI_Init(nil, nil); rc != C.MPI_SUCCESS {
		return mpiError("MPI_Init", rc)
	}
	return nil
}

func (b *Backend) Finalize() error {
	if rc := C.MPI_Finalize(); rc != C.MPI_SUCCESS {
		return mpiError("MPI_Finalize", rc)
	}
	return nil
}

func mpiDatatype(dt hear.Datatype) (C.MPI_Datatype, error) {
	switch dt {
	case hear.Int32:
		return C.MPI_INT32_T, nil
	case hear.Int64:
		return C.MPI_INT64_T, nil
	case hear.Float32:
		return C.MPI_FLOAT, nil
	case hear.Float64:
		return C.MPI_DOUBLE, nil
	default:
		return 0, mpiErrorf("unsupported datatype %v", dt)
	}
}

func mpiError(op string, rc C.int) error {
	return fmt.Errorf("mplbackend: %s failed with MPI error code %d", op, int(rc))
}

func mpiErrorf(format string, args ...any) error {
	return fmt.Errorf("mplbackend: "+format, args...)
}

func mpiOp(op hear.ReduceOp) (C.MPI_Op, error) {
	switch op {
	case hear.OpSum:
		return C.MPI_SUM, nil
	case hear.OpProd:
		return C.MPI_PROD, nil
	case hear.OpMin:
		return C.MPI_MIN, nil
	case hear.OpMax:
		return C.MPI_MAX, nil
	default:
		return 0, mpiErrorf("unsupported op %v", op)
	}
}
