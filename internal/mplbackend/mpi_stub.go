//go:build !cgo || windows

package mplbackend

import "github.com/hearsys/hear-go/pkg/hear"

// Backend is the stub used on platforms built without cgo, or on Windows.
// Open and every error-returning method report ErrNotBuilt; the real
// implementation lives in mpi_cgo.go.
type Backend struct{}

func Open() (*Backend, error) { return nil, ErrNotBuilt }

func (b *Backend) CommWorld() hear.Comm { return 0 }

func (b *Backend) CommSize(hear.Comm) (int, error) { return 0, ErrNotBuilt }
func (b *Backend) CommRank(hear.Comm) (int, error) { return 0, ErrNotBuilt }

func (b *Backend) CommCreate(hear.Comm) (hear.Comm, error)          { return 0, ErrNotBuilt }
func (b *Backend) CommSplit(hear.Comm, int, int) (hear.Comm, error) { return 0, ErrNotBuilt }
func (b *Backend) CommDup(hear.Comm) (hear.Comm, error)             { return 0, ErrNotBuilt }
func (b *Backend) CommFree(hear.Comm) error                         { return ErrNotBuilt }

func (b *Backend) AllGatherUint32(hear.Comm, uint32) ([]uint32, error) { return nil, ErrNotBuilt }
func (b *Backend) BroadcastUint32(hear.Comm, int, uint32) (uint32, error) {
	return 0, ErrNotBuilt
}

func (b *Backend) AllReduce(hear.Comm, []byte, []byte, int, hear.Datatype, hear.ReduceOp) error {
	return ErrNotBuilt
}

func (b *Backend) IAllReduce(hear.Comm, []byte, []byte, int, hear.Datatype, hear.ReduceOp) (hear.PendingReduce, error) {
	return nil, ErrNotBuilt
}

func (b *Backend) Init() error     { return ErrNotBuilt }
func (b *Backend) Finalize() error { return ErrNotBuilt }
