package hear

import (
	"context"
	"time"

	"github.com/hearsys/hear-go/pkg/hear/logging"
)

// Interposer is the collective interposer: it owns the key/nonce store and
// buffer pool for one process and orchestrates mask -> shadow-reduce ->
// unmask around a Collective's all-reduce. It is not internally
// thread-safe; callers using a multi-threaded MPL mode must serialise calls
// themselves (spec.md §5).
type Interposer struct {
	coll   Collective
	cfg    Config
	store  *keyNonceStore
	pool   bufferPool
	mask   *maskEngine
	logger logging.Logger
	closed bool
}

// Open intercepts the MPL's init entry point: it calls Collective.Init,
// then registers CommWorld in the key/nonce store.
func Open(coll Collective, cfg Config) (*Interposer, error) {
	if coll == nil {
		return nil, ErrNilCollective
	}
	cfg = cfg.normalized()

	if err := coll.Init(); err != nil {
		return nil, errorf("Open", err)
	}

	prf := newPrfKernel(cfg.AESBackend)
	ip := &Interposer{
		coll:   coll,
		cfg:    cfg,
		store:  newKeyNonceStore(prf),
		pool:   newBufferPool(cfg),
		mask:   newMaskEngine(prf),
		logger: cfg.logger(),
	}

	world := coll.CommWorld()
	if err := ip.store.register(coll, world); err != nil {
		return nil, errorf("Open", err)
	}
	ip.logger.InterposerOpened(context.Background(), cfg.Pipelining, cfg.PoolEnabled, cfg.AESBackend)
	return ip, nil
}

// OpenThread intercepts the MPL's init_thread entry point. Thread-level
// negotiation (required/provided) is entirely the MPL's concern — hear adds
// no constraint of its own — so this only exists to give callers the same
// registration-on-init guarantee Open provides when they used init_thread
// instead of init.
func OpenThread(coll Collective, cfg Config) (*Interposer, error) {
	return Open(coll, cfg)
}

// CommCreate intercepts MPI_Comm_create: it delegates to the Collective,
// then registers the new communicator.
func (ip *Interposer) CommCreate(comm Comm) (Comm, error) {
	return ip.createAndRegister("CommCreate", func() (Comm, error) { return ip.coll.CommCreate(comm) })
}

// CommSplit intercepts MPI_Comm_split.
func (ip *Interposer) CommSplit(comm Comm, color, key int) (Comm, error) {
	return ip.createAndRegister("CommSplit", func() (Comm, error) { return ip.coll.CommSplit(comm, color, key) })
}

// CommDup intercepts MPI_Comm_dup.
func (ip *Interposer) CommDup(comm Comm) (Comm, error) {
	return ip.createAndRegister("CommDup", func() (Comm, error) { return ip.coll.CommDup(comm) })
}

func (ip *Interposer) createAndRegister(op string, create func() (Comm, error)) (Comm, error) {
	if ip.closed {
		return 0, ErrClosed
	}
	newComm, err := create()
	if err != nil {
		return 0, errorf(op, err)
	}
	if err := ip.store.register(ip.coll, newComm); err != nil {
		return 0, errorf(op, err)
	}
	ip.logger.CommRegistered(context.Background(), op, uint64(newComm))
	return newComm, nil
}

// CommFree intercepts MPI_Comm_free. This is new relative to the original
// design (Open Question 1): it delegates to the Collective and then frees
// and zeroizes comm's key/nonce entries, so long-running programs that
// repeatedly create and free communicators no longer grow the store
// unbounded.
func (ip *Interposer) CommFree(comm Comm) error {
	if ip.closed {
		return ErrClosed
	}
	if err := ip.coll.CommFree(comm); err != nil {
		return errorf("CommFree", err)
	}
	ip.store.free(comm)
	ip.logger.CommFreed(context.Background(), uint64(comm))
	return nil
}

// Close intercepts MPI_Finalize: it tears down the key/nonce store and
// buffer pool, then delegates to the Collective's Finalize, per spec.md
// §4.5 ("The finalize entry point tears down the key/nonce store and the
// buffer pool before delegating to the MPL's finalize").
func (ip *Interposer) Close() error {
	if ip.closed {
		return nil
	}
	ip.store.teardown()
	ip.pool = nil
	ip.closed = true
	return errorf("Close", ip.coll.Finalize())
}

// AllReduce is the intercepted collective entry point. Unsupported
// (dtype, op) pairs and BaselinePassthrough both bypass the mask engine
// entirely and forward straight to the Collective (spec.md §4.5 step 1).
func (ip *Interposer) AllReduce(req *Request) error {
	if ip.closed {
		return ErrClosed
	}
	if err := req.validate(); err != nil {
		return err
	}

	v := classify(req.Datatype, req.Op)
	if ip.cfg.BaselinePassthrough || v == variantBypass {
		return errorf("AllReduce", ip.coll.AllReduce(req.Comm, req.Send, req.Recv, req.Count, req.Datatype, req.Op))
	}

	// The nonce advance strictly happens-before any masking on this call,
	// on every rank, per spec.md §5.
	ip.store.advanceNonce(req.Comm)

	var shadow []byte
	if ip.cfg.DebugValidate && (req.Datatype == Int32) {
		shadow = make([]byte, req.byteLen())
		if err := ip.coll.AllReduce(req.Comm, req.Send, shadow, req.Count, req.Datatype, req.Op); err != nil {
			return errorf("AllReduce", err)
		}
	}

	var err error
	if ip.cfg.Pipelining && req.Count > ip.cfg.BlockSize {
		err = ip.allReducePipelined(req, v)
	} else {
		err = ip.allReduceWhole(req, v)
	}
	if err != nil {
		return err
	}

	if shadow != nil {
		if !bitsEqualInt32(bytesToInt32(req.Recv, req.Count), bytesToInt32(shadow, req.Count)) {
			invariantViolation("AllReduce", "debug validation mismatch on comm %v", req.Comm)
		}
	}
	return nil
}

// allReduceWhole is the non-pipelined path: acquire one scratch buffer,
// mask the whole input into it, shadow-call the real reduce, unmask the
// result, release the buffer on every exit path.
func (ip *Interposer) allReduceWhole(req *Request, v variant) error {
	start := time.Now()
	scratch, err := ip.pool.acquire(req.byteLen())
	if err != nil {
		ip.logger.PoolExhausted(context.Background(), uint64(req.Comm), req.byteLen())
		return errorf("AllReduce", err)
	}
	defer ip.pool.release(scratch)
	observe(ip.cfg.Profiler, "alloc", start)

	rank, err := ip.coll.CommRank(req.Comm)
	if err != nil {
		return errorf("AllReduce", err)
	}
	n, err := ip.coll.CommSize(req.Comm)
	if err != nil {
		return errorf("AllReduce", err)
	}
	ks, err := ip.store.sharedKeys(req.Comm)
	if err != nil {
		return errorf("AllReduce", err)
	}
	kn, err := ip.store.nonce(req.Comm)
	if err != nil {
		return errorf("AllReduce", err)
	}

	start = time.Now()
	ip.maskBlock(v, scratch, req.Send[:req.byteLen()], rank, n, ks, kn)
	observe(ip.cfg.Profiler, "encrypt", start)

	start = time.Now()
	if err := ip.coll.AllReduce(req.Comm, scratch, req.Recv, req.Count, req.Datatype, req.Op); err != nil {
		return errorf("AllReduce", err)
	}
	observe(ip.cfg.Profiler, "comm", start)

	start = time.Now()
	ip.unmaskBlock(v, req.Recv, req.Count)
	observe(ip.cfg.Profiler, "decrypt", start)
	return nil
}

// maskBlock dispatches to the variant-specific encrypt routine over the
// len(in)/4 elements of in, numbering them from 0. pipeline.go calls it once
// per block and passes kn plus the block's element offset, so every element
// gets the same seed it would get on the non-pipelined path.
func (ip *Interposer) maskBlock(v variant, out, in []byte, rank, n int, ks []uint32, kn uint32) {
	switch v {
	case variantIntSum:
		ip.mask.encryptIntSum(bytesToInt32(out, len(in)/4), bytesToInt32(in, len(in)/4), rank, n, ks, kn)
	case variantIntProd:
		ip.mask.encryptIntProd(bytesToInt32(out, len(in)/4), bytesToInt32(in, len(in)/4), rank, n, ks, kn)
	case variantFloatSum:
		ip.mask.encryptFloatSum(bytesToFloat32(out, len(in)/4), bytesToFloat32(in, len(in)/4), rank, n, ks, kn)
	}
}

func (ip *Interposer) unmaskBlock(v variant, recv []byte, count int) {
	switch v {
	case variantIntSum:
		ip.mask.decryptIntSum(bytesToInt32(recv, count))
	case variantIntProd:
		ip.mask.decryptIntProd(bytesToInt32(recv, count))
	case variantFloatSum:
		ip.mask.decryptFloatSum(bytesToFloat32(recv, count))
	}
}
