package hear

// bufferPool is the single interface spec.md §4.4/§9 calls for — one
// acquire/release contract with two interchangeable implementations. The
// interposer code is identical regardless of which one backs it.
type bufferPool interface {
	acquire(n int) ([]byte, error)
	release(buf []byte)
}

// ringPool implements the fixed-size ring of preallocated scratch slabs. A
// buffered channel of slabs is the idiomatic-Go stand-in for the original's
// hand-rolled free-list: acquire is a non-blocking channel receive (fails
// closed with ErrPoolExhausted rather than blocking or growing), release is
// a channel send back into the same ring.
type ringPool struct {
	slabs   chan []byte
	slabLen int
}

func newRingPool(size, slabLen int) *ringPool {
	p := &ringPool{
		slabs:   make(chan []byte, size),
		slabLen: slabLen,
	}
	for i := 0; i < size; i++ {
		p.slabs <- make([]byte, slabLen)
	}
	return p
}

func (p *ringPool) acquire(n int) ([]byte, error) {
	if n > p.slabLen {
		return nil, &Error{Op: "acquire", Err: ErrPoolExhausted}
	}
	select {
	case slab := <-p.slabs:
		return slab[:n], nil
	default:
		return nil, &Error{Op: "acquire", Err: ErrPoolExhausted}
	}
}

func (p *ringPool) release(buf []byte) {
	// Restore full capacity before returning the slab to the ring so a
	// later, larger acquire can reuse it.
	full := buf[:cap(buf)]
	select {
	case p.slabs <- full:
	default:
		// The ring is already full — this would only happen if a caller
		// released a buffer it never acquired from this pool, which is a
		// programming error elsewhere, not something this release call
		// should panic over. Drop the slab silently; it is simply
		// garbage-collected.
	}
}

func (p *ringPool) freeSlabs() int {
	return len(p.slabs)
}

// heapPool is the fallback used when pooling is disabled: every acquire is
// a fresh heap allocation, every release just drops the reference.
type heapPool struct{}

func (heapPool) acquire(n int) ([]byte, error) {
	return make([]byte, n), nil
}

func (heapPool) release([]byte) {}

func newBufferPool(cfg Config) bufferPool {
	if !cfg.PoolEnabled {
		return heapPool{}
	}
	return newRingPool(cfg.PoolSize, cfg.PoolSlabLen)
}
