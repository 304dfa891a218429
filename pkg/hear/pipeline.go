package hear

import (
	"context"
	"time"
)

// pipelineState tracks the scratch buffers currently checked out from the
// pool during a pipelined all-reduce. Its cleanup method releases whatever
// is still non-nil exactly once, which is how allReducePipelined resolves
// Open Question 2: the original design's error path released only the
// current block's buffer, leaking a pre-masked next block on certain
// mid-pipeline failures. Here, every exit — success or error — runs through
// the same defer and releases both slots if they are still held.
type pipelineState struct {
	cur, next []byte
}

func (ip *Interposer) releasePipelineState(ps *pipelineState) {
	if ps.cur != nil {
		ip.pool.release(ps.cur)
		ps.cur = nil
	}
	if ps.next != nil {
		ip.pool.release(ps.next)
		ps.next = nil
	}
}

// allReducePipelined implements spec.md §4.5's pipelined path: the vector
// is split into contiguous blocks of BlockSize elements (the last block may
// be shorter), with at most three blocks in flight — one being unmasked
// from the previous iteration, one being reduced by the non-blocking
// primitive, one being masked ahead into a freshly acquired scratch buffer.
func (ip *Interposer) allReducePipelined(req *Request, v variant) error {
	elemSize := req.Datatype.Size()

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

	blockSize := ip.cfg.BlockSize
	total := req.Count

	var ps pipelineState
	defer ip.releasePipelineState(&ps)

	sendSlice := func(off, cnt int) []byte { return req.Send[off*elemSize : (off+cnt)*elemSize] }
	recvSlice := func(off, cnt int) []byte { return req.Recv[off*elemSize : (off+cnt)*elemSize] }

	curOffset := 0
	curCount := minInt(total, blockSize)

	ps.cur, err = ip.pool.acquire(curCount * elemSize)
	if err != nil {
		ip.logger.PoolExhausted(context.Background(), uint64(req.Comm), curCount*elemSize)
		return errorf("AllReduce", err)
	}

	start := time.Now()
	ip.maskBlock(v, ps.cur, sendSlice(curOffset, curCount), rank, n, ks, kn+uint32(curOffset))
	observe(ip.cfg.Profiler, "encrypt", start)

	remaining := total
	prevOffset, prevCount := 0, 0
	havePrev := false

	for remaining > 0 {
		start = time.Now()
		pending, err := ip.coll.IAllReduce(req.Comm, ps.cur, recvSlice(curOffset, curCount), curCount, req.Datatype, req.Op)
		if err != nil {
			return errorf("AllReduce", err)
		}

		if havePrev {
			s := time.Now()
			ip.unmaskBlock(v, recvSlice(prevOffset, prevCount), prevCount)
			observe(ip.cfg.Profiler, "decrypt", s)
		}

		remaining -= curCount

		var nextOffset, nextCount int
		if remaining > 0 {
			nextOffset = curOffset + curCount
			nextCount = minInt(remaining, blockSize)
			ps.next, err = ip.pool.acquire(nextCount * elemSize)
			if err != nil {
				ip.logger.PoolExhausted(context.Background(), uint64(req.Comm), nextCount*elemSize)
				return errorf("AllReduce", err)
			}
			s := time.Now()
			ip.maskBlock(v, ps.next, sendSlice(nextOffset, nextCount), rank, n, ks, kn+uint32(nextOffset))
			observe(ip.cfg.Profiler, "encrypt", s)
		}

		if err := pending.Wait(); err != nil {
			return errorf("AllReduce", err)
		}
		observe(ip.cfg.Profiler, "comm", start)

		ip.pool.release(ps.cur)
		ps.cur = nil

		prevOffset, prevCount, havePrev = curOffset, curCount, true
		curOffset, curCount = nextOffset, nextCount
		ps.cur, ps.next = ps.next, nil
	}

	if havePrev {
		ip.unmaskBlock(v, recvSlice(prevOffset, prevCount), prevCount)
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
