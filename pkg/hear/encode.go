package hear

import "unsafe"

// bytesToInt32 and bytesToFloat32 reinterpret a byte buffer as a typed
// slice in place, with no copy: the mask engine writes element-wise into
// the exact bytes the Collective will transmit. This is safe for the
// buffers hear ever passes them — heap allocations and the pool's ring
// slabs, both made with make([]byte, ...), which the runtime aligns at
// least to the platform's natural word size — and mirrors the
// zero-copy-view pattern used throughout the example pack's performance
// paths (e.g. curve.Scalar's byte-backed representations).
func bytesToInt32(b []byte, n int) []int32 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&b[0])), n)
}

func bytesToFloat32(b []byte, n int) []float32 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n)
}
