package mplsim

import (
	"encoding/binary"
	"math"

	"github.com/hearsys/hear-go/pkg/hear"
)

// combineReduce computes the element-wise reduction of n contributions
// (one []byte per rank, each exactly count*dtype.Size() bytes) according to
// op, returning a freshly allocated buffer holding the result every rank
// receives. Decoding through encoding/binary rather than an unsafe cast
// keeps this harness endian-explicit and independent of pkg/hear's own
// zero-copy views, which is the point of having a separate reference
// implementation to check the masked path against.
func combineReduce(contributions [][]byte, count int, dtype hear.Datatype, op hear.ReduceOp) []byte {
	switch dtype {
	case hear.Int32:
		return combineInt32(contributions, count, op)
	case hear.Int64:
		return combineInt64(contributions, count, op)
	case hear.Float32:
		return combineFloat32(contributions, count, op)
	case hear.Float64:
		return combineFloat64(contributions, count, op)
	default:
		panic("mplsim: unknown datatype")
	}
}

func combineInt32(contributions [][]byte, count int, op hear.ReduceOp) []byte {
	out := make([]byte, count*4)
	for j := 0; j < count; j++ {
		acc := int32(binary.LittleEndian.Uint32(contributions[0][j*4:]))
		for r := 1; r < len(contributions); r++ {
			v := int32(binary.LittleEndian.Uint32(contributions[r][j*4:]))
			acc = reduceInt32(acc, v, op)
		}
		binary.LittleEndian.PutUint32(out[j*4:], uint32(acc))
	}
	return out
}

func combineInt64(contributions [][]byte, count int, op hear.ReduceOp) []byte {
	out := make([]byte, count*8)
	for j := 0; j < count; j++ {
		acc := int64(binary.LittleEndian.Uint64(contributions[0][j*8:]))
		for r := 1; r < len(contributions); r++ {
			v := int64(binary.LittleEndian.Uint64(contributions[r][j*8:]))
			acc = reduceInt64(acc, v, op)
		}
		binary.LittleEndian.PutUint64(out[j*8:], uint64(acc))
	}
	return out
}

func combineFloat32(contributions [][]byte, count int, op hear.ReduceOp) []byte {
	out := make([]byte, count*4)
	for j := 0; j < count; j++ {
		acc := math.Float32frombits(binary.LittleEndian.Uint32(contributions[0][j*4:]))
		for r := 1; r < len(contributions); r++ {
			v := math.Float32frombits(binary.LittleEndian.Uint32(contributions[r][j*4:]))
			acc = reduceFloat32(acc, v, op)
		}
		binary.LittleEndian.PutUint32(out[j*4:], math.Float32bits(acc))
	}
	return out
}

func combineFloat64(contributions [][]byte, count int, op hear.ReduceOp) []byte {
	out := make([]byte, count*8)
	for j := 0; j < count; j++ {
		acc := math.Float64frombits(binary.LittleEndian.Uint64(contributions[0][j*8:]))
		for r := 1; r < len(contributions); r++ {
			v := math.Float64frombits(binary.LittleEndian.Uint64(contributions[r][j*8:]))
			acc = reduceFloat64(acc, v, op)
		}
		binary.LittleEndian.PutUint64(out[j*8:], math.Float64bits(acc))
	}
	return out
}

func reduceInt32(a, b int32, op hear.ReduceOp) int32 {
	switch op {
	case hear.OpSum:
		return a + b
	case hear.OpProd:
		return a * b
	case hear.OpMin:
		if b < a {
			return b
		}
		return a
	case hear.OpMax:
		if b > a {
			return b
		}
		return a
	default:
		panic("mplsim: unknown reduce op")
	}
}

func reduceInt64(a, b int64, op hear.ReduceOp) int64 {
	switch op {
	case hear.OpSum:
		return a + b
	case hear.OpProd:
		return a * b
	case hear.OpMin:
		if b < a {
			return b
		}
		return a
	case hear.OpMax:
		if b > a {
			return b
		}
		return a
	default:
		panic("mplsim: unknown reduce op")
	}
}

func reduceFloat32(a, b float32, op hear.ReduceOp) float32 {
	switch op {
	case hear.OpSum:
		return a + b
	case hear.OpProd:
		return a * b
	case hear.OpMin:
		if b < a {
			return b
		}
		return a
	case hear.OpMax:
		if b > a {
			return b
		}
		return a
	default:
		panic("mplsim: unknown reduce op")
	}
}

func reduceFloat64(a, b float64, op hear.ReduceOp) float64 {
	switch op {
	case hear.OpSum:
		return a + b
	case hear.OpProd:
		return a * b
	case hear.OpMin:
		if b < a {
			return b
		}
		return a
	case hear.OpMax:
		if b > a {
			return b
		}
		return a
	default:
		panic("mplsim: unknown reduce op")
	}
}
