package hear

// maskEngine turns a plaintext element vector into a masked vector using a
// rank's shared key, a communicator's current nonce, and a per-element PRF
// output, and provides the inverse for the aggregate. It never mutates the
// key/nonce store it reads from, never fails once dispatched, and never
// holds a logging.Logger — enforced by the static check in
// pkg/hear/internalcheck — because every buffer it touches may be plaintext.
type maskEngine struct {
	prf prfKernel
}

func newMaskEngine(prf prfKernel) *maskEngine {
	return &maskEngine{prf: prf}
}

// intMask returns rank r's additive mask word for element j.
func (m *maskEngine) intMask(ks []uint32, kn uint32, r, j int) uint32 {
	return m.prf.single(seedFor(ks[r], kn, j))
}

// oddIntMask returns rank r's multiplicative mask word for element j,
// forced odd so its inverse mod 2^32 exists (spec.md §4.2: "masks are
// constrained to the odd integers so that the inverse exists").
func (m *maskEngine) oddIntMask(ks []uint32, kn uint32, r, j int) uint32 {
	return m.intMask(ks, kn, r, j) | 1
}

// encryptIntSum masks x (N*count int32 laid out one rank's worth at a time
// is NOT how this is called — see interposer.go: each rank only ever masks
// its own count-element contribution) into y. rank is the caller's 0-based
// rank, n is the communicator's participant count.
func (m *maskEngine) encryptIntSum(y, x []int32, rank, n int, ks []uint32, kn uint32) {
	if rank != n-1 {
		for j, xv := range x {
			y[j] = xv + int32(m.intMask(ks, kn, rank, j))
		}
		return
	}
	// Last rank carries the negated sum of every other rank's mask so the
	// masks telescope to zero after the collective's sum.
	for j, xv := range x {
		var acc uint32
		for r := 0; r < n-1; r++ {
			acc += m.intMask(ks, kn, r, j)
		}
		y[j] = xv - int32(acc)
	}
}

// decryptIntSum is a no-op: once the collective has summed the masked
// values, the masks have already cancelled. It exists for symmetry with the
// encrypt side and as the hook debug validation runs against.
func (m *maskEngine) decryptIntSum([]int32) {}

// encryptIntProd is the multiplicative analogue of encryptIntSum.
func (m *maskEngine) encryptIntProd(y, x []int32, rank, n int, ks []uint32, kn uint32) {
	if rank != n-1 {
		for j, xv := range x {
			y[j] = int32(uint32(xv) * m.oddIntMask(ks, kn, rank, j))
		}
		return
	}
	for j, xv := range x {
		prod := uint32(1)
		for r := 0; r < n-1; r++ {
			prod *= m.oddIntMask(ks, kn, r, j)
		}
		y[j] = int32(uint32(xv) * modInverseOdd(prod))
	}
}

func (m *maskEngine) decryptIntProd([]int32) {}

// floatMaskScale bounds the magnitude of the derived additive float mask so
// that masked sums stay within float32's useful dynamic range regardless of
// how large |K_n + j| happens to be; the PRF output is otherwise a uniform
// 32-bit word with no natural float interpretation.
const floatMaskScale = 1 << 16

func floatMask(word uint32) float32 {
	// Map the PRF word to a float32 roughly uniform on [-floatMaskScale/2,
	// floatMaskScale/2). The precise distribution is unimportant — only that
	// it is a deterministic function of the PRF output, same as the integer
	// masks.
	u := float64(word) / float64(1<<32) // [0,1)
	return float32((u - 0.5) * floatMaskScale)
}

// encryptFloatSum is the floating-point analogue of encryptIntSum. Because
// float addition is not associative, the masked aggregate is only
// guaranteed to match the unmasked aggregate within a bounded rounding
// discrepancy (spec.md §4.2, §8 property 3), never bit-exactly.
func (m *maskEngine) encryptFloatSum(y, x []float32, rank, n int, ks []uint32, kn uint32) {
	if rank != n-1 {
		for j, xv := range x {
			y[j] = xv + floatMask(m.intMask(ks, kn, rank, j))
		}
		return
	}
	for j, xv := range x {
		var acc float32
		for r := 0; r < n-1; r++ {
			acc += floatMask(m.intMask(ks, kn, r, j))
		}
		y[j] = xv - acc
	}
}

func (m *maskEngine) decryptFloatSum([]float32) {}

// modInverseOdd returns x^-1 mod 2^32 for odd x, via the standard Newton
// iteration for odd-word modular inverses: starting from the 3-bit-correct
// seed x itself, each iteration doubles the number of correct low bits, so
// five iterations take 3 bits to 96 — comfortably past the 32 needed. Pure
// arithmetic; no big.Int or third-party bignum library has anything to add
// over native uint32 wraparound here (see DESIGN.md).
func modInverseOdd(x uint32) uint32 {
	inv := x
	for i := 0; i < 5; i++ {
		inv *= 2 - x*inv
	}
	return inv
}

// bitsEqualInt32 compares two int32 slices for the DebugValidate path, which
// requires bit-exact agreement for integer operators (spec.md §4.2).
func bitsEqualInt32(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// floatsWithinTolerance implements property 3's bound: |masked - native| <=
// N * eps * sum(|x|), where eps is float32's unit round-off.
func floatsWithinTolerance(masked, native []float32, n int, sumAbs float64) bool {
	const eps = 1.1920929e-7 // float32 machine epsilon
	tol := float32(float64(n) * eps * sumAbs)
	if tol < eps {
		tol = eps
	}
	for i := range masked {
		d := masked[i] - native[i]
		if d < 0 {
			d = -d
		}
		if d > tol {
			return false
		}
	}
	return true
}
