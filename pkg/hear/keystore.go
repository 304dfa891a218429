package hear

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/hhcho/frand"
)

// entropyBufferSize and entropyRounds mirror the buffered-PRG construction
// the example pack's hcholab-sfgwas-lmm repo uses for its per-party PRG
// table (mpc/random.go's frand.NewCustom(seed, bufferSize, rounds)): a
// fixed-size read-ahead buffer refilled by a stream cipher run for
// entropyRounds rounds, fast enough to call once per communicator
// registration.
const (
	entropyBufferSize = 1024
	entropyRounds     = 20
)

// keyNonceStore maps each live communicator to its shared-key vector K_s and
// its evolving nonce K_n. It exclusively owns both; the mask engine reads
// them by reference but never mutates them (mutation is this store's job
// alone, in advanceNonce and free).
//
// The store uses a handle-to-index map over an append-only backing slice for
// both K_s and K_n, per spec.md §4.3, so lookups stay O(1) while key
// material stays in contiguous storage. free marks an index as gone by
// zeroizing it and clearing the map entry rather than compacting the slice,
// since spec.md's append-only growth model never needed to reuse slots — an
// acceptable trade given registration is far from the hot path.
type keyNonceStore struct {
	ksStorage [][]uint32
	ksIndex   map[Comm]int

	knStorage []uint32
	knIndex   map[Comm]int

	entropy *frand.RNG
	prf     prfKernel
}

const rootRank = 0

// randomWord draws one fresh 32-bit word from the registration-time
// entropy source. Only register() calls this; the per-call hot path never
// touches frand, only the deterministic PRF kernel.
func (s *keyNonceStore) randomWord() uint32 {
	var buf [4]byte
	_, _ = s.entropy.Read(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

func newKeyNonceStore(prf prfKernel) *keyNonceStore {
	// frand gives a fast, buffered CSPRNG for the registration-time entropy
	// source (spec.md's black-box "encr_noise_generator"); it is never used
	// on the per-call hot path, only once per communicator at registration.
	// The seed itself comes from the OS CSPRNG (crypto/rand), which is the
	// one-time, non-hot-path use the design treats as an external black box.
	// Grounded on hcholab-sfgwas-lmm/mpc/random.go, where frand.NewCustom
	// seeds a per-party PRG table the same way — one RNG minted per logical
	// party (here, per store, shared by all its communicators) rather than
	// per call.
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		invariantViolation("newKeyNonceStore", "%v", err)
	}

	return &keyNonceStore{
		ksIndex: make(map[Comm]int),
		knIndex: make(map[Comm]int),
		entropy: frand.NewCustom(seed, entropyBufferSize, entropyRounds),
		prf:     prf,
	}
}

// register implements spec.md §4.3's register(comm): every rank contributes
// one fresh random word at its own index via an all-gather, and the root
// broadcasts a fresh nonce. Registering the same handle twice is a
// programming error (spec.md §7(d)).
func (s *keyNonceStore) register(coll Collective, comm Comm) error {
	if _, dup := s.ksIndex[comm]; dup {
		invariantViolation("register", "communicator %v already registered", comm)
	}

	rank, err := coll.CommRank(comm)
	if err != nil {
		return errorf("register", err)
	}

	myShare := s.randomWord()
	ks, err := coll.AllGatherUint32(comm, myShare)
	if err != nil {
		return errorf("register", err)
	}

	s.ksStorage = append(s.ksStorage, ks)
	s.ksIndex[comm] = len(s.ksStorage) - 1

	var myNonceSeed uint32
	if rank == rootRank {
		myNonceSeed = s.randomWord()
	}
	kn, err := coll.BroadcastUint32(comm, rootRank, myNonceSeed)
	if err != nil {
		return errorf("register", err)
	}

	s.knStorage = append(s.knStorage, kn)
	s.knIndex[comm] = len(s.knStorage) - 1
	return nil
}

// advanceNonce replaces K_n[comm] with prf(K_n[comm]). It must be called
// exactly once per reduction, before masking, on every rank; because the PRF
// is deterministic and every rank started from the same broadcast seed, the
// nonces stay synchronised without further communication (spec.md §4.3).
func (s *keyNonceStore) advanceNonce(comm Comm) {
	idx, ok := s.knIndex[comm]
	if !ok {
		invariantViolation("advanceNonce", "unknown communicator %v", comm)
	}
	s.knStorage[idx] = s.prf.single(s.knStorage[idx])
}

func (s *keyNonceStore) sharedKeys(comm Comm) ([]uint32, error) {
	idx, ok := s.ksIndex[comm]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownComm, comm)
	}
	return s.ksStorage[idx], nil
}

func (s *keyNonceStore) nonce(comm Comm) (uint32, error) {
	idx, ok := s.knIndex[comm]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrUnknownComm, comm)
	}
	return s.knStorage[idx], nil
}

// free removes comm's key and nonce entries and zeroizes the backing words.
// This resolves Open Question 1: spec.md's original design never
// deregistered on communicator free, so long-running programs that
// repeatedly split and free communicators grew the store unbounded. Freeing
// an unregistered or already-freed handle is a programming error.
func (s *keyNonceStore) free(comm Comm) {
	ksIdx, ok := s.ksIndex[comm]
	if !ok {
		invariantViolation("free", "communicator %v is not registered", comm)
	}
	knIdx := s.knIndex[comm]

	zeroizeWords(s.ksStorage[ksIdx])
	zeroizeWord(&s.knStorage[knIdx])

	delete(s.ksIndex, comm)
	delete(s.knIndex, comm)
}

// teardown zeroizes every remaining entry, called from Close/Finalize.
func (s *keyNonceStore) teardown() {
	for _, ks := range s.ksStorage {
		zeroizeWords(ks)
	}
	for i := range s.knStorage {
		zeroizeWord(&s.knStorage[i])
	}
	s.ksIndex = make(map[Comm]int)
	s.knIndex = make(map[Comm]int)
}
