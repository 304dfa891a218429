package hear

import (
	"os"
	"strconv"

	"github.com/hearsys/hear-go/pkg/hear/logging"
)

const (
	defaultBlockSize  = 65536
	defaultPoolSize   = 4
	defaultPoolSbufLB = 8 * 1024 * 1024 // 8 MiB
)

// Config carries the knobs spec.md's "build-time switches" and environment
// variables expose. It is read once, at Open/OpenThread time, and held fixed
// for the life of an Interposer — the same "selected at init, fixed for the
// process" contract the original design applies to the PRF back-end choice.
type Config struct {
	// Pipelining enables the 3-block sliding-window overlap path. When
	// false, every AllReduce call takes the non-pipelined path regardless
	// of Count.
	Pipelining bool
	// BlockSize is the element count per pipeline block (HEAR_PIPELINING_BLOCK_SIZE).
	BlockSize int

	// PoolEnabled selects the preallocated ring over per-call heap
	// allocation for scratch buffers.
	PoolEnabled bool
	// PoolSize is the number of slabs in the ring (HEAR_MPOOL_SIZE).
	PoolSize int
	// PoolSlabLen is the byte length of each slab (HEAR_MPOOL_SBUF_LEN).
	PoolSlabLen int

	// AESBackend selects the AES-block PRF back-end over the lightweight
	// xorshift back-end (HEAR_ENABLE_AESNI).
	AESBackend bool

	// BaselinePassthrough forwards every AllReduce call straight to the
	// Collective, bypassing masking entirely. Used for performance
	// comparisons against the unmodified collective.
	BaselinePassthrough bool

	// DebugValidate shadow-calls the native reduce on plaintext and asserts
	// the masked path produced a bit-identical aggregate. Integer types
	// only; see mask.go.
	DebugValidate bool

	// Profiler receives wall-clock timings for mask/comm/alloc stages, if
	// non-nil. See profiler.go.
	Profiler Profiler

	// Logger receives orchestration-level log lines. Defaults to a
	// slog.Default()-backed logger when nil.
	Logger logging.Logger
}

// FromEnv returns the default Config with the four documented environment
// variables applied on top. It never reads HEAR_ENABLE_AESNI unless
// aesniBuildActive is true, mirroring spec.md §6: "If set and a hardware-cipher build is
// active, select the block-cipher PRF back-end".
func FromEnv(aesniBuildActive bool) Config {
	cfg := Config{
		Pipelining:  true,
		BlockSize:   defaultBlockSize,
		PoolEnabled: true,
		PoolSize:    defaultPoolSize,
		PoolSlabLen: defaultPoolSbufLB,
	}

	if v, ok := lookupInt("HEAR_PIPELINING_BLOCK_SIZE"); ok && v > 0 {
		cfg.BlockSize = v
	}
	if v, ok := lookupInt("HEAR_MPOOL_SIZE"); ok && v > 0 {
		cfg.PoolSize = v
	}
	if v, ok := lookupInt("HEAR_MPOOL_SBUF_LEN"); ok && v > 0 {
		cfg.PoolSlabLen = v
	}
	if aesniBuildActive {
		if _, set := os.LookupEnv("HEAR_ENABLE_AESNI"); set {
			cfg.AESBackend = true
		}
	}

	return cfg
}

func lookupInt(name string) (int, bool) {
	s, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (c Config) logger() logging.Logger {
	if c.Logger == nil {
		return logging.New(nil)
	}
	return c.Logger
}

func (c Config) normalized() Config {
	if c.BlockSize <= 0 {
		c.BlockSize = defaultBlockSize
	}
	if c.PoolSize <= 0 {
		c.PoolSize = defaultPoolSize
	}
	if c.PoolSlabLen <= 0 {
		c.PoolSlabLen = defaultPoolSbufLB
	}
	if c.Pipelining && c.PoolEnabled && c.PoolSize < 2 {
		// §4.4: "P >= 2 is required when pipelining is enabled."
		c.PoolSize = 2
	}
	return c
}
