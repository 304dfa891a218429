package logging

import (
	"context"
	"log/slog"
	"time"
)

const redactedPlaceholder = "[redacted]"

// Logger receives the interposer's lifecycle and orchestration events. It is
// deliberately not a generic four-level logging facade: every method
// corresponds to one moment in an Interposer's life and carries only the
// fields that moment has available (communicator handles, sizes, stage
// names). There is no method that accepts an arbitrary message plus a raw
// key/nonce word, so a host implementation can never accidentally log
// masking secrets through this interface — the static check in
// pkg/hear/internalcheck only needs to keep mask.go and prf.go from
// importing this package at all, because the interface itself gives them
// nothing useful to call even if they did.
type Logger interface {
	// InterposerOpened fires once, at the end of Open/OpenThread, after
	// CommWorld has been registered in the key/nonce store.
	InterposerOpened(ctx context.Context, pipelining, poolEnabled, aesBackend bool)
	// CommRegistered fires after CommCreate/CommSplit/CommDup mints and
	// registers a new communicator's key material.
	CommRegistered(ctx context.Context, op string, comm uint64)
	// CommFreed fires after CommFree zeroizes and deregisters a
	// communicator's key/nonce entry (the Open Question 1 cleanup path).
	CommFreed(ctx context.Context, comm uint64)
	// PoolExhausted fires when the buffer pool could not satisfy an
	// acquire, immediately before AllReduce surfaces ErrPoolExhausted.
	PoolExhausted(ctx context.Context, comm uint64, requestedBytes int)
	// StageTiming fires once per profiled AllReduce stage (alloc, encrypt,
	// comm, decrypt) when the attached Profiler is a hear.SlogProfiler
	// holding this Logger; other Profilers never call it.
	StageTiming(ctx context.Context, stage string, elapsed time.Duration)
	// With returns a Logger that attaches the given slog attributes to
	// every subsequent call, e.g. Logger.With("rank", r).
	With(args ...any) Logger
}

// New returns a Logger backed by the provided slog.Logger. Passing nil binds
// to slog.Default().
func New(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogLogger{logger: logger}
}

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) InterposerOpened(ctx context.Context, pipelining, poolEnabled, aesBackend bool) {
	l.logger.InfoContext(ctx, "hear interposer opened",
		"pipelining", pipelining, "pool_enabled", poolEnabled, "aes_backend", aesBackend)
}

func (l *slogLogger) CommRegistered(ctx context.Context, op string, comm uint64) {
	l.logger.DebugContext(ctx, "hear communicator registered", "op", op, "comm", comm)
}

func (l *slogLogger) CommFreed(ctx context.Context, comm uint64) {
	l.logger.DebugContext(ctx, "hear communicator freed", "comm", comm)
}

func (l *slogLogger) PoolExhausted(ctx context.Context, comm uint64, requestedBytes int) {
	l.logger.WarnContext(ctx, "hear buffer pool exhausted", "comm", comm, "requested_bytes", requestedBytes)
}

func (l *slogLogger) StageTiming(ctx context.Context, stage string, elapsed time.Duration) {
	l.logger.DebugContext(ctx, "hear stage timing", "stage", stage, "elapsed", elapsed)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

// Nop returns a Logger that discards everything, useful for benchmarks and
// tests that don't want log noise.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) InterposerOpened(context.Context, bool, bool, bool)  {}
func (nopLogger) CommRegistered(context.Context, string, uint64)     {}
func (nopLogger) CommFreed(context.Context, uint64)                  {}
func (nopLogger) PoolExhausted(context.Context, uint64, int)         {}
func (nopLogger) StageTiming(context.Context, string, time.Duration) {}
func (nopLogger) With(args ...any) Logger                            { return nopLogger{} }

// Redacted marks attributes that contain sensitive information. Callers must
// avoid logging raw key/nonce material; this attribute is a reminder that
// the value was intentionally removed.
func Redacted(key string) slog.Attr {
	return slog.String(key, redactedPlaceholder)
}

// Placeholder returns the canonical string that represents a redacted value.
func Placeholder() string {
	return redactedPlaceholder
}
