package hear

import (
	"context"
	"time"

	"github.com/hearsys/hear-go/pkg/hear/logging"
)

// Profiler receives wall-clock timings for the interposer's hot-path stages.
// It is the idiomatic-Go substitute for the original design's cycle-accurate
// RDTSC profiling mode: Go offers no portable, non-cgo way to read the
// timestamp counter, and none of the example pack's dependencies provide one
// either, so time.Since is the grounded substitute (see DESIGN.md).
type Profiler interface {
	Observe(stage string, d time.Duration)
}

// NopProfiler discards every observation, the same as leaving
// Config.Profiler nil.
type NopProfiler struct{}

// Observe implements Profiler.
func (NopProfiler) Observe(string, time.Duration) {}

// SlogProfiler logs each observation at debug level through a logging.Logger.
type SlogProfiler struct {
	Logger logging.Logger
}

// Observe implements Profiler.
func (p SlogProfiler) Observe(stage string, d time.Duration) {
	if p.Logger == nil {
		return
	}
	p.Logger.StageTiming(context.Background(), stage, d)
}

func observe(p Profiler, stage string, start time.Time) {
	if p == nil {
		return
	}
	p.Observe(stage, time.Since(start))
}
