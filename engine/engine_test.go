package engine

import (
	"context"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinivision/satgo/config"
	"github.com/infinivision/satgo/oslayer"
	"github.com/infinivision/satgo/telemetry"
)

func smallConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.PageSizeBytes = 4096
	cfg.MemoryMB = 1 // 256 pages
	cfg.RuntimeSeconds = 150 * time.Millisecond
	cfg.FillThreads = 1
	cfg.MemoryThreads = 1
	cfg.CheckThreads = 1
	cfg.InvertThreads = 1
	cfg.Strict = true
	return cfg
}

// TestCleanRunYieldsZeroDiagnosesAndTouchesEveryPage mirrors the "clean
// run" scenario: a small fault-free arena run to completion must report
// zero errors and zero diagnoses, and every page must have been cycled
// through at least once.
func TestCleanRunYieldsZeroDiagnosesAndTouchesEveryPage(t *testing.T) {
	cfg := smallConfig()
	rs := telemetry.NewRecordingSink()
	eng, err := New(cfg, oslayer.NewFake(), rs)
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Errors)
	assert.Equal(t, 0, res.Diagnoses)

	pages := int(int64(len(eng.arena)) / cfg.PageSizeBytes)
	for i := 0; i < pages; i++ {
		vaddr := uintptr(unsafe.Pointer(&eng.arena[i*int(cfg.PageSizeBytes)]))
		d, ok := eng.queue.PageForPAddr(uint64(vaddr))
		require.True(t, ok, "page %d must be resolvable by its identity-mapped address", i)
		assert.GreaterOrEqual(t, d.TouchCount, uint32(1), "page %d was never touched", i)
	}
}

// TestPauseResumeRunCompletesCleanly mirrors the "pause/resume" scenario
// at an integration level: a run with a pause window configured inside
// its runtime must still reach completion with no diagnoses, since
// pausing must not itself be mistaken for corruption.
func TestPauseResumeRunCompletesCleanly(t *testing.T) {
	cfg := smallConfig()
	cfg.RuntimeSeconds = 200 * time.Millisecond
	cfg.PauseDelay = 50 * time.Millisecond
	cfg.PauseDuration = 60 * time.Millisecond

	rs := telemetry.NewRecordingSink()
	eng, err := New(cfg, oslayer.NewFake(), rs)
	require.NoError(t, err)

	start := time.Now()
	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	elapsed := time.Since(start)

	assert.Equal(t, 0, res.Errors)
	assert.Equal(t, 0, res.Diagnoses)
	assert.GreaterOrEqual(t, elapsed, cfg.RuntimeSeconds)
}

// TestCacheCoherencyEnabledRunYieldsZeroDiagnoses mirrors the
// "cache coherency" scenario at the engine level: enabling the probe
// must not itself produce a single diagnosis over a short fault-free
// run.
func TestCacheCoherencyEnabledRunYieldsZeroDiagnoses(t *testing.T) {
	cfg := smallConfig()
	cfg.CacheCoherency.Enable = true
	cfg.CacheCoherency.LineCount = 64
	cfg.CacheCoherency.IncCount = 1000

	rs := telemetry.NewRecordingSink()
	eng, err := New(cfg, oslayer.NewFake(), rs)
	require.NoError(t, err)

	res, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Errors)
	assert.Equal(t, 0, res.Diagnoses)
}

// TestRunStopsEarlyOnContextCancellation confirms the orchestrator
// honors ctx even when RuntimeSeconds has not yet elapsed, the signal
// path WatchSignals relies on.
func TestRunStopsEarlyOnContextCancellation(t *testing.T) {
	cfg := smallConfig()
	cfg.RuntimeSeconds = 10 * time.Second

	rs := telemetry.NewRecordingSink()
	eng, err := New(cfg, oslayer.NewFake(), rs)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = eng.Run(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
