package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinivision/satgo/oslayer"
)

// TestComputeFrequencyFallsBelowThreshold exercises the pure
// computation CPUFreqWorker.Run drives every interval, stubbing a TSC/
// APERF/MPERF delta equivalent to 800 MHz against a 1000 MHz threshold,
// per the "cpu-frequency probe below threshold" scenario.
func TestComputeFrequencyFallsBelowThreshold(t *testing.T) {
	w := NewCPUFreqWorker("cpu-freq", oslayer.NewFake(), 0, 1000, 1)

	start := time.Now()
	prev := cpuSample{tsc: 0, aperf: 0, mperf: 0, at: start}
	// One second elapsed, 800e6 TSC cycles, APERF == MPERF (no turbo):
	// freq = dTSC/1e6 * dAperf/dMperf / interval = 800 * 1 / 1 = 800 MHz.
	cur := cpuSample{tsc: 800_000_000, aperf: 800_000_000, mperf: 800_000_000, at: start.Add(time.Second)}

	freq, ok := w.computeFrequency(prev, cur)
	require.True(t, ok)
	assert.Equal(t, 800, freq)
	assert.Less(t, freq, w.ThresholdMHz)
}

func TestComputeFrequencyRejectsBackwardMSR(t *testing.T) {
	w := NewCPUFreqWorker("cpu-freq", oslayer.NewFake(), 0, 1000, 1)
	start := time.Now()
	prev := cpuSample{tsc: 1_000_000_000, aperf: 1000, mperf: 1000, at: start}
	cur := cpuSample{tsc: 999_999_999, aperf: 1001, mperf: 1001, at: start.Add(time.Second)}
	_, ok := w.computeFrequency(prev, cur)
	assert.False(t, ok)
}

func TestComputeFrequencyRejectsIdleArtefact(t *testing.T) {
	w := NewCPUFreqWorker("cpu-freq", oslayer.NewFake(), 0, 1000, 1)
	start := time.Now()
	prev := cpuSample{tsc: 0, aperf: 0, mperf: 0, at: start}
	cur := cpuSample{tsc: 500_000, aperf: 500_000, mperf: 500_000, at: start.Add(time.Second)}
	_, ok := w.computeFrequency(prev, cur)
	assert.False(t, ok, "a sub-1e6 TSC delta must be rejected as an idle artefact")
}

func TestReadSampleUsesConfiguredMSRs(t *testing.T) {
	fake := oslayer.NewFake()
	fake.SetMSR(2, msrTscAddr, 42)
	fake.SetMSR(2, msrAperfAddr, 7)
	fake.SetMSR(2, msrMperfAddr, 9)

	w := NewCPUFreqWorker("cpu-freq", fake, 2, 1000, 1)
	s, ok := w.readSample()
	require.True(t, ok)
	assert.Equal(t, uint64(42), s.tsc)
	assert.Equal(t, uint64(7), s.aperf)
	assert.Equal(t, uint64(9), s.mperf)
}
