package worker

import (
	"time"

	"github.com/infinivision/satgo/telemetry"
)

// cacheCoherencyPolynomial is the shift-feedback polynomial for
// SimpleRandom: x^64 + x^63 + x^61 + x^60 + 1, producing a pseudorandom
// cycle of period 2^64-1. Ported verbatim -- this is a load-bearing
// algorithm, not incidental C++ style.
const cacheCoherencyPolynomial = 0xD800000000000000

// simpleRandom is a one-step xorshift-with-feedback generator, deliberately
// cheap so the cache-coherency probe's inner loop stays tight.
func simpleRandom(seed uint64) uint64 {
	var mask uint64
	if seed&1 != 0 {
		mask = ^uint64(0)
	}
	return (seed >> 1) ^ (mask & cacheCoherencyPolynomial)
}

// CacheCoherencyState is the shared per-cacheline counter array every
// CacheCoherencyWorker mutates. Each cacheline holds one counter per
// thread; threads mutate only their own counter, but every thread sums
// every cacheline's counter at its own offset, which is what exercises
// cross-core cache traffic.
type CacheCoherencyState struct {
	lines   [][]uint32
	threadN int
}

// NewCacheCoherencyState allocates lineCount cachelines, each wide enough
// to hold one counter per thread.
func NewCacheCoherencyState(lineCount, threadCount int) *CacheCoherencyState {
	s := &CacheCoherencyState{lines: make([][]uint32, lineCount), threadN: threadCount}
	for i := range s.lines {
		s.lines[i] = make([]uint32, threadCount)
	}
	return s
}

func coherencyOffset(lineNum, threadNum, threadCount int) int {
	if lineNum&threadNum&1 != 0 {
		return (threadCount &^ 1) - threadNum
	}
	return threadNum
}

// CacheCoherencyWorker is pinned one-per-core; it increments its own
// counter at IncCount random cachelines, then sums and zeroes every
// cacheline at its own offset, expecting the sum (mod 256) to equal
// IncCount (mod 256).
type CacheCoherencyWorker struct {
	base
	State     *CacheCoherencyState
	ThreadNum int
	ThreadN   int
	IncCount  int
}

func NewCacheCoherencyWorker(name string, state *CacheCoherencyState, threadNum, threadN, incCount int) *CacheCoherencyWorker {
	return &CacheCoherencyWorker{base: base{name: name}, State: state, ThreadNum: threadNum, ThreadN: threadN, IncCount: incCount}
}

func (w *CacheCoherencyWorker) Run(status *Status, sink telemetry.Sink) {
	step := sink.Step(w.name)
	var paused bool
	r := uint64(time.Now().UnixNano()) ^ uint64(w.ThreadNum)<<32
	start := time.Now()
	var totalInc int64

	for status.ShouldContinue(&paused) {
		for i := 0; i < w.IncCount; i++ {
			r = simpleRandom(r)
			line := int(r % uint64(len(w.State.lines)))
			off := coherencyOffset(line, w.ThreadNum, w.ThreadN)
			w.State.lines[line][off]++
		}
		totalInc += int64(w.IncCount)

		globalSum := 0
		for line := 0; line < len(w.State.lines); line++ {
			off := coherencyOffset(line, w.ThreadNum, w.ThreadN)
			globalSum += int(w.State.lines[line][off])
			w.State.lines[line][off] = 0
		}

		if byte(globalSum) != byte(w.IncCount) {
			step.AddDiagnosis(telemetry.Diagnosis{
				Verdict: telemetry.VerdictProbeFail,
				Message: "global and local cacheline counters do not match",
				CPU:     w.ThreadNum,
			})
		}
		w.tick()
	}

	elapsedUS := float64(time.Since(start).Microseconds())
	if elapsedUS > 0 {
		step.AddMeasurement("Cache Coherency Increment Rate", float64(totalInc)*1e6/elapsedUS)
	}
	step.AddMeasurement("Cache Coherency Total Increments", float64(totalInc))
}
