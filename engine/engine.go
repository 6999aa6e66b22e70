package engine

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/nnsgmsone/damrey/logger"

	"github.com/infinivision/satgo/config"
	"github.com/infinivision/satgo/oslayer"
	"github.com/infinivision/satgo/page"
	"github.com/infinivision/satgo/pattern"
	"github.com/infinivision/satgo/queue"
	"github.com/infinivision/satgo/telemetry"
	"github.com/infinivision/satgo/worker"
)

const defaultArenaBytes = 64 << 20

// New validates cfg, allocates the test arena through os, and builds
// the page queue and pattern catalog the run needs. It does not start
// any worker; call Run for that.
func New(cfg config.Config, os oslayer.OS, sink telemetry.Sink) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	catalog, err := pattern.Init()
	if err != nil {
		return nil, err
	}

	memBytes := cfg.MemoryMB * 1024 * 1024
	if memBytes <= 0 {
		memBytes = defaultArenaBytes
	}
	arena, err := os.AllocateTestMem(memBytes)
	if err != nil {
		return nil, err
	}

	n := int(int64(len(arena)) / cfg.PageSizeBytes)
	var q queue.Queue
	if cfg.UseFineGrainQueue {
		q = queue.NewFineGrain(n, cfg.PageSizeBytes)
	} else {
		q = queue.NewCoarse(n, cfg.PageSizeBytes)
	}

	log := logger.New(cfg.LogWriter, "satgo")
	return &Engine{
		cfg:     cfg,
		os:      os,
		catalog: catalog,
		queue:   q,
		arena:   arena,
		status:  worker.NewStatus(),
		sink:    newCountingSink(sink),
		log:     log,
	}, nil
}

func (e *Engine) deps(tag int32) worker.Deps {
	return worker.Deps{
		Queue:          e.queue,
		Catalog:        e.catalog,
		OS:             e.os,
		Arena:          e.arena,
		PageSize:       e.cfg.PageSizeBytes,
		Tag:            tag,
		ChannelSpec:    e.cfg.ChannelSpec,
		TagMode:        e.cfg.TagMode,
		ErrorInjection: e.cfg.ErrorInjection,
	}
}

// neededPages is the floor for the empty-page reservoir: one page per
// configured copy, invert, check and cpu-stress thread, mirroring
// InitializePages' neededpages calculation (sat.cc:400-401).
func (e *Engine) neededPages() int {
	return e.cfg.MemoryThreads + e.cfg.InvertThreads + e.cfg.CheckThreads + e.cfg.CPUStressThreads
}

// freePages picks how many of the arena's pages start (and stay, in
// steady state) empty, per InitializePages' two queue-dependent
// formulas (sat.cc:408-415): fine-grain queues interleave empty and
// valid entries in one structure and traverse randomly, so they need a
// much larger reserve than a coarse queue's dedicated free list does.
func (e *Engine) freePages(pagesTotal int) int {
	needed := e.neededPages()
	var free int
	if e.cfg.UseFineGrainQueue {
		free = pagesTotal / 5 * 2
	} else {
		free = pagesTotal/100 + 2*needed
	}
	if free < needed {
		free = needed
	}
	if free > pagesTotal/2 {
		free = pagesTotal / 2
	}
	return free
}

func (e *Engine) copyMode() worker.CopyMode {
	switch {
	case e.cfg.Warm:
		return worker.CopyWarm
	case e.cfg.Strict:
		return worker.CopyStrict
	default:
		return worker.CopyLoose
	}
}

// settleTickInterval is how often Run's main loop reevaluates the
// deadline, the max_errors threshold and the crazy-error-injection
// schedule. The original does the equivalent check once per wall-clock
// second (sat.cc's run loop); this is finer-grained since Go timers
// cost nothing like a blocking OS-level tick does.
const settleTickInterval = 20 * time.Millisecond

// crazyInjectionInterval mirrors kInjectionFrequency (sat.cc:1971):
// with CrazyErrorInjection on, every this-often the orchestrator
// relabels one valid page's assigned pattern without touching its
// content, so the next check against it manufactures a deterministic
// block-level re-pattern diagnosis.
const crazyInjectionInterval = 10 * time.Second

// Run fills the arena, re-empties its free-page reservoir, spawns
// every configured worker, runs them until ctx is done, RuntimeSeconds
// elapses, or the error count exceeds MaxErrors, stops them, drains
// the remaining valid pages through one final check pass, and returns
// the pass/fail summary.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	pagesTotal := int(int64(len(e.arena)) / e.cfg.PageSizeBytes)

	if err := e.runFillPhase(pagesTotal); err != nil {
		return Result{}, err
	}

	regions := e.settlePages(pagesTotal, e.freePages(pagesTotal))
	tags := e.regionTags(regions)

	var workers []worker.Worker
	for i := 0; i < e.cfg.MemoryThreads; i++ {
		workers = append(workers, worker.NewCopyWorker("copy", e.deps(tags[i%len(tags)]), e.copyMode(), i))
	}
	for i := 0; i < e.cfg.InvertThreads; i++ {
		workers = append(workers, worker.NewInvertWorker("invert", e.deps(tags[i%len(tags)]), i))
	}
	for i := 0; i < e.cfg.CheckThreads; i++ {
		workers = append(workers, worker.NewCheckWorker("check", e.deps(tags[i%len(tags)]), i))
	}
	for i := 0; i < e.cfg.CPUStressThreads; i++ {
		workers = append(workers, worker.NewCPUStressWorker("cpu-stress", e.os))
	}

	if e.cfg.CacheCoherency.Enable {
		threadN := runtime.NumCPU()
		state := worker.NewCacheCoherencyState(e.cfg.CacheCoherency.LineCount, threadN)
		for i := 0; i < threadN; i++ {
			workers = append(workers, worker.NewCacheCoherencyWorker("cache-coherency", state, i, threadN, e.cfg.CacheCoherency.IncCount))
		}
	}
	if e.cfg.CPUFreq.Enable {
		for _, cpu := range allCPUs() {
			workers = append(workers, worker.NewCPUFreqWorker("cpu-freq", e.os, cpu, e.cfg.CPUFreq.ThresholdMHz, e.cfg.CPUFreq.RoundMHz))
		}
	}

	e.status.AddWorkers(len(workers))
	e.status.Initialize()
	e.log.Infof("satgo: starting %d workers over %d pages (%d regions) for %s\n",
		len(workers), pagesTotal, len(regions), e.cfg.RuntimeSeconds)

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w worker.Worker) {
			defer wg.Done()
			w.Run(e.status, e.sink)
		}(w)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	if e.cfg.PauseDelay > 0 && e.cfg.PauseDuration > 0 {
		go e.runPauseSchedule(runCtx)
	}

	e.runUntilStop(runCtx, start)
	cancelRun()
	e.status.StopWorkers()
	wg.Wait()

	worker.DrainToEmpty(e.deps(page.DontCareTag), e.sink, 0)
	e.queue.Analyze(e.sink)

	res := Result{
		Errors:       e.sink.errorCount(),
		Diagnoses:    e.sink.diagnosisCount(),
		PagesTouched: pagesTotal,
		Duration:     time.Since(start).Nanoseconds(),
	}
	e.log.Infof("satgo: finished, errors=%d diagnoses=%d\n", res.Errors, res.Diagnoses)
	return res, nil
}

// runFillPhase fills every page in the arena to valid, using its own
// Status distinct from the main run's, since fill workers are
// self-terminating (worker.FillWorker removes itself on quota
// exhaustion) and must complete before settlePages carves the
// empty-page reservoir back out of them.
func (e *Engine) runFillPhase(pagesTotal int) error {
	fillThreads := e.cfg.FillThreads
	if fillThreads <= 0 {
		fillThreads = 1
	}
	base, extra := pagesTotal/fillThreads, pagesTotal%fillThreads

	fillStatus := worker.NewStatus()
	var fillers []worker.Worker
	for i := 0; i < fillThreads; i++ {
		quota := base
		if i < extra {
			quota++
		}
		fillers = append(fillers, worker.NewFillWorker("fill", e.deps(page.DontCareTag), quota))
	}

	fillStatus.AddWorkers(len(fillers))
	fillStatus.Initialize()

	var wg sync.WaitGroup
	for _, w := range fillers {
		wg.Add(1)
		go func(w worker.Worker) {
			defer wg.Done()
			w.Run(fillStatus, e.sink)
		}(w)
	}
	wg.Wait()
	return nil
}

// runUntilStop blocks until ctx is cancelled, RuntimeSeconds elapses,
// or the accumulated error count exceeds MaxErrors (spec.md 5's
// cancellation contract), running the crazy-error-injection schedule
// alongside it when configured.
func (e *Engine) runUntilStop(ctx context.Context, start time.Time) {
	deadline := start.Add(e.cfg.RuntimeSeconds)
	var nextInjection time.Time
	if e.cfg.CrazyErrorInjection {
		nextInjection = start.Add(crazyInjectionInterval)
	}

	ticker := time.NewTicker(settleTickInterval)
	defer ticker.Stop()

runLoop:
	for {
		select {
		case <-ctx.Done():
			break runLoop
		case now := <-ticker.C:
			if !now.Before(deadline) {
				break runLoop
			}
			if e.cfg.MaxErrors > 0 && e.sink.errorCount() > e.cfg.MaxErrors {
				e.log.Errorf("satgo: stopping early, error count exceeded max_errors=%d\n", e.cfg.MaxErrors)
				break runLoop
			}
			if e.cfg.CrazyErrorInjection && !now.Before(nextInjection) {
				e.injectCrazyError()
				nextInjection = now.Add(crazyInjectionInterval)
			}
		}
	}
}

// injectCrazyError mirrors sat.cc's crazy_error_injection_ tick
// (sat.cc:2012-2019): it relabels one valid page's assigned pattern to
// the catalog's first pattern without rewriting its content, so the
// next check against it will find the page's actual content matches a
// different pattern than the one it's now tagged with -- a
// deterministic, self-inflicted block-error diagnosis exercising that
// reporting path without waiting on a real fault.
func (e *Engine) injectCrazyError() {
	h, ok := e.queue.TakeValid(page.DontCareTag, e.sink)
	if !ok {
		return
	}
	d := h.Descriptor()
	if d.Pattern != nil {
		d.Pattern = e.catalog.Pattern(0)
	}
	e.queue.PutValid(h, d)
}

// runPauseSchedule implements the power-spike pause window: after
// PauseDelay the controller pauses every worker for PauseDuration, then
// resumes them. It returns early without resuming if ctx is cancelled
// mid-pause, since StopWorkers (called by Run's teardown) already wakes
// a paused controller.
func (e *Engine) runPauseSchedule(ctx context.Context) {
	t := time.NewTimer(e.cfg.PauseDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return
	case <-t.C:
	}
	e.status.PauseWorkers()
	select {
	case <-ctx.Done():
		return
	case <-time.After(e.cfg.PauseDuration):
	}
	e.status.ResumeWorkers()
}

func allCPUs() []int {
	n := runtime.NumCPU()
	cpus := make([]int, n)
	for i := range cpus {
		cpus[i] = i
	}
	return cpus
}
