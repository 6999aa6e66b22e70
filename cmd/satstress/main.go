// satstress drives a single run of the memory stress-and-verify engine
// from the command line, wiring the Linux OS collaborator and a log
// sink, then exiting 1 if the run surfaced any error or diagnosis.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/infinivision/satgo/config"
	"github.com/infinivision/satgo/engine"
	"github.com/infinivision/satgo/oslayer"
	"github.com/infinivision/satgo/telemetry"
)

func main() {
	cfg := config.DefaultConfig()

	runtimeSeconds := flag.Int("s", int(cfg.RuntimeSeconds/time.Second), "run time in seconds")
	memoryMB := flag.Int64("M", cfg.MemoryMB, "arena size in MiB, 0 for auto")
	pageKB := flag.Int64("pagesize", cfg.PageSizeBytes/1024, "page size in KiB")
	memoryThreads := flag.Int("memory_threads", cfg.MemoryThreads, "number of copy worker threads")
	invertThreads := flag.Int("invert_threads", cfg.InvertThreads, "number of invert worker threads")
	checkThreads := flag.Int("check_threads", cfg.CheckThreads, "number of check worker threads")
	fillThreads := flag.Int("fill_threads", cfg.FillThreads, "number of fill worker threads")
	cpuStressThreads := flag.Int("cpu_stress_threads", cfg.CPUStressThreads, "number of CPU-stress worker threads")
	coarse := flag.Bool("coarse", false, "use the coarse-grain page queue instead of fine-grain")
	warm := flag.Bool("warm", false, "use the SIMD-assisted warm copy path where available")
	tagMode := flag.Bool("tag_mode", false, "fill pages with per-chunk address tags instead of pure pattern content")
	cacheCoherency := flag.Bool("cc_test", false, "run the cache-coherency probe alongside the memory workers")
	cpuFreqTest := flag.Bool("cpu_freq_test", false, "run the CPU-frequency probe alongside the memory workers")
	cpuFreqThreshold := flag.Int("cpu_freq_threshold_mhz", 1000, "CPU-frequency probe failure threshold in MHz")
	maxErrors := flag.Int("max_errors", cfg.MaxErrors, "stop the run early once this many errors have been seen, 0 for unlimited")
	errorInjection := flag.Bool("force_errors", false, "occasionally corrupt one byte of a copy worker's source page as a self-test")
	crazyErrorInjection := flag.Bool("force_errors_like_crazy", false, "periodically relabel a valid page's pattern without touching its content as a self-test")
	regionMode := flag.String("region_mode", "none", "page region affinity strategy: none, local_numa, or remote_numa")
	flag.Parse()

	cfg.RuntimeSeconds = time.Duration(*runtimeSeconds) * time.Second
	cfg.MemoryMB = *memoryMB
	cfg.PageSizeBytes = *pageKB * 1024
	cfg.MemoryThreads = *memoryThreads
	cfg.InvertThreads = *invertThreads
	cfg.CheckThreads = *checkThreads
	cfg.FillThreads = *fillThreads
	cfg.CPUStressThreads = *cpuStressThreads
	cfg.UseFineGrainQueue = !*coarse
	cfg.Warm = *warm
	cfg.TagMode = *tagMode
	cfg.CacheCoherency.Enable = *cacheCoherency
	cfg.CacheCoherency.LineCount = 64
	cfg.CacheCoherency.IncCount = 1000
	cfg.CPUFreq.Enable = *cpuFreqTest
	cfg.CPUFreq.ThresholdMHz = *cpuFreqThreshold
	cfg.CPUFreq.RoundMHz = 50
	cfg.MaxErrors = *maxErrors
	cfg.ErrorInjection = *errorInjection
	cfg.CrazyErrorInjection = *crazyErrorInjection
	cfg.RegionMode = parseRegionMode(*regionMode)
	cfg.LogWriter = os.Stderr

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "satstress: %v\n", err)
		os.Exit(1)
	}
}

// parseRegionMode maps the region_mode flag's string value onto
// config.RegionMode, falling back to RegionModeNone for anything it
// doesn't recognize rather than failing the run over a typo.
func parseRegionMode(s string) config.RegionMode {
	switch s {
	case "local_numa":
		return config.RegionModeLocalNUMA
	case "remote_numa":
		return config.RegionModeRemoteNUMA
	default:
		return config.RegionModeNone
	}
}

func run(cfg config.Config) error {
	linuxOS := oslayer.NewLinux(cfg.MemoryMB*1024*1024, cfg.PageSizeBytes)
	sink := telemetry.NewLogSink(cfg.LogWriter, "satstress")

	eng, err := engine.New(cfg, linuxOS, sink)
	if err != nil {
		return err
	}

	ctx, cancel := engine.WatchSignals(context.Background())
	defer cancel()

	res, err := eng.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "pages touched: %d, errors: %d, diagnoses: %d, duration: %s\n",
		res.PagesTouched, res.Errors, res.Diagnoses, time.Duration(res.Duration))

	if res.Errors > 0 || res.Diagnoses > 0 {
		os.Exit(1)
	}
	return nil
}
