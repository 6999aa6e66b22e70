// Package config defines the external configuration contract the
// core consumes: every option named in spec.md's configuration table,
// plus defaults and validation.
package config

import (
	"io"
	"time"

	"github.com/infinivision/satgo/oslayer"
)

// RegionMode selects the affinity strategy the orchestrator uses when
// assigning workers to memory regions.
type RegionMode int

const (
	RegionModeNone RegionMode = iota
	RegionModeLocalNUMA
	RegionModeRemoteNUMA
)

func (m RegionMode) String() string {
	switch m {
	case RegionModeLocalNUMA:
		return "local_numa"
	case RegionModeRemoteNUMA:
		return "remote_numa"
	default:
		return "none"
	}
}

// CacheCoherencyConfig holds the cache-coherency probe's parameters.
type CacheCoherencyConfig struct {
	Enable    bool
	LineCount int
	LineSize  int
	IncCount  int
}

// CPUFreqConfig holds the CPU-frequency probe's parameters.
type CPUFreqConfig struct {
	Enable       bool
	ThresholdMHz int
	RoundMHz     int
}

// Config mirrors the teacher's db.Config: one field per external
// option, grouped the way the table in spec.md section 6 groups them.
type Config struct {
	RuntimeSeconds time.Duration

	MemoryMB      int64 // 0 = auto
	ReserveMB     int64 // 0 = auto
	HugepageMB    int64 // 0 = auto
	PageSizeBytes int64

	MemoryThreads    int
	InvertThreads    int
	CheckThreads     int
	CPUStressThreads int
	FillThreads      int

	UseFineGrainQueue bool
	Strict            bool
	Warm              bool
	TagMode           bool

	MaxErrors int

	PauseDelay    time.Duration
	PauseDuration time.Duration

	ErrorInjection      bool
	CrazyErrorInjection bool

	RegionMode RegionMode

	CacheCoherency CacheCoherencyConfig
	CPUFreq        CPUFreqConfig

	ChannelSpec oslayer.ChannelSpec

	LogWriter io.Writer
}
