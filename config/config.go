package config

import (
	"math/bits"
	"os"
	"time"

	"github.com/infinivision/satgo/errmsg"
)

const defaultPageSizeBytes = 1 << 20 // 1 MiB

// DefaultConfig returns the table's stated defaults: 20 s runtime, 1 MiB
// pages, fine-grain queue, strict copy verification on, one copy, invert,
// check and fill thread each, logging to stderr, and everything else at
// its zero value (auto-sized, probes disabled).
func DefaultConfig() Config {
	return Config{
		RuntimeSeconds:    20 * time.Second,
		PageSizeBytes:     defaultPageSizeBytes,
		MemoryThreads:     1,
		InvertThreads:     1,
		CheckThreads:      1,
		FillThreads:       1,
		UseFineGrainQueue: true,
		Strict:            true,
		LogWriter:         os.Stderr,
	}
}

// Validate checks the setup-fail conditions that depend on the
// configuration alone (page size, memory size, thread counts, channel
// width, rounding grain), returning the first errmsg sentinel that
// applies. Whether the machine has enough free memory for the arena is
// not checked; errmsg.InsufficientFreeMem is never returned.
func (c Config) Validate() error {
	if c.PageSizeBytes < 1024 {
		return errmsg.PageSizeTooSmall
	}
	if bits.OnesCount64(uint64(c.PageSizeBytes)) != 1 {
		return errmsg.PageSizeNotPowerOfTwo
	}
	if c.MemoryMB < 0 || (c.MemoryMB > 0 && c.MemoryMB*1024*1024%c.PageSizeBytes != 0) {
		return errmsg.MemorySizeInvalid
	}
	if c.MemoryThreads < 0 || c.InvertThreads < 0 || c.CheckThreads < 0 ||
		c.CPUStressThreads < 0 || c.FillThreads < 0 {
		return errmsg.ThreadCountInvalid
	}
	if len(c.ChannelSpec.Chips) > 0 && c.ChannelSpec.Width%len(c.ChannelSpec.Chips) != 0 {
		return errmsg.ChannelWidthInvalid
	}
	if c.CPUFreq.Enable && c.CPUFreq.RoundMHz <= 0 {
		return errmsg.RoundGrainInvalid
	}
	return nil
}
