// Package oslayer is the OS abstraction collaborator the memory-verification
// core consumes: page allocation, virtual-to-physical translation,
// cacheline-flush intrinsics, CPU affinity, DIMM decode and MSR access.
// None of this implementation is tuned or feature-complete; it exists so the
// core has something real to call.
package oslayer

import (
	"github.com/infinivision/satgo/checksum"
)

// ChannelSpec describes how physical addresses are interleaved across DIMM
// channels, exactly as spec.md's find_dimm table: a hash mask XOR-reduced
// with the address selects the channel, channel_width picks the chip within
// it, and Chips names the chip per channel.
type ChannelSpec struct {
	Hash  uint64
	Width int
	Chips []string
}

// OS is the full collaborator contract the core consumes. A default Linux
// implementation is provided by NewLinux; tests substitute a fake.
type OS interface {
	// AllocateTestMem tries hugepages, then shared memory, then anonymous
	// mmap, then aligned heap, in that order, and returns whichever
	// succeeds first.
	AllocateTestMem(bytes int64) ([]byte, error)
	// PrepareTestMem maps [offset, offset+length) of a dynamically-mapped
	// arena; ReleaseTestMem undoes it.
	PrepareTestMem(offset, length int64) ([]byte, error)
	ReleaseTestMem(addr []byte, offset, length int64) error

	// VirtualToPhysical resolves a mapped address via the OS page map.
	// Returns (0, false) if the address is not resident.
	VirtualToPhysical(vaddr uintptr) (uint64, bool)

	// FindDIMM maps a physical address to a human-readable DIMM label
	// using spec.
	FindDIMM(paddr uint64, spec ChannelSpec) string
	// FindRegion returns the fixed-size memory region index a physical
	// address falls in, or -1 if topology is unknown.
	FindRegion(paddr uint64) int32
	// FindCoreMask returns the set of CPU ids with affinity to region.
	FindCoreMask(region int32) []int

	// Flush evicts one cacheline containing vaddr from every cache level.
	Flush(vaddr uintptr)
	// FastFlushSync issues a store fence so prior FastFlushHint calls are
	// globally visible.
	FastFlushSync()
	// FastFlushHint issues a non-blocking flush hint for vaddr.
	FastFlushHint(vaddr uintptr)

	// ReadMSR reads a model-specific register on the given CPU.
	ReadMSR(cpu int, addr uint32) (uint64, error)

	// AdlerMemcpyWarm copies src into dst and computes the Adler-4
	// checksum of src in the same pass, using whatever SIMD-assisted path
	// the platform supports. ok is false if the platform lacks the
	// capability; callers fall back to checksum.MemcpyAdlerBlock.
	AdlerMemcpyWarm(dst, src []byte) (c checksum.Adler4, ok bool)

	// CPUStressWorkload runs one unit of an opaque floating-point busy
	// loop.
	CPUStressWorkload()

	// MarkTouched records that physical page paddr/pageSize has been
	// observed at least once. Idempotent; safe to call concurrently.
	MarkTouched(paddr uint64, pageSize int64)
}
