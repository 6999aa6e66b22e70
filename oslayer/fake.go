package oslayer

import (
	"sync"

	"github.com/infinivision/satgo/checksum"
)

// Fake is an in-memory OS collaborator for tests: deterministic
// vaddr->paddr mapping (identity), a fixed DIMM/region table, and no
// hardware access at all. Exported so worker and engine tests in other
// packages can construct one directly.
type Fake struct {
	mu      sync.Mutex
	touched map[uint64]bool
	msrs    map[msrKey]uint64
	warmOK  bool
}

type msrKey struct {
	cpu  int
	addr uint32
}

// NewFake returns a Fake OS with AdlerMemcpyWarm capability enabled.
func NewFake() *Fake {
	return &Fake{touched: make(map[uint64]bool), msrs: make(map[msrKey]uint64), warmOK: true}
}

// SetMSR seeds the value ReadMSR returns for (cpu, addr), for tests that
// drive the CPU-frequency probe through a scripted sequence of readings.
func (f *Fake) SetMSR(cpu int, addr uint32, value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msrs[msrKey{cpu, addr}] = value
}

func (f *Fake) AllocateTestMem(bytes int64) ([]byte, error) { return make([]byte, bytes), nil }
func (f *Fake) PrepareTestMem(offset, length int64) ([]byte, error) {
	return make([]byte, length), nil
}
func (f *Fake) ReleaseTestMem(addr []byte, offset, length int64) error { return nil }

func (f *Fake) VirtualToPhysical(vaddr uintptr) (uint64, bool) { return uint64(vaddr), true }

func (f *Fake) FindDIMM(paddr uint64, spec ChannelSpec) string { return "fake-dimm" }
func (f *Fake) FindRegion(paddr uint64) int32                  { return 0 }
func (f *Fake) FindCoreMask(region int32) []int                { return []int{0} }

func (f *Fake) Flush(vaddr uintptr)         {}
func (f *Fake) FastFlushSync()              {}
func (f *Fake) FastFlushHint(vaddr uintptr) {}

func (f *Fake) ReadMSR(cpu int, addr uint32) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msrs[msrKey{cpu, addr}], nil
}

func (f *Fake) AdlerMemcpyWarm(dst, src []byte) (checksum.Adler4, bool) {
	if !f.warmOK {
		return checksum.Adler4{}, false
	}
	return checksum.MemcpyAdlerBlock(dst, src)
}

func (f *Fake) CPUStressWorkload() {}

func (f *Fake) MarkTouched(paddr uint64, pageSize int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[paddr/uint64(pageSize)] = true
}

// Touched reports whether MarkTouched has been called for this page, for
// test assertions.
func (f *Fake) Touched(paddr uint64, pageSize int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touched[paddr/uint64(pageSize)]
}
