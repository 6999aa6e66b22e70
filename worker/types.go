// Package worker implements the worker-status controller and the
// family of long-running worker tasks (fill, copy, invert, check,
// cpu-stress, cache-coherency, cpu-frequency) that exercise the
// memory-verification engine.
package worker

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/infinivision/satgo/oslayer"
	"github.com/infinivision/satgo/pattern"
	"github.com/infinivision/satgo/queue"
	"github.com/infinivision/satgo/telemetry"
)

type runState int

const (
	stateRun runState = iota
	statePause
	stateStop
)

// Status is the pause/resume/stop controller shared by every worker
// goroutine. Go has no native pthread_barrier_t; the rendezvous is
// built from a sync.Cond guarded by the same mutex that protects
// state, which is the idiomatic substitute (see DESIGN.md).
type Status struct {
	mu         sync.Mutex
	cond       *sync.Cond
	numWorkers int
	state      runState
	generation uint64 // bumped on every Pause/Resume/Stop transition
	arrived    int    // workers that have observed the current generation
}

// NewStatus returns a controller with zero workers, not yet
// initialized.
func NewStatus() *Status {
	s := &Status{state: stateRun}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Worker is the common interface every worker kind implements. Run
// loops until status reports stop (or the worker exits early via
// RemoveSelf).
type Worker interface {
	Run(status *Status, sink telemetry.Sink)
	Name() string
	// Iterations reports how many loop bodies this worker has completed,
	// for the pause/resume law tests.
	Iterations() int64
}

// Deps is the small dependency struct every worker kind is constructed
// with: a shared-read handle to the pattern catalog, the OS collaborator,
// the page queue it borrows from, and the arena it indexes into. Replaces
// the original's back-pointer to the whole engine, per DESIGN.md.
type Deps struct {
	Queue       queue.Queue
	Catalog     *pattern.Catalog
	OS          oslayer.OS
	Arena       []byte
	PageSize    int64
	Tag         int32
	ChannelSpec oslayer.ChannelSpec
	// TagMode selects the address-tag content scheme: every 64 B of a
	// page carries the hex of its own virtual address instead of pure
	// pattern content, per spec.md 4.3's address-tag mode.
	TagMode bool
	// ErrorInjection enables the copy worker's force_errors self-test
	// path: an occasional, deliberately corrupted byte so the error
	// detection and reporting path itself can be exercised end-to-end.
	ErrorInjection bool
}

func (d Deps) pageBuf(offset uint64) []byte {
	return d.Arena[offset : offset+uint64(d.PageSize)]
}

// vaddr returns the address of offset within this Deps' arena. Every
// worker that turns an empty page into a valid one (fill, or copy's
// destination) must stamp this onto the descriptor before handing it
// back, since a fresh page.Descriptor carries no address at all.
func (d Deps) vaddr(offset uint64) uintptr {
	return uintptr(unsafe.Pointer(&d.Arena[offset]))
}

// base provides the iteration counter and name plumbing shared by every
// worker kind.
type base struct {
	name       string
	iterations int64
}

func (b *base) Name() string { return b.name }

func (b *base) Iterations() int64 { return atomic.LoadInt64(&b.iterations) }

func (b *base) tick() { atomic.AddInt64(&b.iterations, 1) }
