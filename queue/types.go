// Package queue implements the two flavors of concurrent page
// container workers borrow pages from: a fine-grain queue with one
// mutex per slot, and a coarse-grain queue with a single mutex
// protecting a ring. Both guarantee at most one worker holds a page
// at a time and that every page is reachable from any starting slot
// in bounded tries.
package queue

import (
	"github.com/infinivision/satgo/page"
	"github.com/infinivision/satgo/telemetry"
)

// Queue is the contract both flavors satisfy; the orchestrator
// selects one or the other via Config.UseFineGrainQueue.
type Queue interface {
	// TakeEmpty borrows a page currently marked empty. tag is matched
	// against page.DontCareTag or a region bitmask.
	TakeEmpty(tag int32, sink telemetry.Sink) (Handle, bool)
	// TakeValid borrows a page currently marked valid.
	TakeValid(tag int32, sink telemetry.Sink) (Handle, bool)
	// PutEmpty returns a handle, storing a cleared (Pattern == nil)
	// copy of updated as the new descriptor. Tag and address fields in
	// updated are preserved, so a caller that just resolved a page's
	// region can re-empty it without losing that assignment.
	PutEmpty(h Handle, updated page.Descriptor) bool
	// PutValid returns a handle, storing updated as the new
	// descriptor. updated.Pattern must be non-nil.
	PutValid(h Handle, updated page.Descriptor) bool
	// Analyze emits a histogram of touch counts to sink.
	Analyze(sink telemetry.Sink)
	// PageForPAddr returns a copy of the slot covering paddr, if any.
	PageForPAddr(paddr uint64) (page.Descriptor, bool)
}

// Handle is sole ownership of one page descriptor, produced by
// TakeEmpty/TakeValid and consumed by PutEmpty/PutValid.
type Handle struct {
	desc    page.Descriptor
	release func(page.Descriptor)
}

// Descriptor returns the page this handle currently owns.
func (h Handle) Descriptor() page.Descriptor {
	return h.desc
}
