package queue

import (
	"math/rand"
	"sync"

	"github.com/infinivision/satgo/page"
	"github.com/infinivision/satgo/telemetry"
)

// ring is a single-mutex circular buffer sized n+1 so Push can always
// tell "full" apart from "empty" without a separate counter -- the
// classic one-slot-wasted circular buffer technique. It backs both
// halves (empty pages, valid pages) of a Coarse queue.
type ring struct {
	mu      sync.Mutex
	buf     []page.Descriptor
	nextIn  int
	nextOut int
	pushed  int64
	popped  int64
}

func newRing(n int) *ring {
	return &ring{buf: make([]page.Descriptor, n+1)}
}

func (r *ring) sizeLocked() int {
	return (r.nextIn - r.nextOut + len(r.buf)) % len(r.buf)
}

// pushLocked fails silently (returns false) when the ring is full.
func (r *ring) pushLocked(d page.Descriptor) bool {
	next := (r.nextIn + 1) % len(r.buf)
	if next == r.nextOut {
		return false
	}
	r.buf[r.nextIn] = d
	r.nextIn = next
	r.pushed++
	return true
}

// popRandomLocked swaps the next-out slot with a uniformly chosen
// interior slot before returning it, so repeated pops don't always
// drain in push order.
func (r *ring) popRandomLocked() (page.Descriptor, bool) {
	n := r.sizeLocked()
	if n == 0 {
		return page.Descriptor{}, false
	}
	if n > 1 {
		offset := rand.Intn(n)
		swapIdx := (r.nextOut + offset) % len(r.buf)
		r.buf[r.nextOut], r.buf[swapIdx] = r.buf[swapIdx], r.buf[r.nextOut]
	}
	d := r.buf[r.nextOut]
	r.nextOut = (r.nextOut + 1) % len(r.buf)
	r.popped++
	return d, true
}

func (r *ring) push(d page.Descriptor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushLocked(d)
}

// popRandomMatching pops until it finds a descriptor matching tag,
// pushing every non-matching pop back before returning so the ring's
// contents are unchanged on a miss.
func (r *ring) popRandomMatching(tag int32) (page.Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.sizeLocked()
	var skipped []page.Descriptor
	for i := 0; i < n; i++ {
		d, ok := r.popRandomLocked()
		if !ok {
			break
		}
		if matchesTag(tag, d) {
			for _, s := range skipped {
				r.pushLocked(s)
			}
			return d, true
		}
		skipped = append(skipped, d)
	}
	for _, s := range skipped {
		r.pushLocked(s)
	}
	return page.Descriptor{}, false
}

func (r *ring) snapshot() []page.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]page.Descriptor, 0, r.sizeLocked())
	for i := r.nextOut; i != r.nextIn; i = (i + 1) % len(r.buf) {
		out = append(out, r.buf[i])
	}
	return out
}

// Coarse is the single-mutex-per-pool page container: one ring of
// empty pages, one ring of valid pages. There is no per-page lock, so
// the "handle" a caller gets back is just the descriptor plus which
// ring to return it to.
type Coarse struct {
	empty, valid *ring
	pageSize     int64
}

// NewCoarse builds a coarse-grain queue for n pages of the given
// size, with every page starting out in the empty pool.
func NewCoarse(n int, pageSize int64) *Coarse {
	q := &Coarse{
		empty:    newRing(n),
		valid:    newRing(n),
		pageSize: pageSize,
	}
	for i := 0; i < n; i++ {
		q.empty.push(page.New(uint64(i) * uint64(pageSize)))
	}
	return q
}

func (q *Coarse) TakeEmpty(tag int32, sink telemetry.Sink) (Handle, bool) {
	d, ok := q.empty.popRandomMatching(tag)
	if !ok {
		return Handle{}, false
	}
	return Handle{desc: d, release: q.releaseEmpty}, true
}

func (q *Coarse) TakeValid(tag int32, sink telemetry.Sink) (Handle, bool) {
	d, ok := q.valid.popRandomMatching(tag)
	if !ok {
		return Handle{}, false
	}
	d.TouchCount++
	return Handle{desc: d, release: q.releaseValid}, true
}

func (q *Coarse) releaseEmpty(d page.Descriptor) {
	d.Pattern = nil
	q.empty.push(d)
}

func (q *Coarse) releaseValid(d page.Descriptor) {
	q.valid.push(d)
}

func (q *Coarse) PutEmpty(h Handle, updated page.Descriptor) bool {
	if h.release == nil {
		return false
	}
	q.releaseEmpty(updated)
	return true
}

func (q *Coarse) PutValid(h Handle, updated page.Descriptor) bool {
	if updated.Pattern == nil || h.release == nil {
		return false
	}
	q.releaseValid(updated)
	return true
}

func (q *Coarse) Analyze(sink telemetry.Sink) {
	step := sink.Step("Queue Analysis")
	var buckets [32]uint64
	for _, d := range append(q.empty.snapshot(), q.valid.snapshot()...) {
		readcount := d.TouchCount
		b := 0
		for ; b < 31; b++ {
			if readcount < (1 << uint(b)) {
				break
			}
		}
		buckets[b]++
	}
	for b := 0; b < 32; b++ {
		if buckets[b] > 0 {
			step.AddMeasurement("Reads per page", float64(buckets[b]))
		}
	}
}

func (q *Coarse) PageForPAddr(paddr uint64) (page.Descriptor, bool) {
	for _, d := range append(q.empty.snapshot(), q.valid.snapshot()...) {
		if d.PAddr <= paddr && d.PAddr+uint64(q.pageSize) > paddr {
			return d, true
		}
	}
	return page.Descriptor{}, false
}
