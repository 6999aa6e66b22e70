package queue

import (
	"sync"

	"github.com/infinivision/satgo/page"
	"github.com/infinivision/satgo/telemetry"
)

type slot struct {
	mu   sync.Mutex
	desc page.Descriptor
}

// FineGrain is the per-slot-locked page container. A worker acquires
// slot i by a successful TryLock; it becomes sole owner of that
// descriptor until it releases via PutEmpty/PutValid.
type FineGrain struct {
	slots    []slot
	pageSize int64

	a, c, modlength int64

	randMu   [4]sync.Mutex
	randSeed [4]uint64
}

// NewFineGrain builds a fine-grain queue of n slots for pages of the
// given size. Every slot starts out holding an empty page.New
// descriptor at its own offset; Seed can replace one before workers
// start.
func NewFineGrain(n int, pageSize int64) *FineGrain {
	q := &FineGrain{
		slots:    make([]slot, n),
		pageSize: pageSize,
	}
	for i := range q.slots {
		q.slots[i].desc = page.New(uint64(i) * uint64(pageSize))
	}
	for i := 0; i < 4; i++ {
		q.randSeed[i] = uint64(i) + 0xbeef
	}
	q.a, q.c, q.modlength = buildGenerator(int64(n))
	return q
}

// Seed installs d directly into slot i. Only safe before workers
// start; there is no locking here by design, mirroring the original's
// InitializePages which constructs every page_entry before any worker
// thread exists.
func (q *FineGrain) Seed(i int, d page.Descriptor) {
	q.slots[i].desc = d
}

// buildGenerator constructs the linear congruential walk (a, c, m)
// used to visit every slot in [0, length) exactly once per cycle,
// ported from FineLockPEQueue's constructor.
func buildGenerator(length int64) (a, c, modlength int64) {
	if length < 3 {
		return 1, 1, length
	}
	modlength = length
	a = getA(modlength) % modlength
	for a == 1 {
		modlength++
		a = getA(modlength) % modlength
	}
	c = getC(modlength)
	return a, c, modlength
}

// getA returns a such that a-1 is divisible by every prime factor of
// m, per the Hull-Dobell construction.
func getA(m int64) int64 {
	remaining := m
	a := int64(1)
	if (remaining/4)*4 == remaining {
		a = 2
	}
	for i := int64(2); i <= m; i++ {
		if (remaining/i)*i == remaining {
			remaining /= i
			for (remaining/i)*i == remaining {
				remaining /= i
			}
			a *= i
		}
	}
	return (a + 1) % m
}

// getC returns a prime approximately 3/4 the size of m.
func getC(m int64) int64 {
	start := (3*m)/4 + 1
	for possible := start; possible > 1; possible-- {
		failed := false
		for i := int64(2); i < possible; i++ {
			if (possible/i)*i == possible {
				failed = true
				break
			}
		}
		if !failed {
			return possible
		}
	}
	return 1
}

// randomU64FromSlot advances one of the four independent 64-bit LCG
// seeds, grounded on GetRandom64FromSlot.
func (q *FineGrain) randomU64FromSlot(i int) uint64 {
	result := 2862933555777941757*q.randSeed[i] + 3037000493
	q.randSeed[i] = result
	return result
}

// randomU64 tries each of the four seed locks in turn so concurrent
// searches rarely contend on the same generator.
func (q *FineGrain) randomU64() uint64 {
	for i := 0; i < 4; i++ {
		if q.randMu[i].TryLock() {
			v := q.randomU64FromSlot(i)
			q.randMu[i].Unlock()
			return v
		}
	}
	q.randMu[0].Lock()
	v := q.randomU64FromSlot(0)
	q.randMu[0].Unlock()
	return v
}

func matchesTag(tag int32, d page.Descriptor) bool {
	return tag == page.DontCareTag || d.Tag&tag != 0
}

// findAndLock walks the queue's LCG cycle starting from a random
// phase, looking for a slot matching wantValid and tag. The predicate
// is checked once on a dirty, unlocked read (cheap, may race) and
// again under the slot's lock once TryLock succeeds (authoritative).
func (q *FineGrain) findAndLock(wantValid bool, tag int32) (int, bool) {
	n := uint64(len(q.slots))
	if n == 0 {
		return 0, false
	}
	first := q.randomU64() % n
	next := uint64(1)

	for i := uint64(0); i < n; i++ {
		idx := (next + first) % n
		next = uint64(q.a)*next + uint64(q.c)
		next %= uint64(q.modlength)
		for next >= n {
			next = uint64(q.a)*next + uint64(q.c)
			next %= uint64(q.modlength)
		}

		dirty := q.slots[idx].desc
		if dirty.Valid() != wantValid || !matchesTag(tag, dirty) {
			continue
		}

		if !q.slots[idx].mu.TryLock() {
			continue
		}
		d := q.slots[idx].desc
		if d.Valid() != wantValid || !matchesTag(tag, d) {
			q.slots[idx].mu.Unlock()
			continue
		}
		return int(idx), true
	}
	return 0, false
}

func (q *FineGrain) TakeEmpty(tag int32, sink telemetry.Sink) (Handle, bool) {
	idx, ok := q.findAndLock(false, tag)
	if !ok {
		return Handle{}, false
	}
	d := q.slots[idx].desc
	return Handle{desc: d, release: q.releaser(idx)}, true
}

func (q *FineGrain) TakeValid(tag int32, sink telemetry.Sink) (Handle, bool) {
	idx, ok := q.findAndLock(true, tag)
	if !ok {
		return Handle{}, false
	}
	q.slots[idx].desc.TouchCount++
	d := q.slots[idx].desc
	return Handle{desc: d, release: q.releaser(idx)}, true
}

func (q *FineGrain) releaser(idx int) func(page.Descriptor) {
	return func(d page.Descriptor) {
		q.slots[idx].desc = d
		q.slots[idx].mu.Unlock()
	}
}

func (q *FineGrain) indexOf(offset uint64) (int, bool) {
	idx := int64(offset) / q.pageSize
	if idx < 0 || idx >= int64(len(q.slots)) {
		return 0, false
	}
	return int(idx), true
}

func (q *FineGrain) PutEmpty(h Handle, updated page.Descriptor) bool {
	_, ok := q.indexOf(updated.Offset)
	if !ok || h.release == nil {
		return false
	}
	updated.Pattern = nil
	h.release(updated)
	return true
}

func (q *FineGrain) PutValid(h Handle, updated page.Descriptor) bool {
	if updated.Pattern == nil || h.release == nil {
		return false
	}
	if _, ok := q.indexOf(updated.Offset); !ok {
		return false
	}
	h.release(updated)
	return true
}

func (q *FineGrain) Analyze(sink telemetry.Sink) {
	step := sink.Step("Queue Analysis")
	var buckets [32]uint64
	for i := range q.slots {
		readcount := q.slots[i].desc.TouchCount
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

func (q *FineGrain) PageForPAddr(paddr uint64) (page.Descriptor, bool) {
	for i := range q.slots {
		d := q.slots[i].desc
		if d.PAddr <= paddr && d.PAddr+uint64(q.pageSize) > paddr {
			return d, true
		}
	}
	return page.Descriptor{}, false
}
