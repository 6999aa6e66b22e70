package queue

import (
	"testing"

	"github.com/infinivision/satgo/page"
	"github.com/infinivision/satgo/pattern"
	"github.com/infinivision/satgo/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorSatisfiesHullDobell(t *testing.T) {
	for _, n := range []int64{4, 13, 64, 257, 4096} {
		a, c, m := buildGenerator(n)
		for _, p := range primeFactors(m) {
			assert.Equal(t, int64(0), (a-1)%p, "a-1 must be divisible by prime factor %d of m=%d", p, m)
		}
		assert.True(t, isPrime(c) || c == 1, "c must be prime (or 1 for trivial sizes)")
	}
}

func primeFactors(m int64) []int64 {
	var factors []int64
	remaining := m
	for i := int64(2); i <= remaining; i++ {
		if remaining%i == 0 {
			factors = append(factors, i)
			for remaining%i == 0 {
				remaining /= i
			}
		}
	}
	return factors
}

func isPrime(n int64) bool {
	if n < 2 {
		return false
	}
	for i := int64(2); i*i <= n; i++ {
		if n%i == 0 {
			return false
		}
	}
	return true
}

func TestWalkVisitsEverySlotWithinOneCycle(t *testing.T) {
	const n = 37
	for _, target := range []int{0, 1, n - 1, n / 2} {
		q := NewFineGrain(n, 4096)
		cat, err := pattern.Init()
		require.NoError(t, err)
		q.Seed(target, page.Descriptor{Offset: uint64(target) * 4096, Pattern: cat.Pattern(0)})

		h, ok := q.TakeValid(page.DontCareTag, nil)
		require.True(t, ok, "must find the single valid slot within one cycle")
		assert.Equal(t, uint64(target)*4096, h.Descriptor().Offset)
	}
}

func TestNoTwoWorkersHoldSameSlot(t *testing.T) {
	const n = 16
	q := NewFineGrain(n, 4096)
	cat, err := pattern.Init()
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		q.Seed(i, page.Descriptor{Offset: uint64(i) * 4096, Pattern: cat.Pattern(i)})
	}

	seen := make(map[uint64]bool)
	handles := make([]Handle, 0, n)
	for i := 0; i < n; i++ {
		h, ok := q.TakeValid(page.DontCareTag, nil)
		require.True(t, ok)
		assert.False(t, seen[h.Descriptor().Offset], "offset %d taken twice", h.Descriptor().Offset)
		seen[h.Descriptor().Offset] = true
		handles = append(handles, h)
	}

	// Every slot is held; a further take must fail.
	_, ok := q.TakeValid(page.DontCareTag, nil)
	assert.False(t, ok)

	for _, h := range handles {
		assert.True(t, q.PutValid(h, h.Descriptor()))
	}
}

func TestPutEmptyThenTakeEmptyRoundTrips(t *testing.T) {
	q := NewFineGrain(8, 4096)
	cat, err := pattern.Init()
	require.NoError(t, err)
	q.Seed(0, page.Descriptor{Offset: 0, Pattern: cat.Pattern(0)})

	h, ok := q.TakeValid(page.DontCareTag, nil)
	require.True(t, ok)
	assert.True(t, q.PutEmpty(h, h.Descriptor()))

	h2, ok := q.TakeEmpty(page.DontCareTag, nil)
	require.True(t, ok)
	assert.True(t, h2.Descriptor().Empty())
}

func TestTagFilterOnlyMatchesBitmask(t *testing.T) {
	q := NewFineGrain(4, 4096)
	cat, err := pattern.Init()
	require.NoError(t, err)
	q.Seed(0, page.Descriptor{Offset: 0, Pattern: cat.Pattern(0), Tag: 1})
	q.Seed(1, page.Descriptor{Offset: 4096, Pattern: cat.Pattern(0), Tag: 2})
	q.Seed(2, page.Descriptor{Offset: 8192, Tag: page.InvalidTag})
	q.Seed(3, page.Descriptor{Offset: 12288, Tag: page.InvalidTag})

	h, ok := q.TakeValid(2, nil)
	require.True(t, ok)
	assert.Equal(t, uint64(4096), h.Descriptor().Offset)
}

func TestAnalyzeEmitsHistogram(t *testing.T) {
	q := NewFineGrain(4, 4096)
	cat, err := pattern.Init()
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		q.Seed(i, page.Descriptor{Offset: uint64(i) * 4096, Pattern: cat.Pattern(0)})
	}
	sink := telemetry.NewRecordingSink()
	q.Analyze(sink)
	assert.NotEmpty(t, sink.Measurements["Reads per page"])
}
