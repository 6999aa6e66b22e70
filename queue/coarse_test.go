package queue

import (
	"testing"

	"github.com/infinivision/satgo/page"
	"github.com/infinivision/satgo/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoarseTakeEmptyDrainsWithoutDuplicate(t *testing.T) {
	const n = 10
	q := NewCoarse(n, 4096)

	seen := make(map[uint64]bool)
	for i := 0; i < n; i++ {
		h, ok := q.TakeEmpty(page.DontCareTag, nil)
		require.True(t, ok)
		assert.False(t, seen[h.Descriptor().Offset])
		seen[h.Descriptor().Offset] = true
	}
	_, ok := q.TakeEmpty(page.DontCareTag, nil)
	assert.False(t, ok, "ring must be empty after draining every page")
}

func TestCoarsePutValidThenTakeValidRoundTrips(t *testing.T) {
	q := NewCoarse(4, 4096)
	cat, err := pattern.Init()
	require.NoError(t, err)

	h, ok := q.TakeEmpty(page.DontCareTag, nil)
	require.True(t, ok)
	d := h.Descriptor()
	d.Pattern = cat.Pattern(0)
	assert.True(t, q.PutValid(h, d))

	h2, ok := q.TakeValid(page.DontCareTag, nil)
	require.True(t, ok)
	assert.True(t, h2.Descriptor().Valid())
}

func TestCoarsePushFailsSilentlyWhenFull(t *testing.T) {
	r := newRing(2)
	assert.True(t, r.push(page.Descriptor{Offset: 0}))
	assert.True(t, r.push(page.Descriptor{Offset: 1}))
	assert.False(t, r.push(page.Descriptor{Offset: 2}), "ring sized n+1 holds at most n live entries")
}
