package ring

import (
	"testing"

	"github.com/infinivision/satgo/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestQueueOverflowsAtCapacity(t *testing.T) {
	q := New()
	for i := 0; i < Capacity; i++ {
		assert.True(t, q.Push(telemetry.ErrorRecord{Actual: uint32(i)}))
	}
	assert.True(t, q.IsFull())
	assert.False(t, q.Push(telemetry.ErrorRecord{Actual: 999}))
	assert.Equal(t, Capacity, q.Len())
}

func TestQueueIsFIFO(t *testing.T) {
	q := New()
	q.Push(telemetry.ErrorRecord{Actual: 1})
	q.Push(telemetry.ErrorRecord{Actual: 2})

	r1, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), r1.Actual)

	r2, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, uint32(2), r2.Actual)

	_, ok = q.Pop()
	assert.False(t, ok)
}
