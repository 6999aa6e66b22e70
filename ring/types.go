// Package ring implements the bounded record queue the slow
// comparator uses while localizing a miscompare: up to Capacity
// ErrorRecords are held before the caller is expected to switch into
// full-page mode and flush every further mismatch directly.
package ring

import (
	"container/list"

	"github.com/infinivision/satgo/telemetry"
)

// Capacity is the bound named in spec.md 4.3.1.
const Capacity = 128

// Queue is a capacity-bounded FIFO of telemetry.ErrorRecord.
type Queue interface {
	IsEmpty() bool
	IsFull() bool
	Push(telemetry.ErrorRecord) bool
	Pop() (telemetry.ErrorRecord, bool)
	Len() int
}

type queue struct {
	l   *list.List
	cap int
}

// New returns an empty bounded queue with the default capacity.
func New() Queue {
	return &queue{l: list.New(), cap: Capacity}
}
