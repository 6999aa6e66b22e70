// Package page defines the page descriptor shared by every page
// queue and worker: the value record that travels between "empty" and
// "valid" as workers fill, copy, invert and check it.
package page

import "github.com/infinivision/satgo/pattern"

// InvalidTag marks a freshly-allocated page that has never been
// assigned to a NUMA region.
const InvalidTag int32 = 0xf001

// DontCareTag indicates no tag preference in a take_empty/take_valid
// call.
const DontCareTag int32 = -1

// Descriptor is the value record carried by the page queues. Empty
// iff Pattern == nil.
type Descriptor struct {
	Offset      uint64          // byte offset within the test arena
	VAddr       uintptr         // current mapping, 0 if unmapped
	PAddr       uint64          // physical address, 0 if unknown
	Pattern     *pattern.Pattern // assigned pattern, nil == empty
	LastPattern *pattern.Pattern // pattern observed at the previous read
	Tag         int32           // bitmask: bit r set iff page lies in region r
	TouchCount  uint32          // number of reads from this page
	LastCPU     int             // last CPU to write this page
	Timestamp   int64           // unix-nano timestamp of last touch
}

// Empty reports whether the descriptor is unassigned.
func (d Descriptor) Empty() bool {
	return d.Pattern == nil
}

// Valid reports whether the descriptor carries an assigned pattern.
func (d Descriptor) Valid() bool {
	return d.Pattern != nil
}

// New returns a freshly initialized, empty descriptor at the given
// arena offset, tagged as never-assigned.
func New(offset uint64) Descriptor {
	return Descriptor{Offset: offset, Tag: InvalidTag}
}
