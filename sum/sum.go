// Package sum wraps a stdlib hash.Hash32 so callers that only need a
// one-shot digest don't have to juggle Reset/Write/Sum32 themselves.
package sum

import (
	"hash"
)

// Sum resets h, writes data into it, and returns the resulting digest.
func Sum(h hash.Hash32, data []byte) uint32 {
	h.Reset()
	h.Write(data)
	return h.Sum32()
}
