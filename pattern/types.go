// Package pattern implements the catalog of named deterministic
// pseudorandom bit patterns that the memory-verification engine fills
// and checks pages against.
package pattern

import "github.com/infinivision/satgo/checksum"

// Pattern is an immutable, named source of 32-bit words reproducible
// from an index alone, plus the precomputed Adler-4 of one canonical
// filled 4 KiB block.
type Pattern struct {
	name   string
	seed   uint32
	crc    checksum.Adler4
	wordFn func(uint32) uint32
}

// Name returns the pattern's catalog name.
func (p *Pattern) Name() string {
	return p.name
}

// Checksum returns the precomputed Adler-4 of one canonical 4 KiB
// block filled entirely from this pattern.
func (p *Pattern) Checksum() checksum.Adler4 {
	return p.crc
}

// Catalog owns the fixed set of patterns used for a run. It is
// read-only after Init.
type Catalog struct {
	patterns []*Pattern
}
