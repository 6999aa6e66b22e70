package pattern

import (
	"testing"

	"github.com/infinivision/satgo/checksum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wordStreamBlock(p *Pattern) []byte {
	block := make([]byte, checksum.CRCBlockSize)
	for i := 0; i < wordsPerBlock; i++ {
		w := p.Word(uint32(i))
		off := i * 4
		block[off] = byte(w)
		block[off+1] = byte(w >> 8)
		block[off+2] = byte(w >> 16)
		block[off+3] = byte(w >> 24)
	}
	return block
}

func TestInitPrecomputesChecksumOverWordStream(t *testing.T) {
	cat, err := Init()
	require.NoError(t, err)
	require.True(t, cat.Len() > 0)

	for i := 0; i < cat.Len(); i++ {
		p := cat.Pattern(i)
		block := wordStreamBlock(p)
		got, ok := checksum.Sum4K(block)
		require.True(t, ok)
		assert.True(t, got.Equals(p.Checksum()), "pattern %s: checksum(word stream) must equal precomputed crc", p.Name())
	}
}

func TestPatternIndexIsDeterministicAndWraps(t *testing.T) {
	cat, err := Init()
	require.NoError(t, err)

	a := cat.Pattern(0)
	b := cat.Pattern(cat.Len())
	assert.Same(t, a, b)
}

func TestDistinctPatternsProduceDistinctWordsSomewhere(t *testing.T) {
	cat, err := Init()
	require.NoError(t, err)

	for i := 0; i < cat.Len(); i++ {
		for j := i + 1; j < cat.Len(); j++ {
			pi, pj := cat.Pattern(i), cat.Pattern(j)
			differs := false
			for k := uint32(0); k < 64; k++ {
				if pi.Word(k) != pj.Word(k) {
					differs = true
					break
				}
			}
			assert.True(t, differs, "patterns %s and %s must diverge within the first 64 words", pi.Name(), pj.Name())
		}
	}
}

func TestRandomPatternReturnsCatalogMember(t *testing.T) {
	cat, err := Init()
	require.NoError(t, err)

	p := cat.RandomPattern()
	found := false
	for i := 0; i < cat.Len(); i++ {
		if cat.Pattern(i) == p {
			found = true
			break
		}
	}
	assert.True(t, found)
}
