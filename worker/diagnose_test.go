package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinivision/satgo/checksum"
	"github.com/infinivision/satgo/oslayer"
	"github.com/infinivision/satgo/pattern"
	"github.com/infinivision/satgo/telemetry"
)

// TestSingleByteFaultInjectionProducesRepairedReadError mirrors the
// "single-byte fault injection" scenario: byte 42 of an otherwise clean
// block is flipped in place, and CheckRegion must localize the word
// holding it, repair
// it, and report it as a read-error with the post-repair reread value
// equal to the pattern's expected word.
func TestSingleByteFaultInjectionProducesRepairedReadError(t *testing.T) {
	catalog, err := pattern.Init()
	require.NoError(t, err)
	p := catalog.Pattern(0)

	block := make([]byte, checksum.CRCBlockSize)
	fillBlock(block, p)

	wordOff := 42 / 4 * 4
	original := readWord32(block, wordOff)
	block[42] = ^block[42]

	sink := telemetry.NewRecordingSink()
	step := sink.Step("test")
	os := oslayer.NewFake()

	clean := CheckRegion(block, p, catalog, 0x1000, os, oslayer.ChannelSpec{}, step, 0)
	assert.False(t, clean)

	require.Len(t, sink.Diagnoses, 1)
	d := sink.Diagnoses[0]
	assert.Equal(t, telemetry.VerdictMiscompareFail, d.Verdict)
	require.NotNil(t, d.Record)
	assert.NotEqual(t, d.Record.Actual, d.Record.Expected)
	assert.Equal(t, original, d.Record.Expected)
	assert.Equal(t, d.Record.Expected, d.Record.Reread)
	assert.Equal(t, telemetry.ErrorKindRead, d.Record.Kind)

	// the repair must have actually landed in the block.
	assert.Equal(t, original, readWord32(block, wordOff))
}

// TestBlockLevelCorruptionReportsExactlyOneBlockError mirrors the
// "block-level corruption" scenario: an entire block assigned pattern P1
// is overwritten wholesale with P2's content. CheckRegion must report
// exactly one block-error diagnosis naming P2 and spanning the whole
// block; the per-word miscompare-fail diagnoses for the queued records
// are emitted alongside it and are not counted here.
func TestBlockLevelCorruptionReportsExactlyOneBlockError(t *testing.T) {
	catalog, err := pattern.Init()
	require.NoError(t, err)
	p1 := catalog.Pattern(0)
	p2 := catalog.Pattern(1)

	block := make([]byte, checksum.CRCBlockSize)
	fillBlock(block, p2)

	sink := telemetry.NewRecordingSink()
	step := sink.Step("test")
	os := oslayer.NewFake()

	clean := CheckRegion(block, p1, catalog, 0x2000, os, oslayer.ChannelSpec{}, step, 0)
	assert.False(t, clean)

	var blockErrors []telemetry.Diagnosis
	for _, d := range sink.Diagnoses {
		if d.Verdict == telemetry.VerdictBlockError {
			blockErrors = append(blockErrors, d)
		}
	}
	require.Len(t, blockErrors, 1)
	assert.Equal(t, p2.Name(), blockErrors[0].AltPattern)
	assert.Equal(t, 0, blockErrors[0].BlockStart)
	assert.Equal(t, checksum.CRCBlockSize-1, blockErrors[0].BlockEnd)
}
