package oslayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPciWriteDoesNotClearAdjacentBytesOnNarrowWidth(t *testing.T) {
	buf := []byte{0xff, 0xff, 0xff, 0xff, 0xff}
	require.NoError(t, pciWrite(buf, 1, 1, 0x00))
	assert.Equal(t, []byte{0xff, 0x00, 0xff, 0xff, 0xff}, buf, "a 1-byte write must not fall through into the next width case")
}

func TestPciWriteWidths(t *testing.T) {
	buf := make([]byte, 8)
	require.NoError(t, pciWrite(buf, 0, 2, 0xbeef))
	assert.Equal(t, byte(0xef), buf[0])
	assert.Equal(t, byte(0xbe), buf[1])
	assert.Equal(t, byte(0), buf[2])

	require.NoError(t, pciWrite(buf, 4, 4, 0xdeadbeef))
	assert.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde}, buf[4:8])
}

func TestPciWriteRejectsOutOfRangeOffset(t *testing.T) {
	buf := make([]byte, 4)
	assert.Error(t, pciWrite(buf, 3, 4, 0))
}

func TestPciWriteRejectsUnknownWidth(t *testing.T) {
	buf := make([]byte, 4)
	assert.Error(t, pciWrite(buf, 0, 3, 0))
}
