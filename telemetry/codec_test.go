package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeErrorRecordRoundTrips(t *testing.T) {
	rec := ErrorRecord{
		Actual:      0xdeadbeef,
		Expected:    0x5a5a5a5a,
		Reread:      0x5a5a5a5a,
		VAddr:       0x7f0000001000,
		PAddr:       0x1000,
		DIMM:        "channel0/chip2",
		PatternName: "all-ones",
		LastCPU:     3,
		Kind:        ErrorKindWrite,
	}

	wire, err := EncodeErrorRecord(rec)
	require.NoError(t, err)

	got, err := DecodeErrorRecord(wire)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestDecodeErrorRecordRejectsTruncatedInput(t *testing.T) {
	_, err := DecodeErrorRecord([]byte{0x00, 0x01})
	assert.Error(t, err)
}
