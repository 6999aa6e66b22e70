package telemetry

import (
	"bytes"

	xdr "github.com/davecgh/go-xdr/xdr2"
)

// wireRecord is the XDR-friendly shape of an ErrorRecord: xdr2 cannot
// encode uintptr, so VAddr crosses the wire as a uint64.
type wireRecord struct {
	Actual      uint32
	Expected    uint32
	Reread      uint32
	VAddr       uint64
	PAddr       uint64
	DIMM        string
	PatternName string
	LastCPU     int32
	Kind        int32
}

// EncodeErrorRecord marshals an ErrorRecord for a sink that forwards
// diagnoses off-process, grounded on the pack's XDR dependency.
func EncodeErrorRecord(e ErrorRecord) ([]byte, error) {
	w := wireRecord{
		Actual:      e.Actual,
		Expected:    e.Expected,
		Reread:      e.Reread,
		VAddr:       uint64(e.VAddr),
		PAddr:       e.PAddr,
		DIMM:        e.DIMM,
		PatternName: e.PatternName,
		LastCPU:     int32(e.LastCPU),
		Kind:        int32(e.Kind),
	}
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeErrorRecord is the inverse of EncodeErrorRecord.
func DecodeErrorRecord(data []byte) (ErrorRecord, error) {
	var w wireRecord
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &w); err != nil {
		return ErrorRecord{}, err
	}
	return ErrorRecord{
		Actual:      w.Actual,
		Expected:    w.Expected,
		Reread:      w.Reread,
		VAddr:       uintptr(w.VAddr),
		PAddr:       w.PAddr,
		DIMM:        w.DIMM,
		PatternName: w.PatternName,
		LastCPU:     int(w.LastCPU),
		Kind:        ErrorKind(w.Kind),
	}, nil
}
