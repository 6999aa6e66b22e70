package oslayer

import "github.com/infinivision/satgo/errmsg"

// pciWrite writes exactly width bytes of value into the PCI config-space
// buffer at offset. Resolved open question: no fall-through between width
// cases. Each case returns immediately after its own write; a case that
// fell through into the next would clear bytes the caller never asked to
// touch, which is never the collaborator's contract. Not reachable from
// the OS interface -- PCI config-space access plays no part in the
// memory-verification core -- kept here only to pin the resolved behavior
// under test.
func pciWrite(buf []byte, offset int, width int, value uint32) error {
	if offset < 0 || offset+width > len(buf) {
		return errmsg.InvalidOffset
	}
	switch width {
	case 1:
		buf[offset] = byte(value)
		return nil
	case 2:
		buf[offset] = byte(value)
		buf[offset+1] = byte(value >> 8)
		return nil
	case 4:
		buf[offset] = byte(value)
		buf[offset+1] = byte(value >> 8)
		buf[offset+2] = byte(value >> 16)
		buf[offset+3] = byte(value >> 24)
		return nil
	default:
		return errmsg.UnknownError
	}
}
