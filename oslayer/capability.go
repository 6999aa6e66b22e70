package oslayer

import "golang.org/x/sys/cpu"

// CanMeasureFrequency reports whether this platform exposes the CPUID
// feature bits the frequency probe needs (TSC, APERF/MPERF via RDTSCP).
// golang.org/x/sys/cpu does not expose separate invariant-TSC /
// non-stop-TSC bits; RDTSCP presence is used as the proxy CPUID check,
// which is a simplification from the full feature set spec.md names (see
// DESIGN.md).
func CanMeasureFrequency() bool {
	return cpu.X86.HasRDTSCP
}
