package worker

import (
	"time"

	"github.com/infinivision/satgo/oslayer"
	"github.com/infinivision/satgo/telemetry"
)

// MSR addresses and interval constants, carried over verbatim from
// original_source/src/worker.h -- hardware constants, not implementation
// texture.
const (
	msrTscAddr   = 0x10
	msrAperfAddr = 0xE8
	msrMperfAddr = 0xE7

	cpuFreqIntervalPause = 10 * time.Second
	cpuFreqStartupDelay  = 5 * time.Second
)

type cpuSample struct {
	tsc, aperf, mperf uint64
	at                time.Time
}

// CPUFreqWorker reads {TSC, APERF, MPERF} for one CPU every interval and
// reports its effective frequency against a threshold.
type CPUFreqWorker struct {
	base
	OS           oslayer.OS
	CPU          int
	ThresholdMHz int
	RoundMHz     int
}

func NewCPUFreqWorker(name string, os oslayer.OS, cpu, thresholdMHz, roundMHz int) *CPUFreqWorker {
	if roundMHz <= 0 {
		roundMHz = 1
	}
	return &CPUFreqWorker{base: base{name: name}, OS: os, CPU: cpu, ThresholdMHz: thresholdMHz, RoundMHz: roundMHz}
}

func (w *CPUFreqWorker) readSample() (cpuSample, bool) {
	tsc, err1 := w.OS.ReadMSR(w.CPU, msrTscAddr)
	aperf, err2 := w.OS.ReadMSR(w.CPU, msrAperfAddr)
	mperf, err3 := w.OS.ReadMSR(w.CPU, msrMperfAddr)
	if err1 != nil || err2 != nil || err3 != nil {
		return cpuSample{}, false
	}
	return cpuSample{tsc: tsc, aperf: aperf, mperf: mperf, at: time.Now()}, true
}

// computeFrequency mirrors ComputeDelta + ComputeFrequency: rejects any MSR
// that went backward or a TSC delta under 1e6 cycles (idle artefact), then
// rounds to the configured grain.
func (w *CPUFreqWorker) computeFrequency(prev, cur cpuSample) (int, bool) {
	if cur.tsc < prev.tsc || cur.aperf < prev.aperf || cur.mperf < prev.mperf {
		return 0, false
	}
	dTSC := cur.tsc - prev.tsc
	dAperf := cur.aperf - prev.aperf
	dMperf := cur.mperf - prev.mperf
	if dTSC < 1_000_000 || dMperf == 0 {
		return 0, false
	}

	interval := cur.at.Sub(prev.at).Seconds()
	if interval <= 0 {
		return 0, false
	}
	freq := float64(dTSC) / 1e6 * float64(dAperf) / float64(dMperf) / interval

	roundValue := float64(w.RoundMHz) / 2.0
	computed := int(freq + roundValue)
	return computed - computed%w.RoundMHz, true
}

func (w *CPUFreqWorker) Run(status *Status, sink telemetry.Sink) {
	step := sink.Step(w.name)
	var paused bool

	var prev cpuSample
	haveSample := false
	time.Sleep(cpuFreqStartupDelay)

	for status.ShouldContinue(&paused) {
		if paused {
			haveSample = false
		}
		cur, ok := w.readSample()
		if !ok {
			step.Log("cpu-freq: failed to read msrs on cpu %d", w.CPU)
			haveSample = false
			time.Sleep(cpuFreqIntervalPause)
			continue
		}

		if haveSample {
			if freq, ok := w.computeFrequency(prev, cur); ok {
				step.AddMeasurement("CPU Core Frequency", float64(freq))
				if freq < w.ThresholdMHz {
					step.AddDiagnosis(telemetry.Diagnosis{
						Verdict:     telemetry.VerdictProbeFail,
						Message:     "cpu frequency below threshold",
						CPU:         w.CPU,
						ProbeMetric: float64(freq),
					})
				}
			} else {
				haveSample = false
			}
		}

		prev = cur
		haveSample = true
		w.tick()
		time.Sleep(cpuFreqIntervalPause)
	}
}
