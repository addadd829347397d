// Package pulse implements the pulse-burst edge-timing engine: an
// interrupt-context edge classifier feeding a polled segmentation state
// machine that measures burst duration, frequency and off-period, keeps a
// rolling window of recent bursts plus a latched first reading, and publishes
// the latest result through a single-slot peek channel.
//
// The package is hardware-free. The platform registers (*Monitor).OnEdge as
// a both-edges pin interrupt callback and runs (*Monitor).Run as a background
// task; everything else is driven through the injected Clock.
package pulse

import "time"

const (
	// DefaultBurstTimeoutUs is the idle gap that separates bursts (2 ms).
	DefaultBurstTimeoutUs = 2000
	// DefaultMaxPulseCount bounds a plausible burst; above it the burst is
	// treated as noise and the rolling window is discarded.
	DefaultMaxPulseCount = 40
	// WindowSize is the rolling-average capacity in bursts.
	WindowSize = 10
	// BaselineHoldMs is the minimum retention of the first valid reading.
	BaselineHoldMs = 3000

	DefaultPollInterval   = 10 * time.Millisecond
	DefaultReportInterval = time.Second
)

// Clock supplies the two time bases the engine needs. Micros must be
// monotonic and is read from interrupt context; both counters wrap silently
// at 2^32 and differences are taken modulo 2^32.
type Clock interface {
	Micros() uint32
	Millis() uint32
}

// Result is one published measurement: either a completed burst
// (BurstActive=false) or a just-started one (BurstActive=true, measurement
// fields carried over from the previous result).
type Result struct {
	BurstDurationUs    uint32
	OffPeriodUs        uint32 // gap since previous burst end; 0 if none
	PulseCount         uint16 // edges/2, both transitions of each pulse counted
	FrequencyKHz       float32
	FirstPulsePeriodUs uint32
	Timestamp          uint32 // wall-clock ms
	BurstActive        bool
	Success            bool
}

// Burst is the five tracked quantities of one valid burst, as stored in the
// rolling window and the first-reading baseline.
type Burst struct {
	PulseCount         uint16
	FrequencyKHz       float32
	FirstPulsePeriodUs uint32
	BurstDurationUs    uint32
	OffPeriodUs        uint32
}

func burstOf(r Result) Burst {
	return Burst{
		PulseCount:         r.PulseCount,
		FrequencyKHz:       r.FrequencyKHz,
		FirstPulsePeriodUs: r.FirstPulsePeriodUs,
		BurstDurationUs:    r.BurstDurationUs,
		OffPeriodUs:        r.OffPeriodUs,
	}
}

// Means are arithmetic averages over the populated window slots.
type Means struct {
	PulseCount         float32
	FrequencyKHz       float32
	FirstPulsePeriodUs float32
	BurstDurationUs    float32
	OffPeriodUs        float32
	Samples            int
}

// Report is the periodic rolling-statistics summary.
type Report struct {
	Avg Means

	HaveFirst       bool
	First           Burst
	FirstCapturedMs uint32

	// (avg-first)/first*100 for the two headline quantities; only meaningful
	// when HaveFirst is true. May be Inf/NaN when the baseline value is 0,
	// matching plain float arithmetic.
	PulseDeltaPct float32
	FreqDeltaPct  float32
}
