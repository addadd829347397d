package types

// ---- Pulse monitor payloads ----

// PulseConfig configures the monitor service. Published retained on
// config/pulsemon; zero fields keep their defaults.
type PulseConfig struct {
	Pin            int    `json:"pin" yaml:"pin"`
	BurstTimeoutUs uint32 `json:"burst_timeout_us,omitempty" yaml:"burst_timeout_us"`
	MaxPulseCount  uint16 `json:"max_pulse_count,omitempty" yaml:"max_pulse_count"`
	PollMs         uint32 `json:"poll_ms,omitempty" yaml:"poll_ms"`
	ReportMs       uint32 `json:"report_ms,omitempty" yaml:"report_ms"`
}

// PulseValue is the retained instantaneous burst reading
// (pulse/value). Mirrors pulse.Result.
type PulseValue struct {
	BurstDurationUs    uint32  `json:"burst_duration_us"`
	OffPeriodUs        uint32  `json:"off_period_us"`
	PulseCount         uint16  `json:"pulse_count"`
	FrequencyKHz       float32 `json:"frequency_khz"`
	FirstPulsePeriodUs uint32  `json:"first_pulse_period_us"`
	TS                 uint32  `json:"ts_ms"`
	BurstActive        bool    `json:"burst_active"`
	Success            bool    `json:"success"`
}

// PulseStats summarises the rolling window and the first-reading baseline
// (pulse/report, retained).
type PulseStats struct {
	Samples            int     `json:"samples"`
	AvgPulseCount      float32 `json:"avg_pulse_count"`
	AvgFrequencyKHz    float32 `json:"avg_frequency_khz"`
	AvgFirstPeriodUs   float32 `json:"avg_first_period_us"`
	AvgBurstDurationUs float32 `json:"avg_burst_duration_us"`
	AvgOffPeriodUs     float32 `json:"avg_off_period_us"`

	HaveBaseline     bool    `json:"have_baseline"`
	BasePulseCount   uint16  `json:"base_pulse_count,omitempty"`
	BaseFrequencyKHz float32 `json:"base_frequency_khz,omitempty"`
	BaseCapturedMs   uint32  `json:"base_captured_ms,omitempty"`
	PulseDeltaPct    float32 `json:"pulse_delta_pct,omitempty"`
	FreqDeltaPct     float32 `json:"freq_delta_pct,omitempty"`
}

// Control payloads (pulse/control verbs)

// PulseRead asks for the latest reading; WaitMs 0 peeks without blocking.
type PulseRead struct {
	WaitMs uint32 `json:"wait_ms,omitempty"`
}

type PulseReset struct{}
