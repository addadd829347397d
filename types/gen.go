package types

// ---- Pulse generator payloads ----

// GenConfig configures the test-signal generator (config/pulsegen, retained).
type GenConfig struct {
	Pin      int    `json:"pin" yaml:"pin"`
	Pulses   uint16 `json:"pulses" yaml:"pulses"`
	PeriodUs uint32 `json:"period_us" yaml:"period_us"` // full pulse period, high+low
	GapMs    uint32 `json:"gap_ms" yaml:"gap_ms"`       // idle between bursts
}

// GenBurst is the control payload for a one-shot burst (pulsegen/control).
// Zero fields fall back to the configured values.
type GenBurst struct {
	Pulses   uint16 `json:"pulses,omitempty"`
	PeriodUs uint32 `json:"period_us,omitempty"`
}
