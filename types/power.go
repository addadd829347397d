package types

// ---- Power (fuel gauge) payloads ----

// PowerConfig configures the battery service (config/power, retained).
type PowerConfig struct {
	Bus        string `json:"bus" yaml:"bus"`   // e.g. "i2c0"
	Addr       uint16 `json:"addr" yaml:"addr"` // 0 => MAX17048 default 0x36
	IntervalMs uint32 `json:"interval_ms,omitempty" yaml:"interval_ms"`
	LowPct     uint8  `json:"low_pct,omitempty" yaml:"low_pct"` // low-battery threshold, percent
}

// PowerValue is the retained reading at power/value. Fixed-point to suit
// TinyGo: SOC in 1/256 % as the gauge reports it would waste the wire, so
// both SOC and charge rate are scaled to hundredths.
type PowerValue struct {
	MilliV    uint32 `json:"mv"`
	SOCx100   uint16 `json:"soc_x100"`   // hundredths of a percent
	CRatex100 int16  `json:"crate_x100"` // hundredths of %/hr, signed
	TS        int64  `json:"ts_ms"`
}

// PowerState carries the derived flags at power/state (retained).
type PowerState struct {
	Low      bool  `json:"low"`
	Charging bool  `json:"charging"`
	TS       int64 `json:"ts_ms"`
}
