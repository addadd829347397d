package config

import (
	"pulsecode-go/services/bridge"
	"pulsecode-go/types"
)

// PicoDefault is the embedded configuration for the Pico sensor board:
// pulse input on GP15, fuel gauge on i2c0, telemetry over uart0.
func PicoDefault() DeviceConfig {
	return DeviceConfig{
		Pulsemon: &types.PulseConfig{Pin: 15},
		Power:    &types.PowerConfig{Bus: "i2c0"},
		Bridge: &bridge.Config{
			Transport: bridge.TransportConfig{
				Type: "uart",
				UART: &bridge.UARTConfig{Port: "uart0", Baud: 115200, TxPin: 0, RxPin: 1},
			},
		},
	}
}

// HostSimDefault drives a fake pin with the generator and monitors it.
func HostSimDefault() DeviceConfig {
	return DeviceConfig{
		Pulsemon: &types.PulseConfig{Pin: 15},
		Pulsegen: &types.GenConfig{Pin: 15, Pulses: 3, PeriodUs: 100, GapMs: 500},
	}
}
