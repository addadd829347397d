// Package platform supplies the hardware-facing abstractions the services
// are written against: GPIO pins with optional edge interrupts, and I²C
// buses compatible with the TinyGo drivers interface. Concrete factories are
// selected per build: RP2 boards use machine, hosts use fakes, and Linux
// boards can use the GPIO character device (see the linuxcdev subpackage).
package platform

import "tinygo.org/x/drivers"

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Edge selection for pin interrupts.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func ParseEdge(s string) Edge {
	switch s {
	case "rising":
		return EdgeRising
	case "falling":
		return EdgeFalling
	case "both":
		return EdgeBoth
	default:
		return EdgeNone
	}
}

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

type Pin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Toggle()
	Number() int
}

// IRQPin extends Pin with edge interrupts. The handler runs in interrupt
// context and must not block or allocate.
type IRQPin interface {
	Pin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// PinFactory supplies GPIO pins by the configured number scheme.
type PinFactory interface {
	ByNumber(n int) (Pin, bool)
}

// I2CFactory injects configured I²C instances by id. The TinyGo
// drivers.I2C interface keeps MCU and host builds compatible.
type I2CFactory interface {
	ByID(id string) (drivers.I2C, bool)
}
