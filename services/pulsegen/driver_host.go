//go:build !rp2040 && !rp2350

package pulsegen

import (
	"time"

	"pulsecode-go/errcode"
	"pulsecode-go/platform"
)

// PinDriver toggles a software pin. Edges inside a burst are emitted back to
// back: host sleep granularity cannot honour a microsecond period, and the
// monitor only needs intra-burst gaps to stay under its timeout. The period
// is honoured when it is long enough to schedule reliably.
type PinDriver struct {
	pins platform.PinFactory

	pin      platform.Pin
	periodUs uint32
}

func NewPinDriver(pins platform.PinFactory) *PinDriver {
	return &PinDriver{pins: pins}
}

func (d *PinDriver) Configure(pin int, periodUs uint32) error {
	p, ok := d.pins.ByNumber(pin)
	if !ok {
		return errcode.UnknownPin
	}
	d.pin = p
	d.periodUs = periodUs
	return nil
}

func (d *PinDriver) Burst(pulses uint16) error {
	if d.pin == nil {
		return errcode.NotInitialised
	}
	half := time.Duration(d.periodUs/2) * time.Microsecond
	if half < time.Millisecond {
		half = 0
	}
	for i := uint16(0); i < pulses; i++ {
		d.pin.Set(true)
		if half > 0 {
			time.Sleep(half)
		}
		d.pin.Set(false)
		if half > 0 {
			time.Sleep(half)
		}
	}
	return nil
}
