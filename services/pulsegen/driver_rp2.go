//go:build rp2040 || rp2350

package pulsegen

import (
	"machine"
	"time"

	pio "github.com/tinygo-org/pio/rp2-pio"
	"github.com/tinygo-org/pio/rp2-pio/piolib"

	"pulsecode-go/errcode"
)

// PIODriver queues burst counts on a PIO square-wave pulsar, so pulse timing
// costs no CPU.
type PIODriver struct {
	pulsar *piolib.Pulsar
	pin    int
}

func NewPIODriver() *PIODriver { return &PIODriver{pin: -1} }

func (d *PIODriver) Configure(pin int, periodUs uint32) error {
	if d.pulsar == nil || d.pin != pin {
		sm, err := pio.PIO0.ClaimStateMachine()
		if err != nil {
			return &errcode.E{C: errcode.Busy, Op: "pulsegen.Configure", Err: err}
		}
		p, err := piolib.NewPulsar(sm, machine.Pin(pin))
		if err != nil {
			sm.Unclaim()
			return &errcode.E{C: errcode.DeviceFault, Op: "pulsegen.Configure", Err: err}
		}
		d.pulsar = p
		d.pin = pin
	}
	if err := d.pulsar.SetPeriod(time.Duration(periodUs) * time.Microsecond); err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "pulsegen.Configure", Err: err}
	}
	return nil
}

func (d *PIODriver) Burst(pulses uint16) error {
	if d.pulsar == nil {
		return errcode.NotInitialised
	}
	return d.pulsar.TryQueue(uint32(pulses))
}
