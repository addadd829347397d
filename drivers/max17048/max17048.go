// Package max17048 provides a driver for the MAX17048/MAX17049 fuel gauge.
// All registers are 16-bit big-endian and read with a write-then-read
// transaction, so I2C.Tx MUST issue a repeated start between the register
// write and the data read.
//
// The hot path is fixed-point: voltage in mV, state of charge and charge
// rate in hundredths, so readings can travel in small integer payloads.
package max17048

import (
	"errors"

	"tinygo.org/x/drivers"
)

// I2C address.
const Address = 0x36

// Registers (per datasheet).
const (
	regVCell   = 0x02 // 78.125 µV per LSB
	regSOC     = 0x04 // 1/256 % per LSB
	regMode    = 0x06
	regVersion = 0x08
	regConfig  = 0x0C
	regCRate   = 0x16 // 0.208 %/hr per LSB, signed
	regStatus  = 0x1A
	regCmd     = 0xFE
)

const (
	modeQuickStart = 0x4000
	cmdPOR         = 0x5400
)

var ErrBadVersion = errors.New("max17048: unexpected version")

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x36 if zero.
	Address uint16
}

// Device wraps an I2C connection to a MAX17048 device.
type Device struct {
	bus     drivers.I2C
	Address uint16

	buf [2]byte // reuse buffer to avoid allocations
}

// New creates the Device object only; the bus must already be configured and
// the device is not touched until Configure or a read.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Configure applies optional config and probes the version register, which
// doubles as a presence check. The IC needs no initialisation sequence.
func (d *Device) Configure(cfgs ...Config) error {
	if len(cfgs) > 0 && cfgs[0].Address != 0 {
		d.Address = cfgs[0].Address
	}
	v, err := d.Version()
	if err != nil {
		return err
	}
	// Production silicon reports 0x001x.
	if v&0xFFF0 != 0x0010 {
		return ErrBadVersion
	}
	return nil
}

// Version reads the VERSION register.
func (d *Device) Version() (uint16, error) { return d.readReg(regVersion) }

// QuickStart restarts the SOC estimate from the current cell voltage. Only
// useful right after insertion of a charged battery.
func (d *Device) QuickStart() error { return d.writeReg(regMode, modeQuickStart) }

// Reset issues a power-on reset through the CMD register. The device NAKs
// the transaction while resetting, so a bus error here is expected and
// swallowed.
func (d *Device) Reset() {
	_ = d.writeReg(regCmd, cmdPOR)
}

// CellMilliVolts returns the cell voltage in mV.
func (d *Device) CellMilliVolts() (uint32, error) {
	raw, err := d.readReg(regVCell)
	if err != nil {
		return 0, err
	}
	// 78.125 µV per LSB = 625/8 µV.
	return (uint32(raw) * 625) / 8000, nil
}

// SOCx100 returns the state of charge in hundredths of a percent. The gauge
// can report slightly above 100 % on a full cell; callers clamp if needed.
func (d *Device) SOCx100() (uint16, error) {
	raw, err := d.readReg(regSOC)
	if err != nil {
		return 0, err
	}
	return uint16((uint32(raw) * 100) / 256), nil
}

// CRatex100 returns the charge/discharge rate in hundredths of %/hr,
// positive while charging.
func (d *Device) CRatex100() (int16, error) {
	raw, err := d.readReg(regCRate)
	if err != nil {
		return 0, err
	}
	// 0.208 %/hr per LSB.
	return int16((int32(int16(raw)) * 208) / 10), nil
}

func (d *Device) readReg(reg byte) (uint16, error) {
	data := d.buf[:]
	if err := d.bus.Tx(d.Address, []byte{reg}, data); err != nil {
		return 0, err
	}
	return uint16(data[0])<<8 | uint16(data[1]), nil
}

func (d *Device) writeReg(reg byte, v uint16) error {
	return d.bus.Tx(d.Address, []byte{reg, byte(v >> 8), byte(v)}, nil)
}
