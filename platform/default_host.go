//go:build !rp2040 && !rp2350

package platform

// DefaultPinFactory provides software pins on host builds.
func DefaultPinFactory() PinFactory { return NewFakePinFactory() }

// DefaultI2CFactory creates inert fake buses "i2c0" and "i2c1".
func DefaultI2CFactory() I2CFactory { return NewFakeI2CFactory("i2c0", "i2c1") }
