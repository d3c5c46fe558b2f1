package max30102

import "periph.io/x/periph/conn/gpio"

// Option configures a Device at attach time.
type Option func(*Device)

// WithResetPin supplies the active-low hardware reset line. When set, the
// init sequence pulses it before the software reset.
func WithResetPin(pin gpio.PinIO) Option {
	return func(d *Device) {
		d.resetPin = pin
	}
}

// WithInterruptPin supplies the pin wired to the sensor's interrupt
// output, consumed by Run.
func WithInterruptPin(pin gpio.PinIn) Option {
	return func(d *Device) {
		d.intPin = pin
	}
}
