// Package max30102 drives the MAX30102 pulse-oximetry and heart-rate
// sensor: it configures the device over I2C, drains the packed hardware
// FIFO on interrupt, runs the die-temperature conversion protocol, and
// hands finished sample sets to concurrent consumers through a
// single-slot mailbox.
package max30102

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

// Device is a handle to one attached MAX30102. All register I/O and
// mailbox mutation is serialized by a single exclusive lock; only one
// logical operation (one FIFO drain, one configuration write, one
// consumer read) proceeds at a time.
type Device struct {
	dev *i2c.Dev
	bus i2c.BusCloser // owned when opened by New, nil when injected

	intPin   gpio.PinIn
	resetPin gpio.PinIO

	mu  sync.Mutex
	cfg Config

	box     Sample
	boxFull bool
	boxSeq  uint64        // incremented per publish, drives observers
	notify  chan struct{} // closed and replaced on each publish

	lastTemp  float64
	tempValid bool

	resetPollEvery time.Duration
	resetPollTries int
	tempPollEvery  time.Duration
	tempPollTries  int
	edgeTimeout    time.Duration
}

// Config is a snapshot of the register values the configuration state
// machine has written. It shadows the device; it is not read back from
// hardware.
type Config struct {
	Mode   byte
	FIFO   byte
	SpO2   byte
	LedPA  [2]byte
	Slots  [2]byte // MultiLedModeS2S1, MultiLedModeS4S3 shadows
	IntEna [2]byte
}

// New opens the named I2C bus ("/dev/i2c-1", "I2C1", "1", or "" for the
// first available), attaches the device at addr (0 selects the default
// 0x57) and runs the full reset and configuration sequence.
func New(busName string, addr uint16, opts ...Option) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("max30102: could not initialize host: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("max30102: could not open I2C bus: %w", err)
	}
	d, err := Connect(bus, addr, opts...)
	if err != nil {
		bus.Close()
		return nil, err
	}
	d.bus = bus
	return d, nil
}

// Connect attaches the device on an injected bus. The caller keeps
// ownership of the bus. The part ID is verified and the reset and
// configuration sequence is run before Connect returns.
func Connect(bus i2c.Bus, addr uint16, opts ...Option) (*Device, error) {
	if addr == 0 {
		addr = Addr
	}
	d := &Device{
		dev:    &i2c.Dev{Addr: addr, Bus: bus},
		notify: make(chan struct{}),

		resetPollEvery: 10 * time.Millisecond,
		resetPollTries: 10,
		tempPollEvery:  10 * time.Millisecond,
		tempPollTries:  10,
		edgeTimeout:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}

	part, err := d.readReg(RegPartID)
	if err != nil {
		return nil, fmt.Errorf("max30102: could not get part ID: %w", err)
	}
	if part != PartID {
		return nil, ErrNotDevice
	}

	if err := d.initialize(); err != nil {
		return nil, fmt.Errorf("max30102: could not initialize device: %w", err)
	}
	return d, nil
}

// Close releases the bus if the device owns it.
func (d *Device) Close() error {
	if d.bus != nil {
		return d.bus.Close()
	}
	return nil
}

// RevID returns the revision ID of the device.
func (d *Device) RevID() (byte, error) {
	rev, err := d.ReadReg(RegRevID)
	if err != nil {
		return 0, fmt.Errorf("max30102: could not get revision ID: %w", err)
	}
	return rev, nil
}

// Config returns the current configuration snapshot.
func (d *Device) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Run subscribes to the configured interrupt pin and invokes the
// acquisition handler on each falling edge until ctx is done. Edge
// delivery is at least once and may be coalesced; the handler tolerates
// invocations with no actionable status bits. Run returns ctx.Err() on
// cancellation.
func (d *Device) Run(ctx context.Context) error {
	if d.intPin == nil {
		return fmt.Errorf("max30102: no interrupt pin configured: %w", ErrInvalidParam)
	}
	if err := d.intPin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("max30102: could not watch interrupt pin: %w", err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.intPin.WaitForEdge(d.edgeTimeout) {
			d.HandleInterrupt()
		}
	}
}
