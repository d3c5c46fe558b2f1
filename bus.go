package max30102

import "fmt"

// maxTransfer is the largest register payload moved in one bus
// transaction, matching the hardware FIFO burst limit.
const maxTransfer = 32

// writeReg sends the register address byte followed by the payload in a
// single transaction. The caller must hold d.mu.
func (d *Device) writeReg(reg byte, data ...byte) error {
	if len(data) > maxTransfer {
		return fmt.Errorf("max30102: write of %d bytes exceeds transfer limit: %w", len(data), ErrInvalidParam)
	}
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, reg)
	buf = append(buf, data...)
	n, err := d.dev.Write(buf)
	if err != nil {
		return fmt.Errorf("max30102: could not write register %#02x: %w", reg, err)
	}
	if n != len(buf) {
		return fmt.Errorf("max30102: short write to register %#02x: want %d bytes, wrote %d", reg, len(buf), n)
	}
	return nil
}

// readReg reads a single byte from a register. Status registers clear on
// read; callers must not re-read them speculatively. The caller must hold
// d.mu.
func (d *Device) readReg(reg byte) (byte, error) {
	b := make([]byte, 1)
	if err := d.dev.Tx([]byte{reg}, b); err != nil {
		return 0, fmt.Errorf("max30102: could not read register %#02x: %w", reg, err)
	}
	return b[0], nil
}

// readBurst reads n bytes from a register as a register-select write
// chained with an n-byte read. The caller must hold d.mu.
func (d *Device) readBurst(reg byte, n int) ([]byte, error) {
	if n <= 0 || n > maxTransfer {
		return nil, fmt.Errorf("max30102: burst of %d bytes exceeds transfer limit: %w", n, ErrInvalidParam)
	}
	b := make([]byte, n)
	if err := d.dev.Tx([]byte{reg}, b); err != nil {
		return nil, fmt.Errorf("max30102: could not read %d bytes from register %#02x: %w", n, reg, err)
	}
	return b, nil
}

// WriteReg writes up to 32 payload bytes to a register.
func (d *Device) WriteReg(reg byte, data ...byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeReg(reg, data...)
}

// ReadReg reads a single byte from a register.
func (d *Device) ReadReg(reg byte) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readReg(reg)
}

// ReadBurst reads up to 32 bytes from a register in one transaction.
func (d *Device) ReadBurst(reg byte, n int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readBurst(reg, n)
}
