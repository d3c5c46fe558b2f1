package max30102

import (
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
)

// initialize runs the attach-time configuration sequence. Each step
// propagates the first bus error and aborts the remaining steps; a
// mid-sequence failure leaves the device partially configured, which is
// reported but not rolled back. Runs before the handle is shared, so no
// lock is taken.
func (d *Device) initialize() error {
	if d.resetPin != nil {
		if err := d.hardwareReset(); err != nil {
			return err
		}
	}
	if err := d.softwareReset(); err != nil {
		return err
	}

	// Clear FIFO pointers and the overflow counter.
	for _, reg := range []byte{FIFOWrPtr, FIFORdPtr, OvfCount} {
		if err := d.writeReg(reg, 0x00); err != nil {
			return err
		}
	}

	steps := []struct {
		reg   byte
		value byte
	}{
		{FIFOCfg, defaultFIFOConfig},
		{ModeCfg, ModeSpO2},
		{SpO2Cfg, defaultSpO2Config},
		{Led1PA, defaultPulseAmp},
		{Led2PA, defaultPulseAmp},
		{MultiLedModeS2S1, defaultSlotS2S1},
		{MultiLedModeS4S3, 0x00},
		{IntEna1, defaultIntEna},
	}
	for _, s := range steps {
		if err := d.writeReg(s.reg, s.value); err != nil {
			return err
		}
	}

	d.cfg = Config{
		Mode:   ModeSpO2,
		FIFO:   defaultFIFOConfig,
		SpO2:   defaultSpO2Config,
		LedPA:  [2]byte{defaultPulseAmp, defaultPulseAmp},
		Slots:  [2]byte{defaultSlotS2S1, 0x00},
		IntEna: [2]byte{defaultIntEna, 0x00},
	}
	return nil
}

// hardwareReset pulses the active-low reset line: hold 10ms, release,
// then wait 100ms for the device to stabilize.
func (d *Device) hardwareReset() error {
	if err := d.resetPin.Out(gpio.Low); err != nil {
		return fmt.Errorf("max30102: could not assert reset line: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := d.resetPin.Out(gpio.High); err != nil {
		return fmt.Errorf("max30102: could not release reset line: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	return nil
}

// softwareReset sets the reset bit in the mode register and polls until
// the device clears it.
func (d *Device) softwareReset() error {
	if err := d.writeReg(ModeCfg, ResetControl); err != nil {
		return fmt.Errorf("max30102: could not reset: %w", err)
	}
	for i := 0; i < d.resetPollTries; i++ {
		time.Sleep(d.resetPollEvery)
		state, err := d.readReg(ModeCfg)
		if err != nil {
			return fmt.Errorf("max30102: could not poll reset state: %w", err)
		}
		if state&ResetControl == 0 {
			return nil
		}
	}
	return fmt.Errorf("max30102: reset did not complete: %w", ErrTimeout)
}

// SetMode sets the operating mode: ModeHR, ModeSpO2 or ModeMultiLed.
func (d *Device) SetMode(mode byte) error {
	if mode != ModeHR && mode != ModeSpO2 && mode != ModeMultiLed {
		return fmt.Errorf("max30102: mode %#02x: %w", mode, ErrInvalidParam)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeReg(ModeCfg, mode); err != nil {
		return err
	}
	d.cfg.Mode = mode
	return nil
}

// SetSlot assigns an LED to one of the four multi-LED time slots. Two
// slots share each register, so the other slot's nibble is preserved with
// a read-modify-write.
func (d *Device) SetSlot(slot, led byte) error {
	if slot < 1 || slot > 4 || led > slotLedMax {
		return fmt.Errorf("max30102: slot %d led %d: %w", slot, led, ErrInvalidParam)
	}
	reg := byte(MultiLedModeS2S1)
	cfgIdx := 0
	if slot > 2 {
		reg = MultiLedModeS4S3
		cfgIdx = 1
	}
	var shift byte
	if slot%2 == 0 {
		shift = 4
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	current, err := d.readReg(reg)
	if err != nil {
		return err
	}
	value := current&^(0x07<<shift) | led<<shift
	if err := d.writeReg(reg, value); err != nil {
		return err
	}
	d.cfg.Slots[cfgIdx] = value
	return nil
}

// SetFIFOConfig writes the FIFO configuration byte (sample averaging,
// rollover, almost-full watermark).
func (d *Device) SetFIFOConfig(cfg byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeReg(FIFOCfg, cfg); err != nil {
		return err
	}
	d.cfg.FIFO = cfg
	return nil
}

// SetSpO2Config writes the SpO2 configuration byte after checking the
// pulse-width/sample-rate pairing against the datasheet-valid set: pulse
// width code 0 supports sample rate codes up to 4, code 1 up to 6.
func (d *Device) SetSpO2Config(cfg byte) error {
	if cfg&0x80 != 0 {
		return fmt.Errorf("max30102: SpO2 config %#02x: %w", cfg, ErrInvalidParam)
	}
	pw := cfg & 0x03
	sr := cfg >> 2 & 0x07
	if pw == 0 && sr > 4 || pw == 1 && sr > 6 {
		return fmt.Errorf("max30102: sample rate code %d too fast for pulse width code %d: %w", sr, pw, ErrInvalidParam)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeReg(SpO2Cfg, cfg); err != nil {
		return err
	}
	d.cfg.SpO2 = cfg
	return nil
}

// SetInterrupt enables or disables one interrupt source, preserving the
// rest of the enable register it lives in.
func (d *Device) SetInterrupt(kind Interrupt, enable bool) error {
	switch kind {
	case IntPowerReady, IntALCOverflow, IntNewSample, IntFIFOFull, IntDieTempReady:
	default:
		return fmt.Errorf("max30102: interrupt source %d: %w", kind, ErrInvalidParam)
	}
	reg := byte(IntEna1)
	cfgIdx := 0
	if kind == IntDieTempReady {
		reg = IntEna2
		cfgIdx = 1
	}
	mask := byte(1) << kind

	d.mu.Lock()
	defer d.mu.Unlock()
	value, err := d.readReg(reg)
	if err != nil {
		return err
	}
	if enable {
		value |= mask
	} else {
		value &^= mask
	}
	if err := d.writeReg(reg, value); err != nil {
		return err
	}
	d.cfg.IntEna[cfgIdx] = value
	return nil
}
